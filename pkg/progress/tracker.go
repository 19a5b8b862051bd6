// Package progress reports byte throughput of a long running pass.
// Reporting is advisory: a nil *Tracker is valid and does nothing.
package progress

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultInterval is how often the ticker samples the byte counter
const DefaultInterval = 250 * time.Millisecond

// Tracker prints periodic progress lines for one phase at a time
type Tracker struct {
	out      io.Writer
	interval time.Duration

	processed atomic.Uint64

	mu      sync.Mutex
	phase   string
	total   uint64
	done    chan struct{}
	stopped chan struct{}
	running bool
}

// New creates a tracker writing to out
func New(out io.Writer) *Tracker {
	return &Tracker{out: out, interval: DefaultInterval}
}

// SetInterval changes the sampling interval for the next Start
func (t *Tracker) SetInterval(d time.Duration) {
	if t == nil || d <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interval = d
}

// Start resets the counter and begins reporting phase. A running phase is
// stopped first.
func (t *Tracker) Start(phase string, total uint64) {
	if t == nil {
		return
	}
	t.Stop()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.processed.Store(0)
	t.phase = phase
	t.total = total
	t.done = make(chan struct{})
	t.stopped = make(chan struct{})
	t.running = true
	go t.logger(phase, total, t.interval, t.done, t.stopped)
}

// Stop ends the current phase and waits for its final line
func (t *Tracker) Stop() {
	if t == nil {
		return
	}
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	close(t.done)
	stopped := t.stopped
	t.mu.Unlock()
	<-stopped
}

// AddBytes adds processed bytes to the counter
func (t *Tracker) AddBytes(n uint64) {
	if t == nil || n == 0 {
		return
	}
	t.processed.Add(n)
}

// Processed returns the bytes counted in the current phase
func (t *Tracker) Processed() uint64 {
	if t == nil {
		return 0
	}
	return t.processed.Load()
}

func (t *Tracker) logger(phase string, total uint64, interval time.Duration, done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	startTime := time.Now()
	lastOutput := startTime
	var prevBytes uint64
	var prevPercentage float64

	for {
		select {
		case <-ticker.C:
			current := t.processed.Load()
			rate := uint64(float64(current-prevBytes) / interval.Seconds())
			prevBytes = current

			percentage := 0.0
			if total > 0 {
				percentage = float64(current) / float64(total) * 100
			}

			// Print at most once per second unless a 10% step was crossed
			if time.Since(lastOutput) < time.Second && percentage-prevPercentage < 10 {
				continue
			}
			lastOutput = time.Now()
			prevPercentage = percentage

			if total > 0 {
				fmt.Fprintf(t.out, "%s: %s of %s (%.1f%%) | %s/s | ETA: %s\n",
					phase, humanize.IBytes(current), humanize.IBytes(total),
					percentage, humanize.IBytes(rate), eta(total, current, rate))
			} else {
				fmt.Fprintf(t.out, "%s: %s | %s/s\n", phase, humanize.IBytes(current), humanize.IBytes(rate))
			}
		case <-done:
			elapsed := time.Since(startTime)
			processed := t.processed.Load()
			avg := uint64(float64(processed) / max(elapsed.Seconds(), 0.001))
			fmt.Fprintf(t.out, "%s: completed %s in %.1f seconds (avg %s/s)\n",
				phase, humanize.IBytes(processed), elapsed.Seconds(), humanize.IBytes(avg))
			return
		}
	}
}

func eta(total, current, rate uint64) string {
	if rate == 0 || current >= total {
		return "calculating..."
	}
	remaining := time.Duration(float64(total-current) / float64(rate) * float64(time.Second))
	switch {
	case remaining < time.Minute:
		return fmt.Sprintf("%.0f seconds", remaining.Seconds())
	case remaining < time.Hour:
		return fmt.Sprintf("%.1f minutes", remaining.Minutes())
	default:
		return fmt.Sprintf("%.1f hours", remaining.Hours())
	}
}

// Reader is a reader that counts bytes read
type Reader struct {
	R io.Reader
	T *Tracker
}

// Read implements io.Reader and tracks bytes read
func (pr *Reader) Read(p []byte) (n int, err error) {
	n, err = pr.R.Read(p)
	if n > 0 {
		pr.T.AddBytes(uint64(n))
	}
	return
}

// Writer is a writer that counts bytes written
type Writer struct {
	W io.Writer
	T *Tracker
}

// Write implements io.Writer and tracks bytes written
func (pw *Writer) Write(p []byte) (n int, err error) {
	n, err = pw.W.Write(p)
	if err == nil && n > 0 {
		pw.T.AddBytes(uint64(n))
	}
	return
}
