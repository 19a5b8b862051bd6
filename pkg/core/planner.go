package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// UnboundedChunkSize is the limit used when no chunk size is configured
const UnboundedChunkSize int64 = math.MaxInt64

// ParseChunkSize converts a user supplied size to bytes. Bare numbers are
// megabytes; a unit suffix goes through humanize ("60MB", "1.5GiB").
// Empty and zero mean unbounded and return 0. Any positive size is at
// least one byte.
func ParseChunkSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	num, unit := splitSize(s)
	value, err := strconv.ParseFloat(strings.ReplaceAll(num, ",", ""), 64)
	if err != nil || value < 0 || math.IsInf(value, 0) {
		return 0, errors.Wrapf(ErrInvalidChunkSize, "%q", s)
	}
	multiplier := uint64(humanize.MByte)
	if unit != "" {
		if multiplier, err = humanize.ParseBytes("1" + unit); err != nil {
			return 0, errors.Wrapf(ErrInvalidChunkSize, "%q", s)
		}
	}

	bytes := math.Round(value * float64(multiplier))
	switch {
	case bytes >= float64(UnboundedChunkSize):
		return UnboundedChunkSize, nil
	case bytes < 1 && value > 0:
		return 1, nil
	}
	return int64(bytes), nil
}

// splitSize separates the numeric prefix of s from its unit
func splitSize(s string) (num, unit string) {
	i := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.' && r != ','
	})
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

// Planner assigns files to chunks using a global compression ratio. A chunk
// rolls over when the next file's estimated compressed size would push the
// running estimate past the limit. A chunk always holds at least one file,
// so a file larger than the limit gets a chunk of its own.
type Planner struct {
	ratio float64
	limit float64

	index       int
	accumulated float64
	members     int
}

// NewPlanner creates a planner positioned at chunk 0. A limit of zero or
// less means unbounded.
func NewPlanner(ratio float64, limit int64) *Planner {
	if limit <= 0 {
		limit = UnboundedChunkSize
	}
	return &Planner{ratio: ratio, limit: float64(limit)}
}

// Estimate returns the predicted compressed size of a file of size bytes
func (p *Planner) Estimate(size int64) float64 {
	return float64(size) * p.ratio
}

// Place assigns a file of size bytes and returns its chunk index. rollover
// is true when the file opened a new chunk.
func (p *Planner) Place(size int64) (index int, rollover bool) {
	est := p.Estimate(size)
	if p.members > 0 && p.accumulated+est > p.limit {
		p.index++
		p.accumulated = 0
		p.members = 0
		rollover = true
	}
	p.accumulated += est
	p.members++
	return p.index, rollover
}

// Index returns the current chunk index
func (p *Planner) Index() int { return p.index }

// Accumulated returns the estimated compressed size of the current chunk
func (p *Planner) Accumulated() float64 { return p.accumulated }

// PlannedChunk is one chunk of a plan computed without writing anything
type PlannedChunk struct {
	Index             int
	Entries           []FileEntry
	UncompressedBytes int64
	EstimatedBytes    float64
}

// PlanChunks runs the planner over entries in order
func PlanChunks(entries []FileEntry, ratio float64, limit int64) []PlannedChunk {
	p := NewPlanner(ratio, limit)
	chunks := []PlannedChunk{{Index: 0}}
	for _, e := range entries {
		idx, rollover := p.Place(e.Size)
		if rollover {
			chunks = append(chunks, PlannedChunk{Index: idx})
		}
		c := &chunks[len(chunks)-1]
		c.Entries = append(c.Entries, e)
		c.UncompressedBytes += e.Size
		c.EstimatedBytes = p.Accumulated()
	}
	return chunks
}
