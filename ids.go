package reverie

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator hands out string identifiers for scenes and content nodes.
// Every action must be individually addressable for save and rollback, so
// identifiers must never repeat within a process.
type IDGenerator interface {
	NextID() string
}

// CounterIDs is a deterministic IDGenerator producing "<prefix><n>" with n
// starting at 1. Intended for tests and for reproducible save files.
type CounterIDs struct {
	Prefix string
	n      atomic.Uint64
}

// NewCounterIDs returns a counter generator using prefix.
func NewCounterIDs(prefix string) *CounterIDs {
	return &CounterIDs{Prefix: prefix}
}

// NextID returns the next id in sequence.
func (c *CounterIDs) NextID() string {
	return c.Prefix + strconv.FormatUint(c.n.Add(1), 10)
}

// UUIDs generates random version 4 UUID strings.
type UUIDs struct{}

// NextID returns a fresh UUID.
func (UUIDs) NextID() string {
	return uuid.NewString()
}

// DefaultIDs is used by constructors that are not given a generator.
var DefaultIDs IDGenerator = UUIDs{}

func idsOrDefault(ids IDGenerator) IDGenerator {
	if ids == nil {
		return DefaultIDs
	}
	return ids
}
