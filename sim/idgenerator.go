package sim

import (
	"strconv"
	"sync/atomic"

	"github.com/rs/xid"
)

// An IDGenerator hands out the IDs of PCBs, magazines and monitor handles.
type IDGenerator interface {
	Generate() string
}

// NewSequentialIDGenerator counts from "1". A line owns one, so repeated runs
// of the same configuration produce the same IDs.
func NewSequentialIDGenerator() IDGenerator {
	return &counter{}
}

// NewUniqueIDGenerator returns IDs that differ across runs and processes,
// each starting with prefix. It names output files that must not collide.
func NewUniqueIDGenerator(prefix string) IDGenerator {
	return uniqueIDs(prefix)
}

// The monitor generates IDs from its HTTP handlers, so the counter is
// atomic.
type counter struct {
	last atomic.Uint64
}

func (c *counter) Generate() string {
	return strconv.FormatUint(c.last.Add(1), 10)
}

type uniqueIDs string

func (p uniqueIDs) Generate() string {
	return string(p) + xid.New().String()
}
