package pipeline

import (
	"github.com/rs/xid"

	"github.com/comsec-group/phoenix-sub000/analysis"
	"github.com/comsec-group/phoenix-sub000/dram"
)

// A Context carries the state of one run between stages. Each stage receives
// the context by value and returns the extended version; the pipeline bumps
// Version after every stage so records can tell how far a run progressed.
type Context struct {
	RunID   string
	Version int

	// RefreshesBefore and RefreshesAfter are the refresh-counter values
	// read around the payload execution.
	RefreshesBefore uint64
	RefreshesAfter  uint64

	// Flipped collects the addresses whose content differed from the
	// written pattern.
	Flipped []dram.Address

	// NotFlipped collects indices into the checked row set that were
	// expected to flip but did not.
	NotFlipped []int

	// Faults holds the per-bit fault records of this run.
	Faults []analysis.Fault

	// Exports carries named fields for the run record, e.g. the sweep
	// parameters of the enclosing campaign.
	Exports map[string]any
}

// NewContext creates an empty context with a fresh run ID.
func NewContext() Context {
	return Context{
		RunID:   xid.New().String(),
		Exports: make(map[string]any),
	}
}

// Export returns a copy of the context with one more named export field.
func (c Context) Export(key string, value any) Context {
	exports := make(map[string]any, len(c.Exports)+1)
	for k, v := range c.Exports {
		exports[k] = v
	}
	exports[key] = value
	c.Exports = exports

	return c
}
