// Package ctrl defines the capability interface of the memory-controller
// hardware that experiments drive. The transport behind it (remote register
// files, DMA engines) lives outside this module; the pipeline treats the
// interface as an opaque collaborator and propagates its failures unchanged.
package ctrl

import "github.com/comsec-group/phoenix-sub000/analysis"

// A Controller is the handle to one memory controller. All calls block until
// the hardware has completed the operation. A controller must not be driven
// by more than one pipeline at a time; callers construct one handle and
// inject it into every run.
type Controller interface {
	// EnableRefresh turns automatic refresh back on.
	EnableRefresh() error

	// DisableRefresh suspends automatic refresh.
	DisableRefresh() error

	// RefreshCount reads the monotonically increasing refresh counter.
	RefreshCount() (uint64, error)

	// IssueRefresh issues a burst of n refresh commands.
	IssueRefresh(n int) error

	// MemorySet fills words consecutive DMA words starting at the given
	// byte offset with the pattern.
	MemorySet(offset uint64, pattern uint32, words int) error

	// MemoryCompare checks words consecutive DMA words against the pattern
	// and returns one report per mismatching word.
	MemoryCompare(offset uint64, pattern uint32, words int) ([]analysis.ErrorReport, error)

	// UploadPayload loads an encoded program into the payload memory.
	UploadPayload(data []byte) error

	// ExecutePayload replays the uploaded program and blocks until the
	// executor stops.
	ExecutePayload() error
}
