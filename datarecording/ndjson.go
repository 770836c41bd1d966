package datarecording

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/rs/xid"
)

// An NDJSONWriter streams one JSON object per run, newline delimited. It is
// the primary export format: every run of a campaign appends exactly one
// line, so partial campaigns still leave usable output behind.
type NDJSONWriter struct {
	w    io.Writer
	lock sync.Mutex

	closer io.Closer
}

// NewNDJSONWriter creates a writer that appends to w.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{w: w}
}

// NewNDJSONFileWriter creates a writer backed by a fresh file. With an empty
// filename a generated name is used.
func NewNDJSONFileWriter(filename string) (*NDJSONWriter, error) {
	if filename == "" {
		filename = "phoenix_runs_" + xid.New().String() + ".ndjson"
	}

	f, err := os.OpenFile(filename, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	return &NDJSONWriter{w: f, closer: f}, nil
}

// WriteRecord appends one record as a single JSON line.
func (n *NDJSONWriter) WriteRecord(record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	n.lock.Lock()
	defer n.lock.Unlock()

	if _, err := n.w.Write(data); err != nil {
		return err
	}

	_, err = n.w.Write([]byte("\n"))

	return err
}

// Close closes the underlying file, if any.
func (n *NDJSONWriter) Close() error {
	if n.closer == nil {
		return nil
	}

	return n.closer.Close()
}
