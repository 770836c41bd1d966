package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/comsec-group/phoenix-sub000/ctrl"
	"github.com/comsec-group/phoenix-sub000/datarecording"
)

// A RunRecord is the serialized form of one finished run: one NDJSON line.
type RunRecord struct {
	RunID           string         `json:"run_id"`
	RefreshesBefore uint64         `json:"refresh_count_before"`
	RefreshesAfter  uint64         `json:"refresh_count_after"`
	Flipped         []string       `json:"flipped,omitempty"`
	NotFlipped      []int          `json:"not_flipped"`
	FaultCount      int            `json:"fault_count"`
	Params          map[string]any `json:"params,omitempty"`
}

// A RunRow is the flattened form kept in the SQLite sink.
type RunRow struct {
	RunID           string
	RefreshesBefore uint64
	RefreshesAfter  uint64
	Flipped         string
	NotFlipped      string
	FaultCount      int
}

// RunTable is the SQLite table run rows are inserted into.
const RunTable = "runs"

// ExportStage closes a run by serializing the final context. The NDJSON
// writer is required; the SQLite recorder is optional.
type ExportStage struct {
	ndjson   *datarecording.NDJSONWriter
	recorder datarecording.DataRecorder
}

// MakeExportStage creates an export stage. recorder may be nil.
func MakeExportStage(
	ndjson *datarecording.NDJSONWriter,
	recorder datarecording.DataRecorder,
) ExportStage {
	if ndjson == nil {
		panic("export stage needs an NDJSON writer")
	}

	return ExportStage{ndjson: ndjson, recorder: recorder}
}

func (s ExportStage) Name() string {
	return "export"
}

func (s ExportStage) Apply(c Context, _ ctrl.Controller) (Context, error) {
	record := recordOf(c)

	if err := s.ndjson.WriteRecord(record); err != nil {
		return c, fmt.Errorf("exporting run %s: %w", c.RunID, err)
	}

	if s.recorder != nil {
		s.recorder.InsertData(RunTable, rowOf(record))
	}

	return c, nil
}

func recordOf(c Context) RunRecord {
	record := RunRecord{
		RunID:           c.RunID,
		RefreshesBefore: c.RefreshesBefore,
		RefreshesAfter:  c.RefreshesAfter,
		NotFlipped:      c.NotFlipped,
		FaultCount:      len(c.Faults),
		Params:          c.Exports,
	}

	for _, addr := range c.Flipped {
		record.Flipped = append(record.Flipped, addr.String())
	}

	return record
}

func rowOf(record RunRecord) RunRow {
	notFlipped := make([]string, len(record.NotFlipped))
	for i, idx := range record.NotFlipped {
		notFlipped[i] = strconv.Itoa(idx)
	}

	return RunRow{
		RunID:           record.RunID,
		RefreshesBefore: record.RefreshesBefore,
		RefreshesAfter:  record.RefreshesAfter,
		Flipped:         strings.Join(record.Flipped, ";"),
		NotFlipped:      strings.Join(notFlipped, ";"),
		FaultCount:      record.FaultCount,
	}
}
