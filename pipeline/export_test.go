package pipeline

import (
	"bytes"
	"encoding/json"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/comsec-group/phoenix-sub000/analysis"
	"github.com/comsec-group/phoenix-sub000/datarecording"
	"github.com/comsec-group/phoenix-sub000/dram"
)

type fakeRecorder struct {
	tables  map[string][]any
	flushed bool
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{tables: make(map[string][]any)}
}

func (r *fakeRecorder) CreateTable(tableName string, _ any) {
	r.tables[tableName] = nil
}

func (r *fakeRecorder) InsertData(tableName string, entry any) {
	r.tables[tableName] = append(r.tables[tableName], entry)
}

func (r *fakeRecorder) ListTables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	return names
}

func (r *fakeRecorder) Flush() {
	r.flushed = true
}

var _ = ginkgo.Describe("ExportStage", func() {
	var (
		buf      *bytes.Buffer
		writer   *datarecording.NDJSONWriter
		recorder *fakeRecorder
		c        Context
	)

	ginkgo.BeforeEach(func() {
		buf = &bytes.Buffer{}
		writer = datarecording.NewNDJSONWriter(buf)
		recorder = newFakeRecorder()

		c = NewContext().Export("hammer_count", 5000)
		c.RefreshesBefore = 100
		c.RefreshesAfter = 103
		c.Flipped = []dram.Address{{Bank: 0, Row: 11}}
		c.Faults = []analysis.Fault{
			{Bank: 0, Row: 11, Bit: 3},
			{Bank: 0, Row: 11, Bit: 7},
		}
	})

	ginkgo.It("should write one NDJSON line per run", func() {
		stage := MakeExportStage(writer, nil)

		_, err := stage.Apply(c, nil)
		Expect(err).ToNot(HaveOccurred())

		var record RunRecord
		Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
		Expect(record.RunID).To(Equal(c.RunID))
		Expect(record.RefreshesBefore).To(Equal(uint64(100)))
		Expect(record.RefreshesAfter).To(Equal(uint64(103)))
		Expect(record.Flipped).To(Equal([]string{"bank=0,row=11"}))
		Expect(record.FaultCount).To(Equal(2))
		Expect(record.Params).To(HaveKeyWithValue(
			"hammer_count", float64(5000)))
	})

	ginkgo.It("should also insert a flattened row into the recorder", func() {
		stage := MakeExportStage(writer, recorder)

		_, err := stage.Apply(c, nil)
		Expect(err).ToNot(HaveOccurred())

		Expect(recorder.tables[RunTable]).To(HaveLen(1))
		row := recorder.tables[RunTable][0].(RunRow)
		Expect(row.RunID).To(Equal(c.RunID))
		Expect(row.Flipped).To(Equal("bank=0,row=11"))
		Expect(row.FaultCount).To(Equal(2))
	})

	ginkgo.It("should panic without an NDJSON writer", func() {
		Expect(func() {
			MakeExportStage(nil, recorder)
		}).To(Panic())
	})
})
