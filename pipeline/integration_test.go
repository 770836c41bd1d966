package pipeline

import (
	"bytes"
	"encoding/json"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/comsec-group/phoenix-sub000/analysis"
	"github.com/comsec-group/phoenix-sub000/ctrl/emu"
	"github.com/comsec-group/phoenix-sub000/datarecording"
	"github.com/comsec-group/phoenix-sub000/dram"
	"github.com/comsec-group/phoenix-sub000/dsl"
	"github.com/comsec-group/phoenix-sub000/payload"
	"github.com/comsec-group/phoenix-sub000/resolve"
)

// A double-sided hammer program: the two aggressors surround the victim row.
const hammerSource = `for _ in range(600):
    act(bank=addresses[0].bank, row=addresses[0].row)
    act(bank=addresses[1].bank, row=addresses[1].row)
    pre()
`

var _ = ginkgo.Describe("Pipeline against the emulated controller", func() {
	var (
		geometry dram.Geometry
		identity dram.RowMapping
		victim   dram.Address
		hw       *emu.Controller
		program  payload.Program
		buf      *bytes.Buffer
	)

	ginkgo.BeforeEach(func() {
		geometry = dram.MakeGeometry()
		identity = dram.IdentityMapping()
		victim = dram.Address{Bank: 0, Row: 11}

		hw = emu.MakeBuilder().
			WithGeometry(geometry).
			WithBitFlip(victim, 3).
			WithFlipThreshold(1000).
			Build()

		commands, err := dsl.Parse(hammerSource)
		Expect(err).ToNot(HaveOccurred())

		ops, err := resolve.Resolve(commands, dsl.AddressLookup{
			"addresses": {
				{Bank: 0, Row: 10},
				{Bank: 0, Row: 12},
			},
		})
		Expect(err).ToNot(HaveOccurred())

		program, err = payload.MakeBuilder().
			WithGeometry(geometry).
			WithTimings(dram.MakeTimings()).
			Build().
			Assemble(ops)
		Expect(err).ToNot(HaveOccurred())

		buf = &bytes.Buffer{}
	})

	ginkgo.It("should hammer, localize the flip, and export the run", func() {
		pipeline := MakeBuilder().
			WithStages(
				MakeResetStage(),
				MakeDisableRefreshStage(),
				MakeReadRefreshCounterStage(CounterBefore),
				MakeAlignRefreshStage(analysis.Alignment{Modulus: 16, Residue: 3}),
				MakeWritePatternStage(geometry, identity, []dram.Address{victim}, 0),
				MakeExecutePayloadStage(program),
				MakeReadRefreshCounterStage(CounterAfter),
				MakeEnableRefreshStage(),
				MakeVerifyPatternStage(
					geometry, identity, []dram.Address{victim}, 0, CheckCollectFlips),
				MakeExportStage(datarecording.NewNDJSONWriter(buf), nil),
			).
			Build("DoubleSided")

		c, err := pipeline.Run(hw)

		Expect(err).ToNot(HaveOccurred())
		Expect(c.RefreshesBefore).To(Equal(uint64(0)))
		Expect(c.RefreshesAfter).To(Equal(uint64(3)))
		Expect(c.Flipped).To(Equal([]dram.Address{victim}))
		Expect(c.Faults).To(Equal([]analysis.Fault{
			{Bank: 0, Row: 11, Bit: 3},
		}))

		Expect(hw.Activations(0, 10)).To(Equal(600))
		Expect(hw.Activations(0, 12)).To(Equal(600))
		Expect(hw.RefreshEnabled()).To(BeTrue())

		var record RunRecord
		Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
		Expect(record.RunID).To(Equal(c.RunID))
		Expect(record.Flipped).To(Equal([]string{"bank=0,row=11"}))
		Expect(record.FaultCount).To(Equal(1))
		Expect(record.Params).To(HaveKeyWithValue("aligned_at", float64(3)))
	})

	ginkgo.It("should not report flips below the activation threshold", func() {
		cold := emu.MakeBuilder().
			WithGeometry(geometry).
			WithBitFlip(victim, 3).
			WithFlipThreshold(5000).
			Build()

		pipeline := MakeBuilder().
			WithStages(
				MakeResetStage(),
				MakeWritePatternStage(geometry, identity, []dram.Address{victim}, 0),
				MakeExecutePayloadStage(program),
				MakeVerifyPatternStage(
					geometry, identity, []dram.Address{victim}, 0, CheckExpectFlips),
			).
			Build("Cold")

		c, err := pipeline.Run(cold)

		Expect(err).ToNot(HaveOccurred())
		Expect(c.Flipped).To(BeEmpty())
		Expect(c.NotFlipped).To(Equal([]int{0}))
	})
})
