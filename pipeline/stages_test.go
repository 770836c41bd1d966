package pipeline

import (
	"errors"
	"math/rand"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/comsec-group/phoenix-sub000/analysis"
	"github.com/comsec-group/phoenix-sub000/dram"
)

var _ = ginkgo.Describe("Stages", func() {
	var (
		mockCtrl *gomock.Controller
		hw       *MockController
		geometry dram.Geometry
		identity dram.RowMapping
	)

	ginkgo.BeforeEach(func() {
		mockCtrl = gomock.NewController(ginkgo.GinkgoT())
		hw = NewMockController(mockCtrl)
		geometry = dram.MakeGeometry()
		identity = dram.IdentityMapping()
	})

	ginkgo.AfterEach(func() {
		mockCtrl.Finish()
	})

	ginkgo.Describe("RefreshControlStage", func() {
		ginkgo.It("should disable refresh", func() {
			hw.EXPECT().DisableRefresh().Return(nil)

			_, err := MakeDisableRefreshStage().Apply(NewContext(), hw)

			Expect(err).ToNot(HaveOccurred())
		})

		ginkgo.It("should enable refresh", func() {
			hw.EXPECT().EnableRefresh().Return(nil)

			_, err := MakeEnableRefreshStage().Apply(NewContext(), hw)

			Expect(err).ToNot(HaveOccurred())
		})
	})

	ginkgo.Describe("ReadRefreshCounterStage", func() {
		ginkgo.It("should store the counter in the selected slot", func() {
			hw.EXPECT().RefreshCount().Return(uint64(42), nil)
			hw.EXPECT().RefreshCount().Return(uint64(58), nil)

			c, err := MakeReadRefreshCounterStage(CounterBefore).
				Apply(NewContext(), hw)
			Expect(err).ToNot(HaveOccurred())

			c, err = MakeReadRefreshCounterStage(CounterAfter).Apply(c, hw)
			Expect(err).ToNot(HaveOccurred())

			Expect(c.RefreshesBefore).To(Equal(uint64(42)))
			Expect(c.RefreshesAfter).To(Equal(uint64(58)))
		})
	})

	ginkgo.Describe("AlignRefreshStage", func() {
		alignment := analysis.Alignment{Modulus: 16, Residue: 3}

		ginkgo.It("should issue the distance to the residue", func() {
			gomock.InOrder(
				hw.EXPECT().RefreshCount().Return(uint64(7), nil),
				hw.EXPECT().IssueRefresh(12).Return(nil),
				hw.EXPECT().RefreshCount().Return(uint64(19), nil),
			)

			c, err := MakeAlignRefreshStage(alignment).Apply(NewContext(), hw)

			Expect(err).ToNot(HaveOccurred())
			Expect(c.Exports).To(HaveKeyWithValue("aligned_at", uint64(19)))
		})

		ginkgo.It("should not issue refreshes when already aligned", func() {
			hw.EXPECT().RefreshCount().Return(uint64(19), nil).Times(2)

			c, err := MakeAlignRefreshStage(alignment).Apply(NewContext(), hw)

			Expect(err).ToNot(HaveOccurred())
			Expect(c.Exports).To(HaveKeyWithValue("aligned_at", uint64(19)))
		})

		ginkgo.It("should fail when the counter overshoots the residue", func() {
			gomock.InOrder(
				hw.EXPECT().RefreshCount().Return(uint64(7), nil),
				hw.EXPECT().IssueRefresh(12).Return(nil),
				hw.EXPECT().RefreshCount().Return(uint64(20), nil),
			)

			_, err := MakeAlignRefreshStage(alignment).Apply(NewContext(), hw)

			Expect(err).To(HaveOccurred())
		})
	})

	ginkgo.Describe("WritePatternStage", func() {
		ginkgo.It("should fill every row through the physical mapping", func() {
			mapping, err := dram.MappingForVendor(dram.VendorTypeA)
			Expect(err).ToNot(HaveOccurred())

			rows := []dram.Address{{Bank: 0, Row: 10}, {Bank: 2, Row: 3}}
			words := geometry.WordsPerRow()

			hw.EXPECT().
				MemorySet(geometry.EncodeOffset(0, 11), uint32(0x55555555), words).
				Return(nil)
			hw.EXPECT().
				MemorySet(geometry.EncodeOffset(2, 3), uint32(0x55555555), words).
				Return(nil)

			stage := MakeWritePatternStage(geometry, mapping, rows, 0x55555555)
			_, err = stage.Apply(NewContext(), hw)

			Expect(err).ToNot(HaveOccurred())
		})

		ginkgo.It("should name the failing row", func() {
			rows := []dram.Address{{Bank: 1, Row: 7}}
			hw.EXPECT().
				MemorySet(gomock.Any(), gomock.Any(), gomock.Any()).
				Return(errors.New("dma stall"))

			stage := MakeWritePatternStage(geometry, identity, rows, 0)
			_, err := stage.Apply(NewContext(), hw)

			Expect(err).To(MatchError(ContainSubstring("bank=1,row=7")))
		})
	})

	ginkgo.Describe("RandomRefreshBurstStage", func() {
		ginkgo.It("should issue the configured number of bursts", func() {
			hw.EXPECT().IssueRefresh(1).Return(nil).Times(3)

			rng := rand.New(rand.NewSource(1))
			stage := MakeRandomRefreshBurstStage(3, 1, rng)

			c, err := stage.Apply(NewContext(), hw)

			Expect(err).ToNot(HaveOccurred())
			Expect(c.Exports).To(HaveKeyWithValue("random_refreshes", 3))
		})
	})

	ginkgo.Describe("VerifyPatternStage", func() {
		ginkgo.It("should localize flips and record untouched rows", func() {
			rows := []dram.Address{{Bank: 0, Row: 5}, {Bank: 0, Row: 6}}
			words := geometry.WordsPerRow()
			pattern := uint32(0)
			rowBase := geometry.EncodeOffset(0, 5)

			hw.EXPECT().
				MemoryCompare(rowBase, pattern, words).
				Return([]analysis.ErrorReport{{
					Offset:   rowBase,
					Width:    4,
					Observed: 0x8,
					Expected: 0,
				}}, nil)
			hw.EXPECT().
				MemoryCompare(geometry.EncodeOffset(0, 6), pattern, words).
				Return(nil, nil)

			stage := MakeVerifyPatternStage(
				geometry, identity, rows, pattern, CheckExpectFlips)
			c, err := stage.Apply(NewContext(), hw)

			Expect(err).ToNot(HaveOccurred())
			Expect(c.Flipped).To(Equal([]dram.Address{{Bank: 0, Row: 5}}))
			Expect(c.NotFlipped).To(Equal([]int{1}))
			Expect(c.Faults).To(Equal([]analysis.Fault{
				{Bank: 0, Row: 5, Bit: 3},
			}))
		})

		ginkgo.It("should not record untouched rows when only collecting", func() {
			rows := []dram.Address{{Bank: 0, Row: 5}}
			hw.EXPECT().
				MemoryCompare(gomock.Any(), gomock.Any(), gomock.Any()).
				Return(nil, nil)

			stage := MakeVerifyPatternStage(
				geometry, identity, rows, 0, CheckCollectFlips)
			c, err := stage.Apply(NewContext(), hw)

			Expect(err).ToNot(HaveOccurred())
			Expect(c.Flipped).To(BeEmpty())
			Expect(c.NotFlipped).To(BeEmpty())
		})
	})

	ginkgo.Describe("WaitStage", func() {
		ginkgo.It("should sleep for the configured duration", func() {
			stage := MakeWaitStage(0)

			c, err := stage.Apply(NewContext(), hw)

			Expect(err).ToNot(HaveOccurred())
			Expect(c.Version).To(BeZero())
		})
	})
})
