package resolve_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/comsec-group/phoenix-sub000/dram"
	"github.com/comsec-group/phoenix-sub000/dsl"
	"github.com/comsec-group/phoenix-sub000/resolve"
)

func mustParse(src string) []dsl.Command {
	prog, err := dsl.Parse(src)
	Expect(err).ToNot(HaveOccurred())
	return prog
}

var _ = Describe("Resolver", func() {
	It("should unroll nested for blocks against the address array", func() {
		prog := mustParse(`
for i in range(0, 2):
    for k in range(i * 2, (i + 1) * 2):
        act(bank=addresses[k].bank, row=addresses[k].row + 10)
        pre()
`)
		lookup := dsl.AddressLookup{
			"addresses": {
				{Bank: 0, Row: 0},
				{Bank: 0, Row: 1},
				{Bank: 1, Row: 10},
				{Bank: 1, Row: 11},
			},
		}

		ops, err := resolve.Resolve(prog, lookup)

		Expect(err).ToNot(HaveOccurred())
		Expect(ops).To(Equal([]resolve.Op{
			{Kind: resolve.OpAct, Bank: 0, Row: 10},
			{Kind: resolve.OpPre},
			{Kind: resolve.OpAct, Bank: 0, Row: 11},
			{Kind: resolve.OpPre},
			{Kind: resolve.OpAct, Bank: 1, Row: 20},
			{Kind: resolve.OpPre},
			{Kind: resolve.OpAct, Bank: 1, Row: 21},
			{Kind: resolve.OpPre},
		}))
	})

	It("should unroll large ranges completely", func() {
		prog := mustParse(`
for i in range(10):
    for k in range(i * 59, (i + 1) * 59):
        act(bank=addresses[k].bank, row=addresses[k].row)
        pre()
`)
		addrs := make([]dram.Address, 590)
		for i := range addrs {
			addrs[i] = dram.Address{Bank: i % 8, Row: 999 + i}
		}

		ops, err := resolve.Resolve(prog, dsl.AddressLookup{"addresses": addrs})

		Expect(err).ToNot(HaveOccurred())
		Expect(ops).To(HaveLen(1180))
		Expect(ops[0].Kind).To(Equal(resolve.OpAct))
		Expect(ops[0].Row).To(Equal(999))
		// The 59th act of the first block is op index 116.
		Expect(ops[116].Kind).To(Equal(resolve.OpAct))
		Expect(ops[116].Row).To(Equal(1057))
	})

	It("should be deterministic over repeated resolutions", func() {
		prog := mustParse(`
for i in range(0, 3):
    act(bank=addresses[i].bank, row=addresses[i].row)
    for _ in range(4):
        nop(cycles=2)
`)
		lookup := dsl.AddressLookup{
			"addresses": {
				{Bank: 0, Row: 5},
				{Bank: 1, Row: 6},
				{Bank: 2, Row: 7},
			},
		}

		first, err := resolve.Resolve(prog, lookup)
		Expect(err).ToNot(HaveOccurred())

		second, err := resolve.Resolve(prog, lookup)
		Expect(err).ToNot(HaveOccurred())

		Expect(second).To(Equal(first))
	})

	It("should keep loop wrappers instead of unrolling them", func() {
		prog := mustParse(`
for i in range(0, 2):
    for _ in range(100):
        act(bank=addresses[i].bank, row=addresses[i].row)
        pre()
`)
		lookup := dsl.AddressLookup{
			"addresses": {
				{Bank: 3, Row: 30},
				{Bank: 4, Row: 40},
			},
		}

		ops, err := resolve.Resolve(prog, lookup)

		Expect(err).ToNot(HaveOccurred())
		Expect(ops).To(HaveLen(2))

		for i, op := range ops {
			Expect(op.Kind).To(Equal(resolve.OpLoop))
			Expect(op.Count).To(Equal(100))
			Expect(op.Body).To(HaveLen(2))
			Expect(op.Body[0].Bank).To(Equal(lookup["addresses"][i].Bank))
			Expect(op.Body[0].Row).To(Equal(lookup["addresses"][i].Row))
		}
	})

	It("should evaluate a loop count given as an expression of the outer variable", func() {
		prog := mustParse(`
for i in range(1, 3):
    for _ in range(i * 10):
        ref()
`)
		ops, err := resolve.Resolve(prog, dsl.AddressLookup{})

		Expect(err).ToNot(HaveOccurred())
		Expect(ops).To(HaveLen(2))
		Expect(ops[0].Count).To(Equal(10))
		Expect(ops[1].Count).To(Equal(20))
	})

	It("should produce no operations for an empty range", func() {
		prog := mustParse(`
for i in range(3, 3):
    pre()
`)
		ops, err := resolve.Resolve(prog, dsl.AddressLookup{})

		Expect(err).ToNot(HaveOccurred())
		Expect(ops).To(BeEmpty())
	})

	Describe("failure modes", func() {
		It("should reject an out-of-range array index", func() {
			prog := mustParse(`
for i in range(0, 5):
    act(bank=addresses[i].bank, row=addresses[i].row)
`)
			lookup := dsl.AddressLookup{
				"addresses": {{Bank: 0, Row: 0}},
			}

			_, err := resolve.Resolve(prog, lookup)

			Expect(err).To(MatchError(ContainSubstring("outside")))
		})

		It("should reject an unbound variable", func() {
			prog := mustParse("act(bank=0, row=j)\n")

			_, err := resolve.Resolve(prog, dsl.AddressLookup{})

			Expect(err).To(MatchError(ContainSubstring("unbound variable")))
		})

		It("should reject shadowing an outer loop variable", func() {
			prog := mustParse(`
for i in range(0, 2):
    for i in range(0, 2):
        pre()
`)
			_, err := resolve.Resolve(prog, dsl.AddressLookup{})

			Expect(err).To(MatchError(ContainSubstring("already bound")))
		})

		It("should reject a non-positive loop count", func() {
			prog := mustParse(`
for i in range(0, 1):
    for _ in range(i):
        pre()
`)
			_, err := resolve.Resolve(prog, dsl.AddressLookup{})

			Expect(err).To(MatchError(ContainSubstring("at least 1")))
		})
	})
})
