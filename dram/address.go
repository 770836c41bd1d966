// Package dram describes the DRAM address space as seen by the experiment
// core: (bank, row) addresses, the geometry of the module under test, the
// timing parameters that the payload assembler needs, and the vendor-specific
// logical-to-physical row mappings.
package dram

import "fmt"

// An Address identifies one row of one bank. Addresses are immutable values
// and can be used as map keys.
type Address struct {
	Bank int
	Row  int
}

func (a Address) String() string {
	return fmt.Sprintf("bank=%d,row=%d", a.Bank, a.Row)
}

// RowRange returns the addresses of count consecutive rows of one bank,
// starting at firstRow.
func RowRange(bank, firstRow, count int) []Address {
	addrs := make([]Address, count)
	for i := 0; i < count; i++ {
		addrs[i] = Address{Bank: bank, Row: firstRow + i}
	}

	return addrs
}
