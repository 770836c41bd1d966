package dram

import "fmt"

// A Location is a fully decoded position within the DMA window.
type Location struct {
	Bank   int
	Row    int
	Column int
}

// Geometry describes the addressable organization of the module under test.
// The bit widths control both the bus-address packing used by the payload
// assembler and the DMA-window offset decoding used by bit-flip localization.
type Geometry struct {
	RankBits int
	BankBits int
	RowBits  int
	ColBits  int

	// WordBytes is the access width of the DMA engine in bytes.
	WordBytes int
}

// MakeGeometry returns the geometry of the default target: a single-rank
// DDR3 module with 8 banks, 32768 rows, and 1024 columns, accessed by a
// 4-byte-word DMA engine.
func MakeGeometry() Geometry {
	return Geometry{
		RankBits:  0,
		BankBits:  3,
		RowBits:   15,
		ColBits:   10,
		WordBytes: 4,
	}
}

// NumBanks returns the number of banks per rank.
func (g Geometry) NumBanks() int {
	return 1 << g.BankBits
}

// NumRows returns the number of rows per bank.
func (g Geometry) NumRows() int {
	return 1 << g.RowBits
}

// NumCols returns the number of columns per row.
func (g Geometry) NumCols() int {
	return 1 << g.ColBits
}

// WordsPerRow returns the number of DMA words that one row spans.
func (g Geometry) WordsPerRow() int {
	return g.NumCols()
}

// RowBytes returns the size of one row in bytes as seen through the DMA
// window.
func (g Geometry) RowBytes() uint64 {
	return uint64(g.NumCols()) * uint64(g.WordBytes)
}

// PackBusAddress packs a (bank, row) pair into the bus-address operand of a
// payload instruction. The layout is row in the low bits, then bank, then
// rank. Rank is always 0: the payload executor drives a single rank.
func (g Geometry) PackBusAddress(bank, row int) (uint32, error) {
	if bank < 0 || bank >= g.NumBanks() {
		return 0, fmt.Errorf("bank %d outside [0, %d)", bank, g.NumBanks())
	}

	if row < 0 || row >= g.NumRows() {
		return 0, fmt.Errorf("row %d outside [0, %d)", row, g.NumRows())
	}

	return uint32(bank)<<g.RowBits | uint32(row), nil
}

// BusAddressBits returns the total number of bits of a packed bus address.
func (g Geometry) BusAddressBits() int {
	return g.RankBits + g.BankBits + g.RowBits
}

// DecodeOffset decodes a byte offset from the DMA-window base into the
// (bank, physical row, column) it touches. The window is laid out column
// first, then bank, then row, in units of DMA words.
func (g Geometry) DecodeOffset(offset uint64) (Location, error) {
	if g.WordBytes <= 0 {
		return Location{}, fmt.Errorf("word width %d is not positive", g.WordBytes)
	}

	if offset%uint64(g.WordBytes) != 0 {
		return Location{}, fmt.Errorf(
			"offset 0x%x is not aligned to the %d-byte DMA word",
			offset, g.WordBytes)
	}

	word := offset / uint64(g.WordBytes)
	loc := Location{
		Column: int(word & uint64(g.NumCols()-1)),
		Bank:   int((word >> g.ColBits) & uint64(g.NumBanks()-1)),
		Row:    int(word >> (g.ColBits + g.BankBits)),
	}

	if loc.Row >= g.NumRows() {
		return Location{}, fmt.Errorf(
			"offset 0x%x decodes to row %d outside [0, %d)",
			offset, loc.Row, g.NumRows())
	}

	return loc, nil
}

// EncodeOffset is the inverse of DecodeOffset: it returns the byte offset of
// the first word of a (bank, physical row) pair within the DMA window.
func (g Geometry) EncodeOffset(bank, row int) uint64 {
	word := uint64(row)<<(g.ColBits+g.BankBits) |
		uint64(bank)<<g.ColBits

	return word * uint64(g.WordBytes)
}
