package analysis

import (
	"fmt"
	"math/bits"

	"github.com/comsec-group/phoenix-sub000/dram"
)

// An ErrorReport is one mismatching word found by the DMA compare engine:
// where it sits relative to the window base, how wide the word is, and what
// was read versus what was written.
type ErrorReport struct {
	// Offset is the byte offset of the word from the DMA-window base.
	Offset uint64

	// Width is the word width in bytes.
	Width int

	Observed uint64
	Expected uint64
}

// A Fault pins one flipped cell to DRAM coordinates. Row is the logical row
// index, already translated back through the vendor row mapping.
type Fault struct {
	Bank int
	Row  int

	// Bit is the bit index within the row: column times word width plus the
	// position of the differing bit within the word.
	Bit int
}

// A Localizer translates DMA error reports into fault records.
type Localizer struct {
	geometry dram.Geometry
	mapping  dram.RowMapping
}

// NewLocalizer returns a localizer for the given geometry and vendor
// mapping.
func NewLocalizer(g dram.Geometry, m dram.RowMapping) Localizer {
	return Localizer{geometry: g, mapping: m}
}

// Localize emits one fault record per differing bit of the report. A report
// whose observed and expected values agree yields no faults.
func (l Localizer) Localize(report ErrorReport) ([]Fault, error) {
	if report.Width < 1 || report.Width > 8 {
		return nil, fmt.Errorf("unsupported DMA word width %d", report.Width)
	}

	if report.Width != l.geometry.WordBytes {
		return nil, fmt.Errorf(
			"report word width %d does not match the %d-byte DMA window",
			report.Width, l.geometry.WordBytes)
	}

	loc, err := l.geometry.DecodeOffset(report.Offset)
	if err != nil {
		return nil, err
	}

	logicalRow := l.mapping.PhysicalToLogical(loc.Row)
	baseBit := loc.Column * report.Width * 8

	diff := report.Observed ^ report.Expected
	faults := make([]Fault, 0, bits.OnesCount64(diff))
	for diff != 0 {
		bit := bits.TrailingZeros64(diff)
		diff &= diff - 1

		faults = append(faults, Fault{
			Bank: loc.Bank,
			Row:  logicalRow,
			Bit:  baseBit + bit,
		})
	}

	return faults, nil
}

// LocalizeAll flattens the faults of a whole compare run.
func (l Localizer) LocalizeAll(reports []ErrorReport) ([]Fault, error) {
	var faults []Fault
	for _, report := range reports {
		found, err := l.Localize(report)
		if err != nil {
			return nil, err
		}
		faults = append(faults, found...)
	}

	return faults, nil
}
