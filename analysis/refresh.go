// Package analysis holds the pure arithmetic of the experiment core:
// refresh-counter phase alignment and the translation of raw DMA error
// reports into DRAM fault coordinates.
package analysis

import "fmt"

// An Alignment describes a desired refresh-counter phase: the counter must
// satisfy counter mod Modulus == Residue before an experiment proceeds.
type Alignment struct {
	Modulus uint64
	Residue uint64
}

// Validate checks that the alignment is satisfiable at all.
func (a Alignment) Validate() error {
	if a.Modulus == 0 {
		return fmt.Errorf("alignment modulus must be positive")
	}

	if a.Residue >= a.Modulus {
		return fmt.Errorf("alignment residue %d outside [0, %d)",
			a.Residue, a.Modulus)
	}

	return nil
}

// Distance returns the number of extra refresh commands needed to move the
// counter forward to the next value with the desired residue. A counter that
// is already aligned needs zero.
func (a Alignment) Distance(counter uint64) (uint64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}

	return (a.Residue + a.Modulus - counter%a.Modulus) % a.Modulus, nil
}

// Check verifies that the counter reached the desired phase. The counter
// only ever moves forward, so overshooting the first achievable target is an
// alignment failure, not something to wait out.
func (a Alignment) Check(counter uint64) error {
	if err := a.Validate(); err != nil {
		return err
	}

	if counter%a.Modulus != a.Residue {
		return fmt.Errorf(
			"refresh counter %d is at residue %d, want %d (mod %d)",
			counter, counter%a.Modulus, a.Residue, a.Modulus)
	}

	return nil
}
