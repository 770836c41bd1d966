package dram

// Timings holds the DRAM timing parameters that the payload assembler turns
// into per-instruction idle cycles. All values are in cycles of the
// controller clock.
type Timings struct {
	// TRAS is the minimum time between activating a row and precharging it.
	TRAS int

	// TRP is the row precharge time.
	TRP int

	// TRFC is the refresh cycle time of one refresh command.
	TRFC int

	// TREFI is the average refresh interval.
	TREFI int
}

// MakeTimings returns the timing set of the default DDR3-1600 target.
func MakeTimings() Timings {
	return Timings{
		TRAS:  28,
		TRP:   11,
		TRFC:  208,
		TREFI: 6240,
	}
}
