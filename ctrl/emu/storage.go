package emu

import "fmt"

// rowStore keeps the emulated DRAM content. It allocates lazily in
// fixed-size units so that sweeps over a large address space only pay for
// the rows they touch. Unallocated memory reads back as zero.
type rowStore struct {
	unitSize uint64
	capacity uint64
	units    map[uint64][]byte
}

func newRowStore(capacity uint64) *rowStore {
	return &rowStore{
		unitSize: 4096,
		capacity: capacity,
		units:    make(map[uint64][]byte),
	}
}

func (s *rowStore) unitFor(addr uint64, allocate bool) ([]byte, uint64, error) {
	if addr >= s.capacity {
		return nil, 0, fmt.Errorf(
			"address 0x%x beyond the 0x%x-byte window", addr, s.capacity)
	}

	inUnit := addr % s.unitSize
	base := addr - inUnit

	unit, ok := s.units[base]
	if !ok && allocate {
		unit = make([]byte, s.unitSize)
		s.units[base] = unit
	}

	return unit, inUnit, nil
}

func (s *rowStore) write(addr uint64, data []byte) error {
	for len(data) > 0 {
		unit, inUnit, err := s.unitFor(addr, true)
		if err != nil {
			return err
		}

		n := copy(unit[inUnit:], data)
		data = data[n:]
		addr += uint64(n)
	}

	return nil
}

func (s *rowStore) read(addr uint64, length uint64) ([]byte, error) {
	out := make([]byte, length)

	for filled := uint64(0); filled < length; {
		unit, inUnit, err := s.unitFor(addr+filled, false)
		if err != nil {
			return nil, err
		}

		span := s.unitSize - inUnit
		if remaining := length - filled; span > remaining {
			span = remaining
		}

		// A nil unit was never written; out is already zero there.
		if unit != nil {
			copy(out[filled:filled+span], unit[inUnit:inUnit+span])
		}

		filled += span
	}

	return out, nil
}
