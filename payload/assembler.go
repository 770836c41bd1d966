package payload

import (
	"fmt"

	"github.com/comsec-group/phoenix-sub000/dram"
	"github.com/comsec-group/phoenix-sub000/resolve"
)

// A CapacityError reports a program that does not fit the instruction
// memory.
type CapacityError struct {
	RequiredBytes  int
	AvailableBytes int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf(
		"program requires %d bytes of instruction memory, %d available (%d over)",
		e.RequiredBytes, e.AvailableBytes, e.RequiredBytes-e.AvailableBytes)
}

// An Assembler linearizes resolved operations into an instruction stream.
// Assemblers are stateless values; one can serve any number of programs.
// Rows arrive logical and leave the assembler physical: the vendor row
// mapping is applied when the bus address is packed.
type Assembler struct {
	geometry      dram.Geometry
	timings       dram.Timings
	mapping       dram.RowMapping
	capacityBytes int
}

// A Builder can build assemblers.
type Builder struct {
	geometry      dram.Geometry
	timings       dram.Timings
	mapping       dram.RowMapping
	capacityBytes int
}

// MakeBuilder creates a builder with the default geometry, timing set, an
// identity row mapping, and a 1 KiB instruction memory.
func MakeBuilder() Builder {
	return Builder{
		geometry:      dram.MakeGeometry(),
		timings:       dram.MakeTimings(),
		mapping:       dram.IdentityMapping(),
		capacityBytes: 1024,
	}
}

// WithGeometry sets the geometry used to pack bus addresses.
func (b Builder) WithGeometry(g dram.Geometry) Builder {
	b.geometry = g
	return b
}

// WithTimings sets the timing parameters the timeslices derive from.
func (b Builder) WithTimings(t dram.Timings) Builder {
	b.timings = t
	return b
}

// WithRowMapping sets the vendor row mapping applied to act rows.
func (b Builder) WithRowMapping(m dram.RowMapping) Builder {
	b.mapping = m
	return b
}

// WithCapacity sets the size of the instruction memory in bytes.
func (b Builder) WithCapacity(bytes int) Builder {
	b.capacityBytes = bytes
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.capacityBytes < InstructionBytes {
		panic("instruction memory cannot hold a single instruction")
	}

	if b.geometry.BusAddressBits() > addressBits {
		panic(fmt.Sprintf(
			"geometry needs %d address bits, the instruction word carries %d",
			b.geometry.BusAddressBits(), addressBits))
	}
}

// Build builds an assembler.
func (b Builder) Build() Assembler {
	b.parametersMustBeValid()

	return Assembler{
		geometry:      b.geometry,
		timings:       b.timings,
		mapping:       b.mapping,
		capacityBytes: b.capacityBytes,
	}
}

// Assemble encodes the operation sequence and closes it with a stop
// instruction. It fails with a *CapacityError if the encoded program is
// larger than the instruction memory.
func (a Assembler) Assemble(ops []resolve.Op) (Program, error) {
	insts, err := a.encodeBlock(ops, false)
	if err != nil {
		return Program{}, err
	}

	insts = append(insts, StopInstruction)

	prog := Program{Instructions: insts}
	if prog.SizeBytes() > a.capacityBytes {
		return Program{}, &CapacityError{
			RequiredBytes:  prog.SizeBytes(),
			AvailableBytes: a.capacityBytes,
		}
	}

	return prog, nil
}

func (a Assembler) encodeBlock(ops []resolve.Op, inLoop bool) ([]Instruction, error) {
	var insts []Instruction

	for _, op := range ops {
		switch op.Kind {
		case resolve.OpAct:
			address, err := a.geometry.PackBusAddress(
				op.Bank, a.mapping.LogicalToPhysical(op.Row))
			if err != nil {
				return nil, fmt.Errorf("act: %w", err)
			}

			inst, err := NewCommandInstruction(
				OpcodeAct, a.timings.TRAS, address)
			if err != nil {
				return nil, err
			}
			insts = append(insts, inst)

		case resolve.OpPre:
			inst, err := NewCommandInstruction(OpcodePre, a.timings.TRP, 0)
			if err != nil {
				return nil, err
			}
			insts = append(insts, inst)

		case resolve.OpRef:
			inst, err := NewCommandInstruction(OpcodeRef, a.timings.TRFC, 0)
			if err != nil {
				return nil, err
			}
			insts = append(insts, inst)

		case resolve.OpNop:
			encoded, err := a.encodeNop(op.Cycles)
			if err != nil {
				return nil, err
			}
			insts = append(insts, encoded...)

		case resolve.OpLoop:
			if inLoop {
				return nil, fmt.Errorf(
					"the payload executor cannot nest hardware loops")
			}

			body, err := a.encodeBlock(op.Body, true)
			if err != nil {
				return nil, err
			}

			// One repetition is free: the body falls through once before the
			// jump is taken.
			loop, err := NewLoopInstruction(op.Count, len(body))
			if err != nil {
				return nil, err
			}

			insts = append(insts, body...)
			insts = append(insts, loop)

		default:
			return nil, fmt.Errorf("unknown operation kind %v", op.Kind)
		}
	}

	return insts, nil
}

// encodeNop splits an idle period that exceeds the timeslice field across
// several NOOP instructions.
func (a Assembler) encodeNop(cycles int) ([]Instruction, error) {
	if cycles < 1 {
		return nil, fmt.Errorf("nop cycle count %d must be positive", cycles)
	}

	var insts []Instruction
	for cycles > 0 {
		slice := cycles
		if slice > maxTimeslice {
			slice = maxTimeslice
		}

		inst, err := NewCommandInstruction(OpcodeNoop, slice, 0)
		if err != nil {
			return nil, err
		}

		insts = append(insts, inst)
		cycles -= slice
	}

	return insts, nil
}
