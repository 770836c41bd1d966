// Package payload assembles resolved operation sequences into the
// fixed-width micro-program that the hardware payload executor replays
// against the DRAM command bus.
package payload

import (
	"encoding/binary"
	"fmt"
)

// Opcode identifies the hardware micro-op of one instruction.
type Opcode uint32

// The closed opcode space of the payload executor.
const (
	OpcodeNoop Opcode = 0
	OpcodeAct  Opcode = 1
	OpcodePre  Opcode = 2
	OpcodeRef  Opcode = 3
	OpcodeLoop Opcode = 4
)

func (o Opcode) String() string {
	switch o {
	case OpcodeNoop:
		return "NOOP"
	case OpcodeAct:
		return "ACT"
	case OpcodePre:
		return "PRE"
	case OpcodeRef:
		return "REF"
	case OpcodeLoop:
		return "LOOP"
	default:
		return fmt.Sprintf("Opcode(%d)", uint32(o))
	}
}

// Bit layout of one 32-bit instruction word.
//
// Command ops (NOOP, ACT, PRE, REF):
//
//	[0,3)   opcode
//	[3,11)  timeslice: idle cycles held after issuing the command
//	[11,32) packed bus address (row, then bank, then rank), 0 if unused
//
// LOOP:
//
//	[0,3)   opcode
//	[3,23)  repeat count minus one
//	[23,32) backward jump offset in instructions
const (
	opcodeBits    = 3
	timesliceBits = 8
	addressBits   = 21
	countBits     = 20
	jumpBits      = 9

	// InstructionBytes is the width of one instruction in payload memory.
	InstructionBytes = 4

	maxTimeslice = 1<<timesliceBits - 1
	maxAddress   = 1<<addressBits - 1
	maxCount     = 1 << countBits
	maxJump      = 1<<jumpBits - 1
)

// An Instruction is one encoded 32-bit word of the payload program.
type Instruction uint32

// StopInstruction terminates every program: a NOOP with a zero timeslice.
const StopInstruction Instruction = 0

// NewCommandInstruction encodes a NOOP, ACT, PRE, or REF.
func NewCommandInstruction(
	op Opcode,
	timeslice int,
	address uint32,
) (Instruction, error) {
	if op == OpcodeLoop {
		return 0, fmt.Errorf("LOOP is not a command instruction")
	}

	if timeslice < 0 || timeslice > maxTimeslice {
		return 0, fmt.Errorf("timeslice %d outside [0, %d]",
			timeslice, maxTimeslice)
	}

	if address > maxAddress {
		return 0, fmt.Errorf("bus address 0x%x wider than %d bits",
			address, addressBits)
	}

	word := uint32(op) |
		uint32(timeslice)<<opcodeBits |
		address<<(opcodeBits+timesliceBits)

	return Instruction(word), nil
}

// NewLoopInstruction encodes a backward jump that repeats the previous
// jump instructions count times in total.
func NewLoopInstruction(count, jump int) (Instruction, error) {
	if count < 1 || count > maxCount {
		return 0, fmt.Errorf("loop count %d outside [1, %d]", count, maxCount)
	}

	if jump < 1 || jump > maxJump {
		return 0, fmt.Errorf("loop jump offset %d outside [1, %d]",
			jump, maxJump)
	}

	word := uint32(OpcodeLoop) |
		uint32(count-1)<<opcodeBits |
		uint32(jump)<<(opcodeBits+countBits)

	return Instruction(word), nil
}

// Opcode extracts the micro-op of the instruction.
func (i Instruction) Opcode() Opcode {
	return Opcode(i & (1<<opcodeBits - 1))
}

// Timeslice returns the idle cycles of a command instruction.
func (i Instruction) Timeslice() int {
	return int(i >> opcodeBits & (1<<timesliceBits - 1))
}

// Address returns the packed bus address of a command instruction.
func (i Instruction) Address() uint32 {
	return uint32(i >> (opcodeBits + timesliceBits))
}

// LoopCount returns the total number of repetitions of a LOOP instruction.
func (i Instruction) LoopCount() int {
	return int(i>>opcodeBits&(1<<countBits-1)) + 1
}

// JumpOffset returns how many instructions a LOOP jumps backwards.
func (i Instruction) JumpOffset() int {
	return int(i >> (opcodeBits + countBits) & (1<<jumpBits - 1))
}

func (i Instruction) String() string {
	switch op := i.Opcode(); op {
	case OpcodeLoop:
		return fmt.Sprintf("LOOP count=%d jump=-%d",
			i.LoopCount(), i.JumpOffset())
	default:
		return fmt.Sprintf("%s timeslice=%d address=0x%x",
			op, i.Timeslice(), i.Address())
	}
}

// A Program is a complete instruction stream ready for upload, stop
// instruction included.
type Program struct {
	Instructions []Instruction
}

// SizeBytes returns the payload-memory footprint of the program.
func (p Program) SizeBytes() int {
	return len(p.Instructions) * InstructionBytes
}

// Bytes serializes the program in the little-endian order the payload
// memory expects.
func (p Program) Bytes() []byte {
	buf := make([]byte, 0, p.SizeBytes())
	for _, inst := range p.Instructions {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(inst))
	}

	return buf
}

// DecodeProgram parses raw payload memory back into instructions. It is the
// inverse of Bytes and is what the emulated executor runs on.
func DecodeProgram(data []byte) (Program, error) {
	if len(data)%InstructionBytes != 0 {
		return Program{}, fmt.Errorf(
			"payload size %d is not a multiple of the %d-byte instruction",
			len(data), InstructionBytes)
	}

	p := Program{Instructions: make([]Instruction, len(data)/InstructionBytes)}
	for i := range p.Instructions {
		word := binary.LittleEndian.Uint32(data[i*InstructionBytes:])
		p.Instructions[i] = Instruction(word)
	}

	return p, nil
}
