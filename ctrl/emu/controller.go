// Package emu provides a software stand-in for the memory-controller
// hardware. It emulates the refresh counter, the DMA set/compare engine,
// and the payload executor against sparse in-memory storage, so campaigns
// and pipeline tests run end to end without an FPGA attached. Bit flips can
// be injected to exercise the verification path.
package emu

import (
	"encoding/binary"
	"fmt"

	"github.com/comsec-group/phoenix-sub000/analysis"
	"github.com/comsec-group/phoenix-sub000/dram"
	"github.com/comsec-group/phoenix-sub000/payload"
)

// An injectedFlip is one cell that reads back inverted once armed.
type injectedFlip struct {
	addr dram.Address
	bit  int
}

// Controller implements ctrl.Controller in software.
type Controller struct {
	geometry dram.Geometry
	mapping  dram.RowMapping
	store    *rowStore

	refreshEnabled bool
	refreshCount   uint64

	program         []byte
	programBudget   int
	programUploaded bool
	activations     map[dram.Address]int
	totalActs       int

	flips         []injectedFlip
	flipThreshold int
}

// A Builder can build emulated controllers.
type Builder struct {
	geometry        dram.Geometry
	mapping         dram.RowMapping
	payloadCapacity int
	flips           []injectedFlip
	flipThreshold   int
}

// MakeBuilder creates a builder with the default geometry, an identity row
// mapping, no injected flips, and a 1 KiB payload memory.
func MakeBuilder() Builder {
	return Builder{
		geometry:        dram.MakeGeometry(),
		mapping:         dram.IdentityMapping(),
		payloadCapacity: 1024,
		flipThreshold:   1,
	}
}

// WithGeometry sets the emulated module geometry.
func (b Builder) WithGeometry(g dram.Geometry) Builder {
	b.geometry = g
	return b
}

// WithRowMapping sets the vendor row mapping the emulated module applies on
// its bus.
func (b Builder) WithRowMapping(m dram.RowMapping) Builder {
	b.mapping = m
	return b
}

// WithPayloadCapacity sets the instruction-memory size in bytes.
func (b Builder) WithPayloadCapacity(bytes int) Builder {
	b.payloadCapacity = bytes
	return b
}

// WithBitFlip injects one cell, named by its logical address and bit index
// within the row, that reads back inverted after a payload execution has
// reached the activation threshold.
func (b Builder) WithBitFlip(addr dram.Address, bit int) Builder {
	b.flips = append(b.flips, injectedFlip{addr: addr, bit: bit})
	return b
}

// WithFlipThreshold sets how many activations a payload execution must issue
// before the injected flips arm.
func (b Builder) WithFlipThreshold(n int) Builder {
	b.flipThreshold = n
	return b
}

// Build builds the emulated controller.
func (b Builder) Build() *Controller {
	windowBytes := uint64(b.geometry.NumBanks()) *
		uint64(b.geometry.NumRows()) * b.geometry.RowBytes()

	return &Controller{
		geometry:       b.geometry,
		mapping:        b.mapping,
		store:          newRowStore(windowBytes),
		refreshEnabled: true,
		activations:    make(map[dram.Address]int),
		flips:          b.flips,
		flipThreshold:  b.flipThreshold,
		programBudget:  b.payloadCapacity,
	}
}

// EnableRefresh turns automatic refresh back on.
func (c *Controller) EnableRefresh() error {
	c.refreshEnabled = true
	return nil
}

// DisableRefresh suspends automatic refresh.
func (c *Controller) DisableRefresh() error {
	c.refreshEnabled = false
	return nil
}

// RefreshEnabled reports the refresh state. Not part of the hardware
// contract; tests use it.
func (c *Controller) RefreshEnabled() bool {
	return c.refreshEnabled
}

// RefreshCount reads the refresh counter.
func (c *Controller) RefreshCount() (uint64, error) {
	return c.refreshCount, nil
}

// IssueRefresh issues a burst of n refresh commands.
func (c *Controller) IssueRefresh(n int) error {
	if n < 0 {
		return fmt.Errorf("refresh burst length %d is negative", n)
	}

	c.refreshCount += uint64(n)

	return nil
}

// MemorySet fills consecutive DMA words with the pattern.
func (c *Controller) MemorySet(offset uint64, pattern uint32, words int) error {
	data := make([]byte, words*c.geometry.WordBytes)
	for i := 0; i < words; i++ {
		binary.LittleEndian.PutUint32(data[i*c.geometry.WordBytes:], pattern)
	}

	return c.store.write(offset, data)
}

// MemoryCompare checks consecutive DMA words against the pattern.
func (c *Controller) MemoryCompare(
	offset uint64,
	pattern uint32,
	words int,
) ([]analysis.ErrorReport, error) {
	wordBytes := c.geometry.WordBytes

	data, err := c.store.read(offset, uint64(words*wordBytes))
	if err != nil {
		return nil, err
	}

	flipMasks := c.armedFlipMasks()

	var reports []analysis.ErrorReport
	for i := 0; i < words; i++ {
		wordOffset := offset + uint64(i*wordBytes)
		observed := binary.LittleEndian.Uint32(data[i*wordBytes:])
		observed ^= flipMasks[wordOffset]

		if observed != pattern {
			reports = append(reports, analysis.ErrorReport{
				Offset:   wordOffset,
				Width:    wordBytes,
				Observed: uint64(observed),
				Expected: uint64(pattern),
			})
		}
	}

	return reports, nil
}

// armedFlipMasks maps DMA word offsets to the XOR mask of armed injected
// flips at that word.
func (c *Controller) armedFlipMasks() map[uint64]uint32 {
	masks := make(map[uint64]uint32)
	if c.totalActs < c.flipThreshold {
		return masks
	}

	wordBits := c.geometry.WordBytes * 8
	for _, flip := range c.flips {
		physRow := c.mapping.LogicalToPhysical(flip.addr.Row)
		rowBase := c.geometry.EncodeOffset(flip.addr.Bank, physRow)

		word := flip.bit / wordBits
		offset := rowBase + uint64(word*c.geometry.WordBytes)
		masks[offset] |= 1 << (flip.bit % wordBits)
	}

	return masks
}

// UploadPayload loads a program into the emulated payload memory.
func (c *Controller) UploadPayload(data []byte) error {
	if len(data) > c.programBudget {
		return fmt.Errorf("payload of %d bytes exceeds the %d-byte memory",
			len(data), c.programBudget)
	}

	c.program = append([]byte(nil), data...)
	c.programUploaded = true

	return nil
}

// ExecutePayload interprets the uploaded program: activations are counted
// per (bank, physical row), refresh commands advance the refresh counter,
// and hardware loops replay their body natively.
func (c *Controller) ExecutePayload() error {
	if !c.programUploaded {
		return fmt.Errorf("no payload uploaded")
	}

	prog, err := payload.DecodeProgram(c.program)
	if err != nil {
		return err
	}

	repeats := make(map[int]int)
	for pc, inst := range prog.Instructions {
		if inst.Opcode() == payload.OpcodeLoop {
			repeats[pc] = inst.LoopCount() - 1
		}
	}

	for pc := 0; pc < len(prog.Instructions); {
		inst := prog.Instructions[pc]

		switch inst.Opcode() {
		case payload.OpcodeNoop:
			if inst == payload.StopInstruction {
				return nil
			}
			pc++

		case payload.OpcodeAct:
			c.recordActivation(inst.Address())
			pc++

		case payload.OpcodePre:
			pc++

		case payload.OpcodeRef:
			c.refreshCount++
			pc++

		case payload.OpcodeLoop:
			if repeats[pc] > 0 {
				repeats[pc]--
				pc -= inst.JumpOffset()
			} else {
				pc++
			}

		default:
			return fmt.Errorf("illegal opcode %d at pc %d",
				inst.Opcode(), pc)
		}
	}

	return fmt.Errorf("program ran off the end of payload memory")
}

func (c *Controller) recordActivation(busAddress uint32) {
	row := int(busAddress & uint32(c.geometry.NumRows()-1))
	bank := int(busAddress >> c.geometry.RowBits)

	c.activations[dram.Address{Bank: bank, Row: row}]++
	c.totalActs++
}

// Activations reports how often a (bank, physical row) pair has been
// activated by payload executions. Tests use it.
func (c *Controller) Activations(bank, physicalRow int) int {
	return c.activations[dram.Address{Bank: bank, Row: physicalRow}]
}
