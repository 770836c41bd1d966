package pipeline

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/comsec-group/phoenix-sub000/analysis"
	"github.com/comsec-group/phoenix-sub000/ctrl"
	"github.com/comsec-group/phoenix-sub000/dram"
	"github.com/comsec-group/phoenix-sub000/payload"
)

// ResetStage clears the measurement fields of the context while keeping the
// run ID and the exports seeded by the campaign. It must be the first stage
// of every pipeline.
type ResetStage struct{}

// MakeResetStage creates a ResetStage.
func MakeResetStage() ResetStage {
	return ResetStage{}
}

func (ResetStage) Name() string {
	return "reset"
}

func (ResetStage) Apply(c Context, _ ctrl.Controller) (Context, error) {
	c.RefreshesBefore = 0
	c.RefreshesAfter = 0
	c.Flipped = nil
	c.NotFlipped = nil
	c.Faults = nil

	return c, nil
}

// RefreshControlStage enables or disables automatic refresh.
type RefreshControlStage struct {
	enable bool
}

// MakeEnableRefreshStage creates a stage that turns refresh on.
func MakeEnableRefreshStage() RefreshControlStage {
	return RefreshControlStage{enable: true}
}

// MakeDisableRefreshStage creates a stage that suspends refresh.
func MakeDisableRefreshStage() RefreshControlStage {
	return RefreshControlStage{enable: false}
}

func (s RefreshControlStage) Name() string {
	if s.enable {
		return "enable-refresh"
	}

	return "disable-refresh"
}

func (s RefreshControlStage) Apply(c Context, hw ctrl.Controller) (Context, error) {
	if s.enable {
		return c, hw.EnableRefresh()
	}

	return c, hw.DisableRefresh()
}

// CounterSlot selects which context field a counter read lands in.
type CounterSlot int

// The two points a run samples the refresh counter at.
const (
	CounterBefore CounterSlot = iota
	CounterAfter
)

// ReadRefreshCounterStage samples the hardware refresh counter.
type ReadRefreshCounterStage struct {
	slot CounterSlot
}

// MakeReadRefreshCounterStage creates a counter-sampling stage.
func MakeReadRefreshCounterStage(slot CounterSlot) ReadRefreshCounterStage {
	return ReadRefreshCounterStage{slot: slot}
}

func (s ReadRefreshCounterStage) Name() string {
	if s.slot == CounterBefore {
		return "read-refresh-counter-before"
	}

	return "read-refresh-counter-after"
}

func (s ReadRefreshCounterStage) Apply(c Context, hw ctrl.Controller) (Context, error) {
	count, err := hw.RefreshCount()
	if err != nil {
		return c, err
	}

	if s.slot == CounterBefore {
		c.RefreshesBefore = count
	} else {
		c.RefreshesAfter = count
	}

	return c, nil
}

// AlignRefreshStage issues the minimum number of extra refresh commands so
// that the counter reaches the configured residue before the run proceeds.
type AlignRefreshStage struct {
	alignment analysis.Alignment
}

// MakeAlignRefreshStage creates an alignment stage.
func MakeAlignRefreshStage(a analysis.Alignment) AlignRefreshStage {
	return AlignRefreshStage{alignment: a}
}

func (s AlignRefreshStage) Name() string {
	return "align-refresh-counter"
}

func (s AlignRefreshStage) Apply(c Context, hw ctrl.Controller) (Context, error) {
	counter, err := hw.RefreshCount()
	if err != nil {
		return c, err
	}

	distance, err := s.alignment.Distance(counter)
	if err != nil {
		return c, err
	}

	if distance > 0 {
		if err := hw.IssueRefresh(int(distance)); err != nil {
			return c, err
		}
	}

	counter, err = hw.RefreshCount()
	if err != nil {
		return c, err
	}

	if err := s.alignment.Check(counter); err != nil {
		return c, err
	}

	return c.Export("aligned_at", counter), nil
}

// WritePatternStage fills a set of rows with a data pattern through the DMA
// engine.
type WritePatternStage struct {
	geometry dram.Geometry
	mapping  dram.RowMapping
	rows     []dram.Address
	pattern  uint32
}

// MakeWritePatternStage creates a pattern-write stage for the given logical
// rows.
func MakeWritePatternStage(
	g dram.Geometry,
	m dram.RowMapping,
	rows []dram.Address,
	pattern uint32,
) WritePatternStage {
	return WritePatternStage{geometry: g, mapping: m, rows: rows, pattern: pattern}
}

func (s WritePatternStage) Name() string {
	return "write-pattern"
}

func (s WritePatternStage) Apply(c Context, hw ctrl.Controller) (Context, error) {
	for _, row := range s.rows {
		offset := s.geometry.EncodeOffset(
			row.Bank, s.mapping.LogicalToPhysical(row.Row))

		err := hw.MemorySet(offset, s.pattern, s.geometry.WordsPerRow())
		if err != nil {
			return c, fmt.Errorf("writing %s: %w", row, err)
		}
	}

	return c, nil
}

// ExecutePayloadStage uploads an assembled program and replays it.
type ExecutePayloadStage struct {
	program payload.Program
}

// MakeExecutePayloadStage creates a payload-execution stage.
func MakeExecutePayloadStage(p payload.Program) ExecutePayloadStage {
	return ExecutePayloadStage{program: p}
}

func (s ExecutePayloadStage) Name() string {
	return "execute-payload"
}

func (s ExecutePayloadStage) Apply(c Context, hw ctrl.Controller) (Context, error) {
	if err := hw.UploadPayload(s.program.Bytes()); err != nil {
		return c, err
	}

	return c, hw.ExecutePayload()
}

// WaitStage blocks the run for a configured duration, e.g. to let retention
// effects develop. The wait is not cancellable.
type WaitStage struct {
	duration time.Duration
	sleep    func(time.Duration)
}

// MakeWaitStage creates a wait stage.
func MakeWaitStage(d time.Duration) WaitStage {
	return WaitStage{duration: d, sleep: time.Sleep}
}

func (s WaitStage) Name() string {
	return "wait"
}

func (s WaitStage) Apply(c Context, _ ctrl.Controller) (Context, error) {
	s.sleep(s.duration)
	return c, nil
}

// RandomRefreshBurstStage issues a bounded number of refresh bursts of
// random length, perturbing the sampling behavior of in-DRAM mitigations.
// The RNG is injected so runs stay reproducible.
type RandomRefreshBurstStage struct {
	bursts   int
	maxBurst int
	rng      *rand.Rand
}

// MakeRandomRefreshBurstStage creates a burst stage issuing bursts of
// lengths in [1, maxBurst].
func MakeRandomRefreshBurstStage(bursts, maxBurst int, rng *rand.Rand) RandomRefreshBurstStage {
	if bursts < 0 || maxBurst < 1 {
		panic("burst stage needs bursts >= 0 and maxBurst >= 1")
	}

	return RandomRefreshBurstStage{bursts: bursts, maxBurst: maxBurst, rng: rng}
}

func (s RandomRefreshBurstStage) Name() string {
	return "random-refresh-bursts"
}

func (s RandomRefreshBurstStage) Apply(c Context, hw ctrl.Controller) (Context, error) {
	issued := 0
	for i := 0; i < s.bursts; i++ {
		n := 1 + s.rng.Intn(s.maxBurst)

		if err := hw.IssueRefresh(n); err != nil {
			return c, err
		}

		issued += n
	}

	return c.Export("random_refreshes", issued), nil
}

// CheckMode selects what the verify stage reports.
type CheckMode int

const (
	// CheckCollectFlips reports every address whose content changed.
	CheckCollectFlips CheckMode = iota

	// CheckExpectFlips additionally records which of the checked rows did
	// NOT flip, for experiments that expect their victims to be hit.
	CheckExpectFlips
)

// VerifyPatternStage compares a set of rows against the written pattern and
// translates every mismatch into fault coordinates.
type VerifyPatternStage struct {
	geometry dram.Geometry
	mapping  dram.RowMapping
	rows     []dram.Address
	pattern  uint32
	mode     CheckMode
}

// MakeVerifyPatternStage creates a verification stage over the given
// logical rows.
func MakeVerifyPatternStage(
	g dram.Geometry,
	m dram.RowMapping,
	rows []dram.Address,
	pattern uint32,
	mode CheckMode,
) VerifyPatternStage {
	return VerifyPatternStage{
		geometry: g,
		mapping:  m,
		rows:     rows,
		pattern:  pattern,
		mode:     mode,
	}
}

func (s VerifyPatternStage) Name() string {
	return "verify-pattern"
}

func (s VerifyPatternStage) Apply(c Context, hw ctrl.Controller) (Context, error) {
	localizer := analysis.NewLocalizer(s.geometry, s.mapping)

	for i, row := range s.rows {
		offset := s.geometry.EncodeOffset(
			row.Bank, s.mapping.LogicalToPhysical(row.Row))

		reports, err := hw.MemoryCompare(
			offset, s.pattern, s.geometry.WordsPerRow())
		if err != nil {
			return c, fmt.Errorf("comparing %s: %w", row, err)
		}

		faults, err := localizer.LocalizeAll(reports)
		if err != nil {
			return c, err
		}

		if len(faults) > 0 {
			c.Flipped = append(c.Flipped, row)
			c.Faults = append(c.Faults, faults...)
		} else if s.mode == CheckExpectFlips {
			c.NotFlipped = append(c.NotFlipped, i)
		}
	}

	return c, nil
}
