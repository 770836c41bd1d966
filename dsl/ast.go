// Package dsl implements the command language that describes DRAM command
// sequences: the four leaf commands (act, pre, ref, nop), bounded for blocks
// over integer ranges, and the repeat form that maps onto the hardware loop
// of the payload executor.
package dsl

// CommandKind tags the variants of a Command.
type CommandKind int

// The closed set of command variants.
const (
	// CmdAct activates a row of a bank.
	CmdAct CommandKind = iota

	// CmdPre precharges the open row.
	CmdPre

	// CmdRef issues one refresh command.
	CmdRef

	// CmdNop idles the command bus for a number of cycles.
	CmdNop

	// CmdFor is an indexable loop over an integer range. It is always
	// unrolled during resolution.
	CmdFor

	// CmdLoop is a pure repetition with no loop variable. It survives
	// resolution and is executed natively by the hardware.
	CmdLoop
)

func (k CommandKind) String() string {
	switch k {
	case CmdAct:
		return "act"
	case CmdPre:
		return "pre"
	case CmdRef:
		return "ref"
	case CmdNop:
		return "nop"
	case CmdFor:
		return "for"
	case CmdLoop:
		return "loop"
	default:
		return "unknown"
	}
}

// A Command is one node of the program tree. Which fields are meaningful
// depends on Kind.
type Command struct {
	Kind CommandKind

	// Bank and Row are the operands of CmdAct.
	Bank Expr
	Row  Expr

	// Cycles is the idle-cycle count of CmdNop.
	Cycles int

	// Var, Start, and End describe the range of CmdFor. The range is
	// half-open: Var takes every value in [Start, End).
	Var   string
	Start Expr
	End   Expr

	// Count is the repetition count of CmdLoop.
	Count Expr

	// Body holds the commands of CmdFor and CmdLoop blocks, in program
	// order.
	Body []Command
}
