// Package resolve evaluates a parsed program against concrete address
// arrays. It unrolls every for block, evaluates every symbolic operand, and
// emits a flat operation sequence in which only hardware loop wrappers keep
// structure. Resolution is pure: it performs no hardware access and the same
// program with the same lookup always yields the same output.
package resolve

import (
	"fmt"

	"github.com/comsec-group/phoenix-sub000/dsl"
)

// OpKind tags the variants of a resolved operation.
type OpKind int

// The resolved operation variants. There is no for variant: resolution
// eliminates them.
const (
	OpAct OpKind = iota
	OpPre
	OpRef
	OpNop
	OpLoop
)

func (k OpKind) String() string {
	switch k {
	case OpAct:
		return "act"
	case OpPre:
		return "pre"
	case OpRef:
		return "ref"
	case OpNop:
		return "nop"
	case OpLoop:
		return "loop"
	default:
		return "unknown"
	}
}

// An Op is one fully resolved operation. All operands are concrete integers.
type Op struct {
	Kind OpKind

	// Bank and Row are set for OpAct.
	Bank int
	Row  int

	// Cycles is set for OpNop.
	Cycles int

	// Count and Body are set for OpLoop. Body executes Count times on the
	// hardware; it is deliberately not unrolled here, both to save
	// instruction memory and because counters read during the loop must see
	// the native repetition.
	Count int
	Body  []Op
}

// Resolve unrolls and evaluates a program. The lookup supplies the address
// arrays the program may index; it is read-only during resolution. Any
// unbound variable, out-of-range index, or expression failure aborts the
// whole resolution.
func Resolve(prog []dsl.Command, lookup dsl.AddressLookup) ([]Op, error) {
	env := dsl.Env{Vars: map[string]int{}, Arrays: lookup}

	return resolveBlock(prog, env)
}

func resolveBlock(cmds []dsl.Command, env dsl.Env) ([]Op, error) {
	var ops []Op

	for _, cmd := range cmds {
		resolved, err := resolveCommand(cmd, env)
		if err != nil {
			return nil, err
		}
		ops = append(ops, resolved...)
	}

	return ops, nil
}

func resolveCommand(cmd dsl.Command, env dsl.Env) ([]Op, error) {
	switch cmd.Kind {
	case dsl.CmdAct:
		bank, err := cmd.Bank.Eval(env)
		if err != nil {
			return nil, fmt.Errorf("act bank operand: %w", err)
		}
		row, err := cmd.Row.Eval(env)
		if err != nil {
			return nil, fmt.Errorf("act row operand: %w", err)
		}
		return []Op{{Kind: OpAct, Bank: bank, Row: row}}, nil

	case dsl.CmdPre:
		return []Op{{Kind: OpPre}}, nil

	case dsl.CmdRef:
		return []Op{{Kind: OpRef}}, nil

	case dsl.CmdNop:
		return []Op{{Kind: OpNop, Cycles: cmd.Cycles}}, nil

	case dsl.CmdFor:
		return resolveFor(cmd, env)

	case dsl.CmdLoop:
		return resolveLoop(cmd, env)

	default:
		return nil, fmt.Errorf("unknown command kind %v", cmd.Kind)
	}
}

func resolveFor(cmd dsl.Command, env dsl.Env) ([]Op, error) {
	if _, bound := env.Vars[cmd.Var]; bound {
		return nil, fmt.Errorf("loop variable %q is already bound", cmd.Var)
	}

	start, err := cmd.Start.Eval(env)
	if err != nil {
		return nil, fmt.Errorf("for %s range start: %w", cmd.Var, err)
	}

	end, err := cmd.End.Eval(env)
	if err != nil {
		return nil, fmt.Errorf("for %s range end: %w", cmd.Var, err)
	}

	var ops []Op
	for value := start; value < end; value++ {
		iteration, err := resolveBlock(cmd.Body, env.Bind(cmd.Var, value))
		if err != nil {
			return nil, fmt.Errorf("for %s=%d: %w", cmd.Var, value, err)
		}
		ops = append(ops, iteration...)
	}

	return ops, nil
}

// resolveLoop resolves the body of a repeat block but keeps the loop wrapper:
// the payload executor repeats it natively.
func resolveLoop(cmd dsl.Command, env dsl.Env) ([]Op, error) {
	count, err := cmd.Count.Eval(env)
	if err != nil {
		return nil, fmt.Errorf("loop count: %w", err)
	}

	if count < 1 {
		return nil, fmt.Errorf("loop count %d must be at least 1", count)
	}

	body, err := resolveBlock(cmd.Body, env)
	if err != nil {
		return nil, err
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("loop body is empty")
	}

	return []Op{{Kind: OpLoop, Count: count, Body: body}}, nil
}
