package dsl

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse turns program text into a command tree. The syntax is line oriented:
// one statement per line, blocks introduced by a trailing colon and expressed
// through indentation, comments from # to end of line. Any malformed line or
// mismatched indentation fails the whole parse with the offending line
// number; no partial tree is returned.
func Parse(src string) ([]Command, error) {
	p := &parser{lines: strings.Split(src, "\n")}

	cmds, err := p.parseBlock(0)
	if err != nil {
		return nil, err
	}

	if p.pos < len(p.lines) {
		return nil, fmt.Errorf("line %d: unexpected indentation", p.pos+1)
	}

	if len(cmds) == 0 {
		return nil, fmt.Errorf("program contains no commands")
	}

	return cmds, nil
}

type parser struct {
	lines []string
	pos   int
}

// parseBlock consumes statements at exactly the given indentation level and
// stops at the first line indented less than that. A line indented more than
// the block (outside a for body) is an error.
func (p *parser) parseBlock(indent int) ([]Command, error) {
	var cmds []Command

	for p.pos < len(p.lines) {
		text, lineIndent, blank, err := p.splitLine(p.lines[p.pos])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", p.pos+1, err)
		}

		if blank {
			p.pos++
			continue
		}

		if lineIndent < indent {
			return cmds, nil
		}

		if lineIndent > indent {
			return nil, fmt.Errorf("line %d: unexpected indentation", p.pos+1)
		}

		line := p.pos + 1
		p.pos++

		var cmd Command
		if strings.HasPrefix(text, "for ") || text == "for" {
			cmd, err = p.parseFor(text, line, indent)
		} else {
			cmd, err = parseLeaf(text)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		cmds = append(cmds, cmd)
	}

	return cmds, nil
}

func (p *parser) parseFor(text string, line, indent int) (Command, error) {
	cmd, err := parseForHeader(text)
	if err != nil {
		return Command{}, err
	}

	bodyIndent, ok := p.peekIndent()
	if !ok || bodyIndent <= indent {
		return Command{}, fmt.Errorf("for block has an empty body")
	}

	body, err := p.parseBlock(bodyIndent)
	if err != nil {
		return Command{}, err
	}

	cmd.Body = body

	return cmd, nil
}

// peekIndent reports the indentation of the next non-blank line.
func (p *parser) peekIndent() (int, bool) {
	for pos := p.pos; pos < len(p.lines); pos++ {
		_, indent, blank, err := p.splitLine(p.lines[pos])
		if err != nil || blank {
			continue
		}
		return indent, true
	}

	return 0, false
}

// splitLine strips the comment and measures the indentation of one raw line.
func (p *parser) splitLine(raw string) (text string, indent int, blank bool, err error) {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}

	for indent < len(raw) && raw[indent] == ' ' {
		indent++
	}

	rest := raw[indent:]
	if strings.ContainsAny(rest, "\t") || strings.HasPrefix(rest, "\t") {
		return "", 0, false, fmt.Errorf("tab characters are not allowed")
	}

	text = strings.TrimSpace(rest)
	if text == "" {
		return "", 0, true, nil
	}

	return text, indent, false, nil
}

func parseForHeader(text string) (Command, error) {
	if !strings.HasSuffix(text, ":") {
		return Command{}, fmt.Errorf("for statement must end with a colon")
	}
	header := strings.TrimSpace(strings.TrimSuffix(text, ":"))

	rest, found := strings.CutPrefix(header, "for ")
	if !found {
		return Command{}, fmt.Errorf("malformed for statement %q", text)
	}

	varName, rangeExpr, found := strings.Cut(rest, " in ")
	if !found {
		return Command{}, fmt.Errorf("for statement must use \"in range(...)\"")
	}

	varName = strings.TrimSpace(varName)
	if !isIdentifier(varName) {
		return Command{}, fmt.Errorf("invalid loop variable %q", varName)
	}
	if arrayNames[varName] {
		return Command{}, fmt.Errorf(
			"loop variable %q collides with an address array", varName)
	}

	args, err := parseRangeArgs(strings.TrimSpace(rangeExpr))
	if err != nil {
		return Command{}, err
	}

	if varName == "_" {
		if len(args) != 1 {
			return Command{}, fmt.Errorf(
				"repeat form \"for _\" takes range(<count>)")
		}
		return Command{Kind: CmdLoop, Count: args[0]}, nil
	}

	cmd := Command{Kind: CmdFor, Var: varName}
	switch len(args) {
	case 1:
		cmd.Start = Literal{Value: 0}
		cmd.End = args[0]
	case 2:
		cmd.Start = args[0]
		cmd.End = args[1]
	default:
		return Command{}, fmt.Errorf("range takes one or two arguments")
	}

	return cmd, nil
}

func parseRangeArgs(s string) ([]Expr, error) {
	inner, ok := insideCall(s, "range")
	if !ok {
		return nil, fmt.Errorf("for statement must use \"in range(...)\"")
	}

	parts := splitTopLevel(inner)
	args := make([]Expr, 0, len(parts))
	for _, part := range parts {
		expr, err := parseOperand(part)
		if err != nil {
			return nil, err
		}
		args = append(args, expr)
	}

	return args, nil
}

func parseLeaf(text string) (Command, error) {
	name, argText, err := splitCall(text)
	if err != nil {
		return Command{}, err
	}

	switch name {
	case "act":
		return parseAct(argText)
	case "pre":
		if argText != "" {
			return Command{}, fmt.Errorf("pre() takes no arguments")
		}
		return Command{Kind: CmdPre}, nil
	case "ref":
		if argText != "" {
			return Command{}, fmt.Errorf("ref() takes no arguments")
		}
		return Command{Kind: CmdRef}, nil
	case "nop":
		return parseNop(argText)
	default:
		return Command{}, fmt.Errorf("unknown command %q", name)
	}
}

func parseAct(argText string) (Command, error) {
	cmd := Command{Kind: CmdAct}

	for _, arg := range splitTopLevel(argText) {
		key, value, found := strings.Cut(arg, "=")
		if !found {
			return Command{}, fmt.Errorf("act argument %q is not name=value", arg)
		}

		expr, err := parseOperand(value)
		if err != nil {
			return Command{}, err
		}

		switch strings.TrimSpace(key) {
		case "bank":
			if cmd.Bank != nil {
				return Command{}, fmt.Errorf("duplicate bank argument")
			}
			cmd.Bank = expr
		case "row":
			if cmd.Row != nil {
				return Command{}, fmt.Errorf("duplicate row argument")
			}
			cmd.Row = expr
		default:
			return Command{}, fmt.Errorf(
				"unknown act argument %q", strings.TrimSpace(key))
		}
	}

	if cmd.Bank == nil || cmd.Row == nil {
		return Command{}, fmt.Errorf("act requires bank= and row=")
	}

	return cmd, nil
}

func parseNop(argText string) (Command, error) {
	value, found := strings.CutPrefix(strings.TrimSpace(argText), "cycles=")
	if !found {
		return Command{}, fmt.Errorf("nop requires cycles=<int>")
	}

	cycles, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || cycles < 1 {
		return Command{}, fmt.Errorf("nop cycle count must be a positive integer")
	}

	return Command{Kind: CmdNop, Cycles: cycles}, nil
}

// splitCall splits "name(args)" into its parts and validates the bracketing.
func splitCall(text string) (name, args string, err error) {
	open := strings.IndexByte(text, '(')
	if open < 0 || !strings.HasSuffix(text, ")") {
		return "", "", fmt.Errorf("malformed statement %q", text)
	}

	name = strings.TrimSpace(text[:open])
	args = strings.TrimSpace(text[open+1 : len(text)-1])

	if !isIdentifier(name) {
		return "", "", fmt.Errorf("malformed statement %q", text)
	}

	return name, args, nil
}

// insideCall returns the argument text of "name(...)" if s has that shape.
func insideCall(s, name string) (string, bool) {
	rest, found := strings.CutPrefix(s, name)
	if !found {
		return "", false
	}

	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
		return "", false
	}

	return strings.TrimSpace(rest[1 : len(rest)-1]), true
}

// splitTopLevel splits on commas that are not nested inside parentheses or
// brackets. An empty input yields no parts.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	start := 0

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}

	if tail := strings.TrimSpace(s[start:]); tail != "" {
		parts = append(parts, tail)
	}

	return parts
}

func isIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}

	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}

	return true
}
