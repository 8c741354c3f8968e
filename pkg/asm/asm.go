// Package asm assembles 8080 source text into instructions and bytes
// using the same opcode catalog the decoders are built from.
package asm

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/oisee/i8080-decoder/pkg/dis"
	"github.com/oisee/i8080-decoder/pkg/inst"
)

// Error is a diagnostic for one source line.
type Error struct {
	Line int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Assembler turns source text into instructions for one catalog.
type Assembler struct {
	cat *inst.Catalog
}

// New returns an assembler for the given catalog.
func New(cat *inst.Catalog) *Assembler {
	return &Assembler{cat: cat}
}

// pending is an instruction whose operand is resolved in the second pass.
type pending struct {
	line  int
	pc    int
	op    inst.Op
	value string
}

var labelPattern = regexp.MustCompile(`^\s*([A-Za-z_.][\w.]*)\s*:`)

// Assemble parses src and returns the instructions in program order.
// Besides instructions, a line may hold "org N", which pads with NOPs up
// to address N.
// Every problem found is reported; the returned error joins one *Error
// per offending line.
func (a *Assembler) Assemble(src string) ([]dis.Instruction, error) {
	var errs []error
	report := func(line int, format string, args ...any) {
		errs = append(errs, &Error{Line: line, Msg: fmt.Sprintf(format, args...)})
	}

	labels := make(map[string]int)
	var items []pending

	// First pass: sizes and label addresses.
	pc := 0
	for i, text := range strings.Split(src, "\n") {
		line := i + 1
		text = stripComment(text)

		for {
			m := labelPattern.FindStringSubmatchIndex(text)
			if m == nil {
				break
			}
			name := strings.ToLower(text[m[2]:m[3]])
			if _, dup := labels[name]; dup {
				report(line, "label %q redefined", name)
			} else {
				labels[name] = pc
			}
			text = text[m[1]:]
		}

		tokens := strings.FieldsFunc(text, func(r rune) bool {
			return r == ' ' || r == '\t' || r == ',' || r == '\r'
		})
		if len(tokens) == 0 {
			continue
		}

		if strings.EqualFold(tokens[0], "org") {
			target, err := org(tokens, pc, labels)
			if err != nil {
				report(line, "%s", err)
				continue
			}
			for ; pc < target; pc++ {
				items = append(items, pending{line: line, pc: pc, op: inst.Fallback})
			}
			continue
		}

		op, value, err := a.match(tokens)
		if err != nil {
			report(line, "%s", err)
			continue
		}
		items = append(items, pending{line: line, pc: pc, op: op, value: value})
		pc += op.Len()
	}

	// Second pass: operand values.
	out := make([]dis.Instruction, 0, len(items))
	for _, it := range items {
		in := dis.Instruction{Code: it.op.Code, Name: it.op.Name, Shape: it.op.Shape}
		if it.op.Shape != inst.None {
			v, err := resolve(it.value, it.pc, labels)
			if err != nil {
				report(it.line, "%s", err)
				continue
			}
			limit := 0xFF
			if it.op.Shape == inst.Imm16 {
				limit = 0xFFFF
			}
			if v < 0 || v > limit {
				report(it.line, "value %s out of range for %s", it.value, it.op.Mnemonic())
				continue
			}
			in.Operands = [2]byte{byte(v), byte(v >> 8)}
		}
		out = append(out, in)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// match finds the opcode for a tokenized line. Instructions with an operand
// are matched on every token but the last, which becomes the value.
func (a *Assembler) match(tokens []string) (inst.Op, string, error) {
	if op, ok := a.cat.FindMnemonic(strings.Join(tokens, " ")); ok {
		if op.Shape != inst.None {
			return inst.Op{}, "", fmt.Errorf("%s needs an operand", op.Mnemonic())
		}
		return op, "", nil
	}
	if len(tokens) > 1 {
		head := strings.Join(tokens[:len(tokens)-1], " ")
		if op, ok := a.cat.FindMnemonic(head); ok && op.Shape != inst.None {
			return op, tokens[len(tokens)-1], nil
		}
	}
	return inst.Op{}, "", fmt.Errorf("unknown instruction: %s", strings.Join(tokens, " "))
}

// org resolves the operand of an org directive. The target must be known
// in the first pass and may not move the address backwards; the gap is
// filled with NOPs.
func org(tokens []string, pc int, labels map[string]int) (int, error) {
	if len(tokens) != 2 {
		return 0, fmt.Errorf("org needs one operand")
	}
	target, err := resolve(tokens[1], pc, labels)
	if err != nil {
		return 0, err
	}
	if target > 0xFFFF {
		return 0, fmt.Errorf("org %s out of range", tokens[1])
	}
	if target < pc {
		return 0, fmt.Errorf("org %s is below the current address %04Xh", tokens[1], pc)
	}
	return target, nil
}

func stripComment(line string) string {
	if i := strings.IndexAny(line, ";#"); i >= 0 {
		return line[:i]
	}
	return line
}

// resolve evaluates an operand: "$" (the address of the current
// instruction), a label, or a number.
func resolve(s string, pc int, labels map[string]int) (int, error) {
	if s == "$" {
		return pc, nil
	}
	if addr, ok := labels[strings.ToLower(s)]; ok {
		return addr, nil
	}
	v, err := parseImmediate(s)
	if err != nil {
		if isLabelStart(s[0]) {
			return 0, fmt.Errorf("undefined label %q", s)
		}
		return 0, fmt.Errorf("bad value %q", s)
	}
	return v, nil
}

func isLabelStart(c byte) bool {
	return c == '_' || c == '.' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// parseImmediate accepts 0x-prefixed hex, h-suffixed hex that starts with a
// digit (0FFh) and decimal.
func parseImmediate(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty")
	}

	var v int64
	var err error
	switch {
	case strings.HasPrefix(s, "0X") || strings.HasPrefix(s, "0x"):
		v, err = strconv.ParseInt(s[2:], 16, 32)
	case len(s) > 1 && (s[len(s)-1] == 'h' || s[len(s)-1] == 'H') && s[0] >= '0' && s[0] <= '9':
		v, err = strconv.ParseInt(s[:len(s)-1], 16, 32)
	default:
		v, err = strconv.ParseInt(s, 10, 32)
	}
	return int(v), err
}

// Encode lays instructions out as bytes: opcode first, then operands.
func Encode(ins []dis.Instruction) []byte {
	var buf []byte
	for _, in := range ins {
		buf = append(buf, in.Code)
		buf = append(buf, in.Payload()...)
	}
	return buf
}

var std = New(inst.DefaultCatalog())

// Assemble assembles src against the built-in 8080 table.
func Assemble(src string) ([]dis.Instruction, error) {
	return std.Assemble(src)
}

// AssembleBytes assembles src against the built-in 8080 table and encodes
// the result.
func AssembleBytes(src string) ([]byte, error) {
	ins, err := std.Assemble(src)
	if err != nil {
		return nil, err
	}
	return Encode(ins), nil
}
