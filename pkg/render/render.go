// Package render writes a self-contained Go decoder for an opcode catalog.
//
// The generated file declares the raw tag enumeration (RawOpcode), the
// structured variant enumeration (Kind), per-byte lookup arrays and the two
// decode loops, so a program can decode without loading a table at run
// time.
package render

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"io"
	"strings"

	"github.com/oisee/i8080-decoder/pkg/inst"
)

// Options controls the generated file.
type Options struct {
	Package string // defaults to "i8080"
	Source  string // named in the header comment when set
}

// Generator accumulates the unformatted source.
type Generator struct {
	io.Writer
	c *inst.Catalog

	raw  map[string]int // raw tag -> RawOpcode index
	kind map[string]string // variant signature -> Kind constant
}

func (g *Generator) printf(format string, args ...any) {
	fmt.Fprintf(g, "%s\n", fmt.Sprintf(format, args...))
}

// Go renders the decoder for c to w. The output is gofmt'ed; if formatting
// fails the error is returned and nothing is written.
func Go(w io.Writer, c *inst.Catalog, opts Options) error {
	if opts.Package == "" {
		opts.Package = "i8080"
	}
	if !token.IsIdentifier(opts.Package) {
		return fmt.Errorf("invalid package name %q", opts.Package)
	}

	bb := &bytes.Buffer{}
	g := &Generator{Writer: bb, c: c}
	g.generate(opts)

	buf, err := format.Source(bb.Bytes())
	if err != nil {
		return fmt.Errorf("gofmt failed: %w", err)
	}
	_, err = w.Write(buf)
	return err
}

func (g *Generator) generate(opts Options) {
	if opts.Source != "" {
		g.printf(`// Code generated by i8080 gen from %s. DO NOT EDIT.`, opts.Source)
	} else {
		g.printf(`// Code generated by i8080 gen. DO NOT EDIT.`)
	}
	g.printf(``)
	g.printf(`package %s`, opts.Package)
	g.printf(``)
	g.printf(`import "fmt"`)
	g.printf(``)

	g.rawEnum()
	g.kindEnum()
	g.byteTables()
	g.decoders()
}

func (g *Generator) rawEnum() {
	tags := g.c.RawTags()
	g.raw = make(map[string]int, len(tags))

	g.printf(`// RawOpcode is the length-classification tag of an instruction.`)
	g.printf(`type RawOpcode uint8`)
	g.printf(``)
	g.printf(`const (`)
	for i, tag := range tags {
		g.raw[tag] = i
		if i == 0 {
			g.printf(`%s RawOpcode = iota`, RawConst(tag))
		} else {
			g.printf(`%s`, RawConst(tag))
		}
	}
	g.printf(`)`)
	g.printf(``)

	g.printf(`var rawNames = [...]string{`)
	for _, tag := range tags {
		g.printf(`%s: %q,`, RawConst(tag), tag)
	}
	g.printf(`}`)
	g.printf(``)
	g.printf(`func (op RawOpcode) String() string {`)
	g.printf(`	if int(op) < len(rawNames) {`)
	g.printf(`		return rawNames[op]`)
	g.printf(`	}`)
	g.printf(`	return fmt.Sprintf("RawOpcode(%%d)", uint8(op))`)
	g.printf(`}`)
	g.printf(``)
}

// variant is one structured variant of the generated Kind enumeration.
type variant struct {
	sig   string // e.g. "MviB(u8)"
	ident string // Go constant, e.g. "KindMviB"
	arity int
}

// variants lists the catalog's structured variants in table order. A name
// shared by several shapes gets the shape as suffix ("KindInc",
// "KindIncD8", "KindIncD16").
func (g *Generator) variants() []variant {
	var ops []inst.Op
	seen := make(map[string]bool)
	shapes := make(map[string]int)
	for _, op := range append(g.c.Defined(), inst.Fallback) {
		if seen[op.Signature()] {
			continue
		}
		seen[op.Signature()] = true
		shapes[op.Name]++
		ops = append(ops, op)
	}

	out := make([]variant, 0, len(ops))
	used := make(map[string]bool)
	for i, op := range ops {
		ident := KindConst(op.Name)
		if shapes[op.Name] > 1 && op.Shape != inst.None {
			ident += strings.ToUpper(op.Shape.String()[:1]) + op.Shape.String()[1:]
		}
		if used[ident] {
			ident = fmt.Sprintf("%s_%d", ident, i)
		}
		used[ident] = true
		out = append(out, variant{sig: op.Signature(), ident: ident, arity: op.Shape.Arity()})
	}
	return out
}

func (g *Generator) kindEnum() {
	vs := g.variants()
	g.kind = make(map[string]string, len(vs))

	g.printf(`// Kind is the structured instruction variant.`)
	g.printf(`type Kind uint8`)
	g.printf(``)
	g.printf(`const (`)
	for i, v := range vs {
		g.kind[v.sig] = v.ident
		if i == 0 {
			g.printf(`%s Kind = iota`, v.ident)
		} else {
			g.printf(`%s`, v.ident)
		}
	}
	g.printf(`)`)
	g.printf(``)

	g.printf(`var kindNames = [...]string{`)
	for _, v := range vs {
		g.printf(`%s: %q,`, v.ident, v.sig)
	}
	g.printf(`}`)
	g.printf(``)
	g.printf(`var kindArity = [...]uint8{`)
	for _, v := range vs {
		g.printf(`%s: %d,`, v.ident, v.arity)
	}
	g.printf(`}`)
	g.printf(``)
	g.printf(`func (k Kind) String() string {`)
	g.printf(`	if int(k) < len(kindNames) {`)
	g.printf(`		return kindNames[k]`)
	g.printf(`	}`)
	g.printf(`	return fmt.Sprintf("Kind(%%d)", uint8(k))`)
	g.printf(`}`)
	g.printf(``)
	g.printf(`// Arity returns the number of operand bytes the variant carries.`)
	g.printf(`func (k Kind) Arity() int { return int(kindArity[k]) }`)
	g.printf(``)
}

func (g *Generator) byteTables() {
	g.printf(`// opLen is the instruction length selected by each opcode byte.`)
	g.printf(`var opLen = [256]uint8{`)
	g.row(func(code int) string {
		return fmt.Sprintf("%d", g.c.ByteSize(uint8(code)))
	})
	g.printf(`}`)
	g.printf(``)

	g.printf(`var rawOf = [256]RawOpcode{`)
	for code := 0; code < 256; code++ {
		op := g.c.Lookup(uint8(code))
		g.printf(`0x%02X: %s,`, code, RawConst(op.Raw))
	}
	g.printf(`}`)
	g.printf(``)

	g.printf(`var kindOf = [256]Kind{`)
	for code := 0; code < 256; code++ {
		op := g.c.Lookup(uint8(code))
		g.printf(`0x%02X: %s,`, code, g.kind[op.Signature()])
	}
	g.printf(`}`)
	g.printf(``)
}

// row prints 256 values, sixteen per line.
func (g *Generator) row(value func(code int) string) {
	for code := 0; code < 256; code += 16 {
		line := &bytes.Buffer{}
		for i := code; i < code+16; i++ {
			fmt.Fprintf(line, "%s, ", value(i))
		}
		g.printf(`%s// %02X`, line.String(), code)
	}
}

func (g *Generator) decoders() {
	g.printf(`// Instruction is one structured decoding result.`)
	g.printf(`type Instruction struct {`)
	g.printf(`	Kind     Kind`)
	g.printf(`	Operands [2]byte`)
	g.printf(`}`)
	g.printf(``)
	g.printf(`// TruncatedError reports operand bytes missing at the end of the buffer.`)
	g.printf(`type TruncatedError struct {`)
	g.printf(`	Offset  int`)
	g.printf(`	Missing int`)
	g.printf(`}`)
	g.printf(``)
	g.printf(`func (e *TruncatedError) Error() string {`)
	g.printf(`	return fmt.Sprintf("offset %%d: expected %%d bytes", e.Offset, e.Missing)`)
	g.printf(`}`)
	g.printf(``)
	g.printf(`// DecodeRaw returns one tag per instruction. It never fails.`)
	g.printf(`func DecodeRaw(buf []byte) []RawOpcode {`)
	g.printf(`	var out []RawOpcode`)
	g.printf(`	for i := 0; i < len(buf); {`)
	g.printf(`		b := buf[i]`)
	g.printf(`		i += int(opLen[b])`)
	g.printf(`		out = append(out, rawOf[b])`)
	g.printf(`	}`)
	g.printf(`	return out`)
	g.printf(`}`)
	g.printf(``)
	g.printf(`// Decode returns the structured instructions, or a *TruncatedError for`)
	g.printf(`// the first instruction whose operands run past the end of buf.`)
	g.printf(`func Decode(buf []byte) ([]Instruction, error) {`)
	g.printf(`	var out []Instruction`)
	g.printf(`	for i := 0; i < len(buf); {`)
	g.printf(`		start := i`)
	g.printf(`		b := buf[i]`)
	g.printf(`		in := Instruction{Kind: kindOf[b]}`)
	g.printf(`		i += int(opLen[b])`)
	g.printf(`		switch opLen[b] {`)
	g.printf(`		case 2:`)
	g.printf(`			if i-1 >= len(buf) {`)
	g.printf(`				return nil, &TruncatedError{Offset: start, Missing: 1}`)
	g.printf(`			}`)
	g.printf(`			in.Operands[0] = buf[i-1]`)
	g.printf(`		case 3:`)
	g.printf(`			if i-2 >= len(buf) {`)
	g.printf(`				return nil, &TruncatedError{Offset: start, Missing: 2}`)
	g.printf(`			}`)
	g.printf(`			if i-1 >= len(buf) {`)
	g.printf(`				return nil, &TruncatedError{Offset: start, Missing: 1}`)
	g.printf(`			}`)
	g.printf(`			in.Operands[0], in.Operands[1] = buf[i-2], buf[i-1]`)
	g.printf(`		}`)
	g.printf(`		out = append(out, in)`)
	g.printf(`	}`)
	g.printf(`	return out, nil`)
	g.printf(`}`)
}

// RawConst returns the Go constant name for a raw tag, e.g. "RawMVI_B".
func RawConst(tag string) string {
	return "Raw" + tag
}

// KindConst returns the Go constant name for a variant, e.g. "KindMviB".
func KindConst(name string) string {
	return "Kind" + name
}
