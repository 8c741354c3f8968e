package inst

import (
	"strings"
	"sync"
)

// Op holds the derived metadata for one opcode slot.
type Op struct {
	Code    uint8
	Defined bool // false for slots resolved to the fallback NOP
	Raw     string
	Name    string
	Shape   Shape
	// Tokens is the mnemonic without the length marker, e.g. ["MVI", "B"].
	Tokens []string
}

// Len returns the instruction length in bytes.
func (op Op) Len() int {
	return op.Shape.Len()
}

// Tag returns the raw tag produced when decoding this opcode.
func (op Op) Tag() RawTag {
	return RawTag{Code: op.Code, Name: op.Raw}
}

// Signature renders the structured variant with its payload annotation,
// e.g. "Nop", "MviB(u8)" or "Jmp(u8, u8)".
func (op Op) Signature() string {
	switch op.Shape {
	case Imm8:
		return op.Name + "(u8)"
	case Imm16:
		return op.Name + "(u8, u8)"
	}
	return op.Name
}

// Mnemonic returns the instruction text with the operand placeholder
// removed, e.g. "MVI B" or "JMP".
func (op Op) Mnemonic() string {
	if len(op.Tokens) <= 1 {
		return strings.Join(op.Tokens, "")
	}
	return op.Tokens[0] + " " + strings.Join(op.Tokens[1:], ",")
}

// Fallback is the entry used for every opcode byte the table doesn't define.
var Fallback = Op{
	Code:   0x00,
	Raw:    "NOP",
	Name:   "Nop",
	Shape:  None,
	Tokens: []string{"NOP"},
}

// Catalog is the total opcode map: all 256 byte values resolve to an Op,
// undefined ones to Fallback. A Catalog is immutable once built and safe
// for concurrent use.
type Catalog struct {
	ops      [256]Op
	order    []uint8 // defined codes in table order
	mnemonic map[string]uint8
}

// NewCatalog derives names and shapes for every entry of t. When a code
// appears more than once the first row wins.
func NewCatalog(t *Table) *Catalog {
	c := &Catalog{mnemonic: make(map[string]uint8)}
	for i := range c.ops {
		c.ops[i] = Fallback
	}

	for _, e := range t.Entries {
		if c.ops[e.Code].Defined {
			continue
		}
		names := Derive(e)
		op := Op{
			Code:    e.Code,
			Defined: true,
			Raw:     names.Raw,
			Name:    names.Name,
			Shape:   names.Shape,
			Tokens:  operandTokens(e.Tokens(), names.Shape),
		}
		c.ops[e.Code] = op
		c.order = append(c.order, e.Code)

		key := mnemonicKey(op.Tokens)
		if _, ok := c.mnemonic[key]; !ok {
			c.mnemonic[key] = e.Code
		}
	}

	return c
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// DefaultCatalog returns the catalog built from the embedded 8080 table.
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog = NewCatalog(DefaultTable())
	})
	return defaultCatalog
}

// Lookup returns the Op for an opcode byte.
func (c *Catalog) Lookup(code uint8) Op {
	return c.ops[code]
}

// ByteSize returns the instruction length selected by an opcode byte.
func (c *Catalog) ByteSize(code uint8) int {
	return c.ops[code].Shape.Len()
}

// Defined returns the defined opcodes in table order.
func (c *Catalog) Defined() []Op {
	ops := make([]Op, 0, len(c.order))
	for _, code := range c.order {
		ops = append(ops, c.ops[code])
	}
	return ops
}

// RawTags returns the distinct raw tag names in table order, followed by
// the fallback tag if the table doesn't produce it.
func (c *Catalog) RawTags() []string {
	return c.distinct(func(op Op) string { return op.Raw })
}

// Variants returns the distinct structured variants in table order, followed
// by the fallback variant if the table doesn't produce it. A variant is
// identified by its signature, so "Inc" and "Inc(u8)" are two variants.
func (c *Catalog) Variants() []string {
	return c.distinct(Op.Signature)
}

func (c *Catalog) distinct(key func(Op) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, op := range append(c.Defined(), Fallback) {
		k := key(op)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// FindMnemonic looks up an opcode by its mnemonic without the operand
// placeholder, e.g. "MVI B" or "rst 7". Spacing around commas is ignored.
func (c *Catalog) FindMnemonic(text string) (Op, bool) {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	code, ok := c.mnemonic[mnemonicKey(tokens)]
	if !ok {
		return Op{}, false
	}
	return c.ops[code], true
}

func mnemonicKey(tokens []string) string {
	return strings.ToUpper(strings.Join(tokens, " "))
}
