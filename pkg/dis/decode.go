// Package dis decodes 8080 byte streams against an opcode catalog.
//
// Two decoders share one boundary policy. DecodeRaw classifies lengths only
// and never fails; Decode extracts operand bytes and reports a
// *TruncatedError when the buffer ends inside an instruction.
package dis

import (
	"errors"
	"fmt"

	"github.com/oisee/i8080-decoder/pkg/inst"
)

// ErrTruncated matches every *TruncatedError with errors.Is.
var ErrTruncated = errors.New("truncated instruction")

// TruncatedError reports an instruction whose operand bytes run past the
// end of the buffer.
type TruncatedError struct {
	Offset  int   // position of the opcode byte
	Code    uint8 // the opcode
	Missing int   // operand bytes that were expected but absent (1 or 2)
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("opcode 0x%02x at offset %d: expected %d bytes", e.Code, e.Offset, e.Missing)
}

func (e *TruncatedError) Is(target error) bool {
	return target == ErrTruncated
}

// Instruction is one structured decoding result. Only the first
// Shape.Arity() bytes of Operands are meaningful.
type Instruction struct {
	Code     uint8
	Name     string
	Shape    inst.Shape
	Operands [2]byte
}

// Payload returns the operand bytes in buffer order.
func (in Instruction) Payload() []byte {
	return in.Operands[:in.Shape.Arity()]
}

// Word returns the operand as a little-endian value: the byte itself for an
// 8-bit operand, low | high<<8 for a 16-bit one.
func (in Instruction) Word() uint16 {
	return uint16(in.Operands[0]) | uint16(in.Operands[1])<<8
}

// Len returns the encoded length in bytes.
func (in Instruction) Len() int {
	return in.Shape.Len()
}

func (in Instruction) String() string {
	switch in.Shape {
	case inst.Imm8:
		return fmt.Sprintf("%s(0x%02x)", in.Name, in.Operands[0])
	case inst.Imm16:
		return fmt.Sprintf("%s(0x%02x, 0x%02x)", in.Name, in.Operands[0], in.Operands[1])
	}
	return in.Name
}

// Decoder binds both decode algorithms to one catalog. It holds no mutable
// state and may be shared between goroutines.
type Decoder struct {
	cat *inst.Catalog
}

// NewDecoder returns a decoder for the given catalog.
func NewDecoder(cat *inst.Catalog) *Decoder {
	return &Decoder{cat: cat}
}

// Catalog returns the catalog the decoder was built from.
func (d *Decoder) Catalog() *inst.Catalog {
	return d.cat
}

// DecodeRaw walks buf and returns one raw tag per instruction. Operand
// bytes are skipped without being read, so a truncated final instruction
// still yields its tag.
func (d *Decoder) DecodeRaw(buf []byte) []inst.RawTag {
	var tags []inst.RawTag

	i := 0
	for i < len(buf) {
		op := d.cat.Lookup(buf[i])
		i += op.Shape.Len()
		tags = append(tags, op.Tag())
	}

	return tags
}

// Decode walks buf and returns the structured instructions. It stops at the
// first instruction whose operands are cut off and returns only the error.
func (d *Decoder) Decode(buf []byte) ([]Instruction, error) {
	var out []Instruction

	i := 0
	for i < len(buf) {
		in, next, err := d.decodeAt(buf, i)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
		i = next
	}

	return out, nil
}

// decodeAt decodes the instruction starting at buf[i] and returns the
// cursor position after it. The cursor is advanced before the operand
// fetch, exactly as DecodeRaw advances it.
func (d *Decoder) decodeAt(buf []byte, i int) (Instruction, int, error) {
	start := i
	op := d.cat.Lookup(buf[i])
	in := Instruction{Code: op.Code, Name: op.Name, Shape: op.Shape}

	switch op.Shape {
	case inst.None:
		i++
	case inst.Imm8:
		i += 2
		if i-1 >= len(buf) {
			return Instruction{}, i, &TruncatedError{Offset: start, Code: op.Code, Missing: 1}
		}
		in.Operands[0] = buf[i-1]
	case inst.Imm16:
		i += 3
		if i-2 >= len(buf) {
			return Instruction{}, i, &TruncatedError{Offset: start, Code: op.Code, Missing: 2}
		}
		if i-1 >= len(buf) {
			return Instruction{}, i, &TruncatedError{Offset: start, Code: op.Code, Missing: 1}
		}
		in.Operands[0] = buf[i-2]
		in.Operands[1] = buf[i-1]
	}

	return in, i, nil
}

var std = NewDecoder(inst.DefaultCatalog())

// Default returns the decoder for the built-in 8080 table.
func Default() *Decoder {
	return std
}

// DecodeRaw decodes buf against the built-in 8080 table.
func DecodeRaw(buf []byte) []inst.RawTag {
	return std.DecodeRaw(buf)
}

// Decode decodes buf against the built-in 8080 table.
func Decode(buf []byte) ([]Instruction, error) {
	return std.Decode(buf)
}
