package dis

import (
	"strings"

	"github.com/oisee/i8080-decoder/pkg/inst"
)

// Line is one instruction of a listing together with its buffer offset.
type Line struct {
	Offset int
	Inst   Instruction
}

// Listing decodes buf like Decode but keeps offsets. On truncation the
// lines decoded before the fault are returned together with the error.
func (d *Decoder) Listing(buf []byte) ([]Line, error) {
	var lines []Line

	i := 0
	for i < len(buf) {
		in, next, err := d.decodeAt(buf, i)
		if err != nil {
			return lines, err
		}
		lines = append(lines, Line{Offset: i, Inst: in})
		i = next
	}

	return lines, nil
}

// Disassemble returns assembly text for an instruction, e.g. "MVI B,42h"
// or "JMP 0C000h".
func (d *Decoder) Disassemble(in Instruction) string {
	op := d.cat.Lookup(in.Code)
	if len(op.Tokens) == 0 {
		return in.Name
	}

	operands := append([]string(nil), op.Tokens[1:]...)
	switch in.Shape {
	case inst.Imm8:
		operands = append(operands, string(appendHex8(nil, in.Operands[0])))
	case inst.Imm16:
		operands = append(operands, string(appendHex16(nil, in.Word())))
	}

	if len(operands) == 0 {
		return op.Tokens[0]
	}
	return op.Tokens[0] + " " + strings.Join(operands, ",")
}

// Disassemble formats an instruction using the built-in 8080 table.
func Disassemble(in Instruction) string {
	return std.Disassemble(in)
}

func appendHex8(buf []byte, v uint8) []byte {
	const hex = "0123456789ABCDEF"
	if v >= 0xA0 {
		buf = append(buf, '0')
	}
	buf = append(buf, hex[v>>4], hex[v&0x0F], 'h')
	return buf
}

func appendHex16(buf []byte, v uint16) []byte {
	const hex = "0123456789ABCDEF"
	if v>>12 >= 0xA {
		buf = append(buf, '0')
	}
	buf = append(buf, hex[v>>12], hex[(v>>8)&0x0F], hex[(v>>4)&0x0F], hex[v&0x0F], 'h')
	return buf
}
