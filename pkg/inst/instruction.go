package inst

import "fmt"

// Shape classifies how many operand bytes trail an opcode.
// The shape alone determines instruction length.
type Shape uint8

const (
	None  Shape = iota // opcode only, 1 byte
	Imm8               // one trailing byte, 2 bytes total
	Imm16              // 16-bit immediate or address, 3 bytes total
)

// Len returns the total instruction length in bytes (opcode + operands).
func (s Shape) Len() int {
	return int(s) + 1
}

// Arity returns the number of operand bytes carried by the instruction.
func (s Shape) Arity() int {
	return int(s)
}

func (s Shape) String() string {
	switch s {
	case None:
		return "none"
	case Imm8:
		return "d8"
	case Imm16:
		return "d16"
	}
	return fmt.Sprintf("Shape(%d)", uint8(s))
}

// RawTag is the result of raw (length-only) decoding: the opcode byte and
// the tag name derived for it. Opcodes missing from the table become the
// fallback tag {0x00, "NOP"}.
type RawTag struct {
	Code uint8
	Name string
}

// Format prints the tag name for %v and %s, and the underlying byte value
// for %d, %x and %X. Width and flags apply to the numeric forms, so %02x
// works as expected. %+v prints both, e.g. LXI_B(0x01).
func (t RawTag) Format(f fmt.State, verb rune) {
	switch verb {
	case 'd', 'x', 'X', 'o', 'b', 'c':
		fmt.Fprintf(f, fmt.FormatString(f, verb), t.Code)
	case 'v':
		if f.Flag('+') {
			fmt.Fprintf(f, "%s(0x%02x)", t.Name, t.Code)
			return
		}
		fmt.Fprint(f, t.Name)
	case 's':
		fmt.Fprintf(f, fmt.FormatString(f, verb), t.Name)
	case 'q':
		fmt.Fprintf(f, "%q", t.Name)
	default:
		fmt.Fprintf(f, "%%!%c(inst.RawTag=%s)", verb, t.Name)
	}
}

func (t RawTag) String() string {
	return t.Name
}
