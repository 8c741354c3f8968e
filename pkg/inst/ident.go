package inst

import (
	"fmt"
	"strings"
)

// Names holds the identifiers derived for one table entry.
type Names struct {
	// Raw is the length-classification tag: the mnemonic field with
	// separators turned into underscores and the length marker removed.
	// Distinct entries may share a Raw tag.
	Raw string
	// Name is the structured variant name, e.g. "MviB" or "LxiSp".
	Name  string
	Shape Shape
}

// Length markers, checked against the tail of the working identifier in
// this order. Address operands decode exactly like 16-bit immediates.
var lengthMarkers = []struct {
	suffix string
	shape  Shape
}{
	{"__D16", Imm16},
	{"_D16", Imm16},
	{"__D8", Imm8},
	{"_D8", Imm8},
	{"_ADR", Imm16},
}

var markerTokens = []string{"D16", "D8", "ADR"}

// registers that fuse onto the preceding word of a variant name
const registerLetters = "BCDEHLMA"

var underscorer = strings.NewReplacer(" ", "_", ",", "_")

// Derive computes the raw tag, the structured variant name and the
// operand shape of a table entry.
func Derive(e Entry) Names {
	raw, shape := stripMarker(underscorer.Replace(e.Field))

	name := makeVariantName(operandTokens(e.Tokens(), shape))
	if name == "" {
		name = fmt.Sprintf("Op%02X", e.Code)
	}

	return Names{Raw: raw, Name: name, Shape: shape}
}

// stripMarker removes the first length marker found at the end of ident and
// reports the shape it selects.
func stripMarker(ident string) (string, Shape) {
	upper := strings.ToUpper(ident)
	for _, m := range lengthMarkers {
		if len(upper) > len(m.suffix) && strings.HasSuffix(upper, m.suffix) {
			return ident[:len(ident)-len(m.suffix)], m.shape
		}
	}
	return ident, None
}

// operandTokens drops the length marker from the last token.
func operandTokens(tokens []string, shape Shape) []string {
	if shape == None || len(tokens) == 0 {
		return tokens
	}
	last := tokens[len(tokens)-1]
	for _, m := range markerTokens {
		if len(last) >= len(m) && strings.EqualFold(last[len(last)-len(m):], m) {
			last = strings.TrimRight(last[:len(last)-len(m)], "_")
			break
		}
	}

	out := make([]string, 0, len(tokens))
	out = append(out, tokens[:len(tokens)-1]...)
	if last != "" {
		out = append(out, last)
	}
	return out
}

// makeVariantName lower-cases every token, title-cases its first letter and
// joins the results with no separator.
func makeVariantName(tokens []string) string {
	var b strings.Builder
	for _, tok := range tokens {
		lower := strings.ToLower(tok)
		b.WriteString(strings.ToUpper(lower[:1]))
		b.WriteString(lower[1:])
	}
	return fuseRegisters(b.String())
}

// fuseRegisters removes an underscore left in front of a single register
// letter, so "Mov_b" becomes "MovB".
func fuseRegisters(name string) string {
	if !strings.Contains(name, "_") {
		return name
	}

	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '_' && i+1 < len(name) && isRegisterToken(name, i+1) {
			b.WriteString(strings.ToUpper(name[i+1 : i+2]))
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// isRegisterToken reports whether name[i] is a register letter standing on
// its own: followed by the end of the name, an underscore, a digit or the
// capital that starts the next fused word.
func isRegisterToken(name string, i int) bool {
	if !strings.ContainsRune(registerLetters, rune(name[i]&^0x20)) {
		return false
	}
	if i+1 == len(name) {
		return true
	}
	next := name[i+1]
	return next == '_' || (next >= '0' && next <= '9') || (next >= 'A' && next <= 'Z')
}
