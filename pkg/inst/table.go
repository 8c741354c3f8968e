package inst

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

//go:embed opcodes.txt
var defaultTable string

// Entry is one defined row of an opcode table.
type Entry struct {
	Code  uint8
	Field string // mnemonic field as written, e.g. "MVI B, D8"
	Line  int    // 1-based line number in the source text
}

// Tokens splits the mnemonic field on spaces and commas.
func (e Entry) Tokens() []string {
	return strings.FieldsFunc(e.Field, func(r rune) bool {
		return r == ' ' || r == ','
	})
}

// Table is the parsed form of an opcode table.
type Table struct {
	Entries  []Entry
	Reserved []uint8 // codes listed with an empty mnemonic field
	Skipped  []int   // line numbers that did not match the row format
}

// rowPattern matches "<hex>\t<tokens>"; anything after the token list is ignored.
var rowPattern = regexp.MustCompile(`(?i)^(0x[0-9a-f]+)\t([\w ,]*)`)

// ParseTable reads an opcode table, one row per line. Parsing is lenient:
// rows that don't match are skipped and recorded, never reported as errors.
// The only error returned is a read error from r, in which case the rows
// read so far are returned alongside it.
func ParseTable(r io.Reader) (*Table, error) {
	t := &Table{}

	br := bufio.NewReader(r)
	line := 0
	for {
		text, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return t, fmt.Errorf("failed to read opcode table: %w", err)
		}
		if text == "" && err == io.EOF {
			break
		}
		line++
		t.addRow(line, strings.TrimRight(text, "\r\n"))
		if err == io.EOF {
			break
		}
	}

	return t, nil
}

func (t *Table) addRow(line int, text string) {
	m := rowPattern.FindStringSubmatch(text)
	if m == nil {
		t.Skipped = append(t.Skipped, line)
		return
	}
	code, err := strconv.ParseUint(m[1][2:], 16, 8)
	if err != nil {
		// doesn't fit in a byte
		t.Skipped = append(t.Skipped, line)
		return
	}
	field := strings.TrimSpace(m[2])
	if field == "" {
		t.Reserved = append(t.Reserved, uint8(code))
		return
	}
	t.Entries = append(t.Entries, Entry{Code: uint8(code), Field: field, Line: line})
}

// ParseTableString is ParseTable over an in-memory string.
func ParseTableString(s string) *Table {
	// reading a strings.Reader never fails and lines have no length limit
	t, _ := ParseTable(strings.NewReader(s))
	return t
}

// DefaultTable returns the built-in Intel 8080 opcode table.
func DefaultTable() *Table {
	return ParseTableString(defaultTable)
}
