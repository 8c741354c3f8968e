package render

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/oisee/i8080-decoder/pkg/inst"
)

// constNames returns the constants declared with the given type, in order.
func constNames(t *testing.T, f *ast.File, typ string) []string {
	t.Helper()
	var names []string
	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.CONST {
			continue
		}
		current := ""
		for _, spec := range gd.Specs {
			vs := spec.(*ast.ValueSpec)
			if id, ok := vs.Type.(*ast.Ident); ok {
				current = id.Name
			}
			if current != typ {
				continue
			}
			for _, n := range vs.Names {
				names = append(names, n.Name)
			}
		}
	}
	return names
}

func renderCatalog(t *testing.T, c *inst.Catalog, opts Options) (string, *ast.File) {
	t.Helper()
	var buf bytes.Buffer
	if err := Go(&buf, c, opts); err != nil {
		t.Fatalf("Go: %v", err)
	}
	f, err := parser.ParseFile(token.NewFileSet(), "gen.go", buf.Bytes(), parser.ParseComments)
	if err != nil {
		t.Fatalf("generated source does not parse: %v\n%s", err, buf.String())
	}
	return buf.String(), f
}

func TestGoDefaultCatalog(t *testing.T) {
	c := inst.DefaultCatalog()
	src, f := renderCatalog(t, c, Options{Source: "opcodes.txt"})

	if f.Name.Name != "i8080" {
		t.Errorf("package: got %s", f.Name.Name)
	}
	if !strings.HasPrefix(src, "// Code generated by i8080 gen from opcodes.txt. DO NOT EDIT.") {
		t.Errorf("missing generated header:\n%s", src[:80])
	}

	raw := constNames(t, f, "RawOpcode")
	if len(raw) != len(c.RawTags()) {
		t.Errorf("raw constants: got %d want %d", len(raw), len(c.RawTags()))
	}
	kinds := constNames(t, f, "Kind")
	if len(kinds) != 244 {
		t.Errorf("kind constants: got %d want 244", len(kinds))
	}
	if diff := cmp.Diff([]string{"KindNop", "KindLxiB", "KindStaxB"}, kinds[:3]); diff != "" {
		t.Errorf("kind order mismatch (-want +got):\n%s", diff)
	}

	for _, want := range []string{
		`RawMVI_B:\s+"MVI_B",`,
		`KindLxiSp:\s+"LxiSp\(u8, u8\)",`,
		`KindJmp:\s+2,`,
		`KindMviA:\s+1,`,
		`KindNop:\s+0,`,
		`0x08: RawNOP,`,
		`0xC3: KindJmp,`,
		`func DecodeRaw\(buf \[\]byte\) \[\]RawOpcode \{`,
		`func Decode\(buf \[\]byte\) \(\[\]Instruction, error\) \{`,
	} {
		if !regexp.MustCompile(want).MatchString(src) {
			t.Errorf("generated source missing %s", want)
		}
	}

	// first row of the length table: NOP LXI STAX INX INR DCR MVI RLC ...
	first := regexp.MustCompile(`(?m)^\s*(1, 3, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 2, 1),\s*// 00$`)
	if !first.MatchString(src) {
		t.Errorf("length table row 00 not found")
	}
}

func TestGoCustomCatalog(t *testing.T) {
	c := inst.NewCatalog(inst.ParseTableString("0x10\tLDX D16\n0x11\tOUT D8\n0x12\tOUT C\n"))
	src, f := renderCatalog(t, c, Options{Package: "toy"})

	if f.Name.Name != "toy" {
		t.Errorf("package: got %s", f.Name.Name)
	}
	if diff := cmp.Diff([]string{"RawLDX", "RawOUT", "RawOUT_C", "RawNOP"}, constNames(t, f, "RawOpcode")); diff != "" {
		t.Errorf("raw constants mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"KindLdx", "KindOut", "KindOutC", "KindNop"}, constNames(t, f, "Kind")); diff != "" {
		t.Errorf("kind constants mismatch (-want +got):\n%s", diff)
	}
	// every undefined byte, including 0x00, falls back to NOP
	for _, want := range []string{"0x00: RawNOP,", "0xFF: KindNop,", "0x10: RawLDX,"} {
		if !strings.Contains(src, want) {
			t.Errorf("generated source missing %q", want)
		}
	}
}

func TestGoSharedNameAcrossShapes(t *testing.T) {
	c := inst.NewCatalog(inst.ParseTableString("0x01\tINC D8\n0x02\tINC\n0x03\tINC D16\n"))
	src, f := renderCatalog(t, c, Options{})

	want := []string{"KindIncD8", "KindInc", "KindIncD16", "KindNop"}
	if diff := cmp.Diff(want, constNames(t, f, "Kind")); diff != "" {
		t.Errorf("kind constants mismatch (-want +got):\n%s", diff)
	}
	for _, want := range []string{
		`KindIncD8:\s+1,`,
		`KindInc:\s+0,`,
		`KindIncD16:\s+2,`,
		`KindInc:\s+"Inc",`,
		`KindIncD8:\s+"Inc\(u8\)",`,
		`0x01: KindIncD8,`,
		`0x02: KindInc,`,
		`0x03: KindIncD16,`,
	} {
		if !regexp.MustCompile(want).MatchString(src) {
			t.Errorf("generated source missing %s", want)
		}
	}
}

func TestGoBadPackage(t *testing.T) {
	var buf bytes.Buffer
	err := Go(&buf, inst.DefaultCatalog(), Options{Package: "not-a-name"})
	if err == nil {
		t.Fatal("expected error")
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %d bytes on error", buf.Len())
	}
}
