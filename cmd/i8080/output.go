package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"

	"github.com/oisee/i8080-decoder/pkg/config"
	"github.com/oisee/i8080-decoder/pkg/inst"
	"github.com/oisee/i8080-decoder/pkg/result"
)

// resolveFormat picks table output for a terminal and text otherwise.
func resolveFormat(format string, w io.Writer) string {
	if format != config.FormatAuto {
		return format
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return config.FormatTable
	}
	return config.FormatText
}

func writeText(w io.Writer, l result.Listing) {
	fmt.Fprintf(w, "; %s (%d bytes)\n", l.Name, l.Size)
	if l.Raw != nil {
		fmt.Fprintln(w, strings.Join(l.Raw, "\n"))
	}
	for _, ln := range l.Lines {
		fmt.Fprintf(w, "%04x  %-8s  %s\n", ln.Offset, ln.Bytes, ln.Text)
	}
	if l.Failed() {
		fmt.Fprintf(w, "; error: %s\n", l.Err)
	}
}

func listingTable(l result.Listing) string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("%s (%d bytes)", l.Name, l.Size))

	if l.Raw != nil {
		t.AppendHeader(table.Row{"#", "Raw"})
		for i, tag := range l.Raw {
			t.AppendRow(table.Row{i, tag})
		}
	} else {
		t.AppendHeader(table.Row{"Offset", "Bytes", "Instruction", "Variant"})
		for _, ln := range l.Lines {
			t.AppendRow(table.Row{fmt.Sprintf("%04x", ln.Offset), ln.Bytes, ln.Text, ln.Name})
		}
	}
	if l.Failed() {
		t.AppendFooter(table.Row{"error", l.Err})
	}
	return t.Render()
}

func modelTable(ops []inst.Op, all bool) string {
	t := table.NewWriter()
	t.SetTitle("Decoder model")
	t.AppendHeader(table.Row{"Code", "Raw", "Variant", "Shape", "Len", "Mnemonic"})
	for i, op := range ops {
		code := op.Code
		if all {
			code = uint8(i)
		}
		variant := op.Signature()
		if !op.Defined {
			variant += " (fallback)"
		}
		t.AppendRow(table.Row{fmt.Sprintf("0x%02x", code), op.Raw, variant, op.Shape, op.Len(), op.Mnemonic()})
	}
	return t.Render()
}
