package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"qirgen/internal/diag"
	"qirgen/internal/source"
)

var (
	errorLabelColor = color.New(color.FgRed, color.Bold)
	warnLabelColor  = color.New(color.FgYellow, color.Bold)
	infoLabelColor  = color.New(color.FgCyan)
)

func severityColor(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return errorLabelColor
	case diag.SevWarning:
		return warnLabelColor
	default:
		return infoLabelColor
	}
}

// spanLocation renders "path:line:col" for a span. Empty spans carry no
// source location and report ok=false.
func spanLocation(fs *source.FileSet, sp source.Span) (string, bool) {
	if fs == nil || sp.Empty() || int(sp.File) >= fs.Len() {
		return "", false
	}
	start, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", fs.Get(sp.File).Path, start.Line, start.Col), true
}

// printDiagnostics writes one line per diagnostic, notes on their own lines.
// Callers sort the bag first.
func printDiagnostics(out io.Writer, fs *source.FileSet, bag *diag.Bag) {
	if out == nil || bag == nil || bag.Len() == 0 {
		return
	}
	for _, d := range bag.Items() {
		label := severityColor(d.Severity).Sprintf("%s[%s]", d.Severity, d.Code.ID())
		if loc, ok := spanLocation(fs, d.Primary); ok {
			fmt.Fprintf(out, "%s: %s: %s\n", loc, label, d.Message)
		} else {
			fmt.Fprintf(out, "%s: %s\n", label, d.Message)
		}
		for _, n := range d.Notes {
			if loc, ok := spanLocation(fs, n.Span); ok {
				fmt.Fprintf(out, "%s: note: %s\n", loc, n.Msg)
			} else {
				fmt.Fprintf(out, "note: %s\n", n.Msg)
			}
		}
	}
}
