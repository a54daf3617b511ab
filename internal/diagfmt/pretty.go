package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"p4mid/internal/diag"
	"p4mid/internal/source"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan)
	bugColor  = color.New(color.FgMagenta, color.Bold)
	noteColor = color.New(color.FgBlue)
)

// Pretty renders diagnostics in a human-readable form. It walks bag.Items()
// (call bag.Sort() first) and prints, for each diagnostic:
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//
// followed by the offending source line with a caret underline when
// opts.ShowPreview is set, then its notes when opts.ShowNotes is set.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		writeHeader(w, d, fs, opts)
		if opts.ShowPreview {
			writePreview(w, d.Primary, fs)
		}
		if opts.ShowNotes {
			for _, n := range d.Notes {
				pos := position(fs, n.Span)
				label := "note"
				if opts.Color {
					label = noteColor.Sprint(label)
				}
				fmt.Fprintf(w, "  %s: %s: %s\n", pos, label, n.Msg)
			}
		}
	}
}

func writeHeader(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	sev := d.Severity.String()
	if opts.Color {
		switch d.Severity {
		case diag.SevError:
			sev = errColor.Sprint(sev)
		case diag.SevWarning:
			sev = warnColor.Sprint(sev)
		case diag.SevBug:
			sev = bugColor.Sprint(sev)
		default:
			sev = infoColor.Sprint(sev)
		}
	}
	fmt.Fprintf(w, "%s: %s %s: %s\n", position(fs, d.Primary), sev, d.Code, d.Message)
}

func position(fs *source.FileSet, sp source.Span) string {
	if fs == nil {
		return sp.String()
	}
	f := fs.Get(sp.File)
	if f == nil {
		return sp.String()
	}
	lc := fs.Position(sp.File, sp.Start)
	return fmt.Sprintf("%s:%d:%d", f.Path, lc.Line, lc.Col)
}

// writePreview prints the source line containing the span start with a
// caret underline. Column alignment accounts for display width.
func writePreview(w io.Writer, sp source.Span, fs *source.FileSet) {
	if fs == nil {
		return
	}
	f := fs.Get(sp.File)
	if f == nil || len(f.Content) == 0 {
		return
	}
	lineStart := int(sp.Start)
	for lineStart > 0 && lineStart <= len(f.Content) && f.Content[lineStart-1] != '\n' {
		lineStart--
	}
	lineEnd := int(sp.Start)
	for lineEnd < len(f.Content) && f.Content[lineEnd] != '\n' {
		lineEnd++
	}
	if lineStart >= lineEnd {
		return
	}
	line := string(f.Content[lineStart:lineEnd])
	fmt.Fprintf(w, "  | %s\n", line)

	prefix := string(f.Content[lineStart:sp.Start])
	pad := runewidth.StringWidth(prefix)
	width := 1
	if int(sp.End) <= lineEnd && sp.End > sp.Start {
		width = runewidth.StringWidth(string(f.Content[sp.Start:sp.End]))
	}
	if width < 1 {
		width = 1
	}
	fmt.Fprintf(w, "  | %s^%s\n", strings.Repeat(" ", pad), strings.Repeat("~", width-1))
}
