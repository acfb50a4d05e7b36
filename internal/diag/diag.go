// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package diag renders parse and structural errors with the offending
// source line and a caret under the failing span.
package diag

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	rerrors "github.com/dotandev/retrace/internal/errors"
	"github.com/dotandev/retrace/internal/parsing"
	"github.com/fatih/color"
)

var (
	colorError    = color.New(color.Bold, color.FgHiRed)
	colorLocation = color.New(color.Bold)
	colorGutter   = color.New(color.Faint)
	colorCaret    = color.New(color.Bold, color.FgHiGreen)
	colorExpected = color.New(color.FgHiBlue)
)

// Printer writes diagnostics to w. Sources registered by file name are
// used to quote the failing line; errors without a known source are
// printed without a snippet.
type Printer struct {
	w       io.Writer
	sources map[string]string
	noColor bool
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, sources: make(map[string]string)}
}

// DisableColor turns off ANSI styling for this printer regardless of the
// terminal.
func (p *Printer) DisableColor() {
	p.noColor = true
}

func (p *Printer) paint(c *color.Color, s string) string {
	if p.noColor {
		return s
	}
	return c.Sprint(s)
}

// AddSource registers the text of file. Stack traces read from stdin use
// the empty file name.
func (p *Printer) AddSource(file, src string) {
	p.sources[file] = src
}

// diagnostic is one positioned message.
type diagnostic struct {
	file     string
	message  string
	offset   int
	line     int
	column   int
	length   int
	expected []string
	plain    bool
}

// Print renders every error reachable from err and returns how many were
// written.
func (p *Printer) Print(err error) int {
	if err == nil {
		return 0
	}
	var ds []diagnostic
	collect(err, &ds)
	for _, d := range ds {
		p.render(d)
	}
	return len(ds)
}

func collect(err error, out *[]diagnostic) {
	switch e := err.(type) {
	case *parsing.ParseError:
		*out = append(*out, diagnostic{
			file:     e.File,
			message:  e.Message,
			offset:   e.Offset,
			line:     e.Line,
			column:   e.Column,
			length:   e.Length,
			expected: e.Expected,
		})
	case *rerrors.StructuralError:
		*out = append(*out, diagnostic{
			file:    e.File,
			message: e.Message,
			offset:  e.Offset,
			line:    e.Line,
			column:  e.Column,
			length:  1,
		})
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			collect(inner, out)
		}
	default:
		*out = append(*out, diagnostic{message: err.Error(), plain: true})
	}
}

func (p *Printer) render(d diagnostic) {
	if d.plain {
		fmt.Fprintf(p.w, "%s %s\n", p.paint(colorError, "error:"), d.message)
		return
	}

	loc := fmt.Sprintf("%d:%d", d.line, d.column)
	if d.file != "" {
		loc = d.file + ":" + loc
	}
	fmt.Fprintf(p.w, "%s %s: %s", p.paint(colorError, "error:"), p.paint(colorLocation, loc), d.message)
	if len(d.expected) > 0 {
		fmt.Fprintf(p.w, " (expected %s)", p.paint(colorExpected, parsing.ExpectedList(d.expected)))
	}
	fmt.Fprintln(p.w)

	src, ok := p.sources[d.file]
	if !ok {
		return
	}
	text, start, ok := lineAt(src, d.offset)
	if !ok {
		return
	}
	gutter := fmt.Sprintf("%d", d.line)
	pad := strings.Repeat(" ", len(gutter))
	fmt.Fprintf(p.w, "%s %s\n", p.paint(colorGutter, gutter+" |"), text)
	fmt.Fprintf(p.w, "%s %s\n", p.paint(colorGutter, pad+" |"), p.paint(colorCaret, Underline(text, d.offset-start, d.length)))
}

// lineAt returns the line of src containing byte offset off, without its
// terminator, and the offset where that line starts.
func lineAt(src string, off int) (string, int, bool) {
	if off < 0 || off > len(src) {
		return "", 0, false
	}
	start := strings.LastIndexByte(src[:off], '\n') + 1
	end := len(src)
	if i := strings.IndexByte(src[start:], '\n'); i >= 0 {
		end = start + i
	}
	return strings.TrimSuffix(src[start:end], "\r"), start, true
}

// Underline builds the marker line for a span of length bytes starting at
// byte index at of text. Tabs before the span are kept so the caret lines
// up under the same terminal column.
func Underline(text string, at, length int) string {
	if at > len(text) {
		at = len(text)
	}
	var b strings.Builder
	for _, r := range text[:at] {
		if r == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	end := min(at+max(length, 1), len(text))
	width := utf8.RuneCountInString(text[at:end])
	b.WriteByte('^')
	if width > 1 {
		b.WriteString(strings.Repeat("~", width-1))
	}
	return b.String()
}
