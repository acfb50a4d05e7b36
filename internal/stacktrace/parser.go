// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package stacktrace

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dotandev/retrace/internal/parsing"
)

var (
	elisionRe  = regexp.MustCompile(`^[ \t]*\.\.\. (\d+) (?:more|common frames omitted)[ \t]*$`)
	uncaughtRe = regexp.MustCompile(`^Exception in thread ".*?" `)
)

// Parse reads a whole stack trace. Unrecognized lines are kept verbatim
// as header text; only lines that start with "at " must be well formed
// frames. All malformed frames are reported together as
// parsing.ParseErrors.
func Parse(src string) (*Trace, error) {
	lines := parsing.SplitLines(src)
	if len(lines) == 0 {
		return nil, parsing.ParseErrors{
			parsing.NewError(parsing.Line{Number: 1}, 0, 1, "empty stack trace", "exception header", `"at "`),
		}
	}

	p := &parser{trace: &Trace{TrailingNewline: parsing.EndsWithNewline(src)}}
	for _, line := range lines {
		p.line(line)
	}
	if err := p.errs.OrNil(); err != nil {
		return nil, err
	}
	return p.trace, nil
}

type parser struct {
	trace *Trace
	// stack is the path from the last top-level block down to the most
	// recently opened nested block. New content may only attach along it.
	stack []*Block
	errs  parsing.ParseErrors
}

func (p *parser) top() *Block {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

func (p *parser) push(b *Block) {
	p.trace.Blocks = append(p.trace.Blocks, b)
	p.stack = []*Block{b}
}

func (p *parser) nest(at int, b *Block) {
	parent := p.stack[at]
	parent.Nested = append(parent.Nested, b)
	p.stack = append(p.stack[:at+1], b)
}

func (p *parser) line(line parsing.Line) {
	frame, isFrame, err := parseFrame(line)
	if err != nil {
		p.errs = append(p.errs, err)
		return
	}
	if isFrame {
		top := p.top()
		if top == nil || top.Elision != nil || len(top.Nested) > 0 {
			top = &Block{Headless: true}
			p.push(top)
		}
		top.Frames = append(top.Frames, frame)
		return
	}

	if m := elisionRe.FindStringSubmatch(line.Text); m != nil {
		count, _ := strconv.Atoi(m[1])
		el := &Elision{Raw: line.Text, Count: count}
		top := p.top()
		if top == nil || top.Elision != nil || len(top.Nested) > 0 {
			top = &Block{Headless: true}
			p.push(top)
		}
		top.Elision = el
		return
	}

	indent := line.Text[:parsing.ScanWhile(line.Text, 0, parsing.IsInlineSpace)]
	rest := line.Text[len(indent):]
	for _, prefix := range []string{CausedByPrefix, SuppressedPrefix} {
		if body, ok := strings.CutPrefix(rest, prefix); ok {
			p.nested(newHeader(indent, prefix, body))
			return
		}
	}

	top := p.top()
	if top != nil && !top.Headless && len(top.Frames) == 0 && top.Elision == nil && len(top.Nested) == 0 {
		top.Continued = append(top.Continued, line.Text)
		return
	}
	prefix := uncaughtRe.FindString(rest)
	p.push(newHeader(indent, prefix, rest[len(prefix):]))
}

// nested attaches a cause to the closest open block at the same indent
// and a suppressed block to the closest open block indented less.
func (p *parser) nested(b *Block) {
	for i := len(p.stack) - 1; i >= 0; i-- {
		parent := p.stack[i]
		if b.Kind() == BlockCause && len(parent.Indent) == len(b.Indent) ||
			b.Kind() == BlockSuppressed && len(parent.Indent) < len(b.Indent) {
			p.nest(i, b)
			return
		}
	}
	if len(p.stack) > 0 && b.Kind() == BlockCause {
		p.nest(len(p.stack)-1, b)
		return
	}
	p.push(b)
}

func newHeader(indent, prefix, body string) *Block {
	b := &Block{Indent: indent, Prefix: prefix}
	end := exceptionNameEnd(body)
	b.Exception, b.Message = body[:end], body[end:]
	return b
}

// exceptionNameEnd returns the length of a leading class name that is
// followed by ':' or the end of the line, or 0. Obfuscated classes often
// sit in the default package, so a single identifier counts.
func exceptionNameEnd(s string) int {
	end := parsing.ScanWhile(s, 0, func(r rune) bool {
		return parsing.IsJavaIdentPart(r) || r == '.'
	})
	if end == 0 || (end < len(s) && s[end] != ':') {
		return 0
	}
	if !isClassName(s[:end]) {
		return 0
	}
	return end
}

func isClassName(s string) bool {
	for _, part := range strings.Split(s, ".") {
		if !parsing.IsJavaIdentifier(part) {
			return false
		}
	}
	return true
}

func isClassChar(r rune) bool {
	return parsing.IsJavaIdentPart(r) || r == '.' || r == '/' || r == '-'
}

func isMethodChar(r rune) bool {
	return parsing.IsJavaIdentPart(r) || r == '-' || r == '<' || r == '>'
}

// parseFrame recognizes "at" lines. isFrame is false for anything else;
// an "at" line that is not a valid frame is an error.
func parseFrame(line parsing.Line) (Frame, bool, *parsing.ParseError) {
	c := parsing.NewCursor(line)
	f := Frame{Indent: c.Take(parsing.IsInlineSpace)}
	if !c.Accept("at ") {
		return Frame{}, false, nil
	}

	start := c.Pos
	qualified, ok := c.TakeUntil("(")
	if !ok {
		return Frame{}, true, c.ErrorAt(len(line.Text), 1, "frame has no location", `"("`)
	}
	if qualified == "" {
		return Frame{}, true, c.ErrorAt(start, 1, "frame has no class name", "class name")
	}

	f.Module = qualified[:moduleEnd(qualified)]
	symbol := qualified[len(f.Module):]
	symbolAt := start + len(f.Module)

	dot := strings.LastIndexByte(symbol, '.')
	if dot < 0 {
		return Frame{}, true, c.ErrorAt(symbolAt+len(symbol), 1, "frame has no method name", `"."`)
	}
	f.ClassName, f.MethodName = symbol[:dot], symbol[dot+1:]

	if bad := parsing.ScanWhile(f.ClassName, 0, isClassChar); bad < len(f.ClassName) || !wellDotted(f.ClassName) {
		return Frame{}, true, c.ErrorAt(symbolAt+bad, 1, "malformed class name", "class name")
	}
	methodAt := symbolAt + dot + 1
	if f.MethodName == "" {
		return Frame{}, true, c.ErrorAt(methodAt, 1, "frame has no method name", "method name")
	}
	if bad := parsing.ScanWhile(f.MethodName, 0, isMethodChar); bad < len(f.MethodName) || !validMethodName(f.MethodName) {
		return Frame{}, true, c.ErrorAt(methodAt+bad, 1, "malformed method name", "method name")
	}

	c.Accept("(")
	loc, ok := c.TakeUntil(")")
	if !ok {
		return Frame{}, true, c.ErrorAt(len(line.Text), 1, "unterminated frame location", `")"`)
	}
	c.Accept(")")
	f.Location = parseLocation(loc)
	f.Trailing = c.Rest()
	return f, true, nil
}

// moduleEnd finds the end of a module or class loader prefix: everything
// up to the last slash that does not start a hidden class suffix.
func moduleEnd(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' && !strings.HasPrefix(s[i+1:], "0x") {
			return i + 1
		}
	}
	return 0
}

func validMethodName(s string) bool {
	if strings.ContainsAny(s, "<>") {
		return parsing.IsMethodName(s)
	}
	first, _ := utf8.DecodeRuneInString(s)
	return parsing.IsJavaLetter(first) || first == '-'
}

func wellDotted(s string) bool {
	if s == "" || strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") || strings.Contains(s, "..") {
		return false
	}
	return true
}

func parseLocation(s string) Location {
	if s == nativeMethod {
		return Location{Native: true}
	}
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		digits := s[i+1:]
		if n, err := strconv.ParseUint(digits, 10, 32); err == nil && strconv.FormatUint(n, 10) == digits {
			return Location{File: s[:i], Line: uint32(n), HasLine: true}
		}
	}
	return Location{File: s}
}
