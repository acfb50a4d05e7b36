// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package parsing

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Cursor walks one line left to right. Every error it produces points at
// the current byte index, so diagnostics land on the offending token.
type Cursor struct {
	Line Line
	Pos  int
}

// NewCursor starts at the beginning of line.
func NewCursor(line Line) *Cursor {
	return &Cursor{Line: line}
}

// Rest is the unconsumed remainder of the line.
func (c *Cursor) Rest() string { return c.Line.Text[c.Pos:] }

// Done reports whether the whole line was consumed.
func (c *Cursor) Done() bool { return c.Pos >= len(c.Line.Text) }

// Peek returns the next rune, or utf8.RuneError at end of line.
func (c *Cursor) Peek() rune {
	if c.Done() {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(c.Rest())
	return r
}

// Accept consumes s if the rest of the line starts with it.
func (c *Cursor) Accept(s string) bool {
	if strings.HasPrefix(c.Rest(), s) {
		c.Pos += len(s)
		return true
	}
	return false
}

// Expect consumes s or fails with s as the expected token.
func (c *Cursor) Expect(s string) *ParseError {
	if c.Accept(s) {
		return nil
	}
	return c.Error(c.found(), strconv.Quote(s))
}

// Take consumes the longest run of runes accepted by keep.
func (c *Cursor) Take(keep func(rune) bool) string {
	start := c.Pos
	c.Pos = ScanWhile(c.Line.Text, c.Pos, keep)
	return c.Line.Text[start:c.Pos]
}

// TakeUntil consumes everything up to, not including, the next occurrence
// of sep. It returns false and consumes nothing if sep does not occur.
func (c *Cursor) TakeUntil(sep string) (string, bool) {
	i := strings.Index(c.Rest(), sep)
	if i < 0 {
		return "", false
	}
	s := c.Rest()[:i]
	c.Pos += i
	return s, true
}

// SkipSpace consumes spaces and tabs.
func (c *Cursor) SkipSpace() {
	c.Take(IsInlineSpace)
}

// Uint32 consumes a decimal number that fits in 32 bits.
func (c *Cursor) Uint32(what string) (uint32, *ParseError) {
	start := c.Pos
	digits := c.Take(func(r rune) bool { return r >= '0' && r <= '9' })
	if digits == "" {
		return 0, c.Error(c.found(), what)
	}
	n, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0, NewError(c.Line, start, len(digits), fmt.Sprintf("%s %s is out of range", what, digits))
	}
	return uint32(n), nil
}

// Error reports message at the current position.
func (c *Cursor) Error(message string, expected ...string) *ParseError {
	length := 1
	if !c.Done() {
		_, length = utf8.DecodeRuneInString(c.Rest())
	}
	return NewError(c.Line, c.Pos, length, message, expected...)
}

// Fail reports whatever is at the current position as unexpected.
func (c *Cursor) Fail(expected ...string) *ParseError {
	return c.Error(c.found(), expected...)
}

// ErrorAt reports message over an explicit byte range of the line.
func (c *Cursor) ErrorAt(at, length int, message string, expected ...string) *ParseError {
	return NewError(c.Line, at, length, message, expected...)
}

func (c *Cursor) found() string {
	if c.Done() {
		return "unexpected end of line"
	}
	return fmt.Sprintf("unexpected %q", c.Peek())
}
