// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package parsing holds the source-position plumbing shared by the mapping
// and stack trace grammars.
package parsing

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Position is a point in a source text.
type Position struct {
	Offset int
	Line   int
	Column int
}

// Line is one source line with its terminator removed. Offset is the byte
// offset of the first character in the original source, so positions stay
// exact even when lines are skipped.
type Line struct {
	Text   string
	Number int
	Offset int
}

// Pos converts a byte index within the line into a source position.
func (l Line) Pos(at int) Position {
	if at < 0 {
		at = 0
	}
	if at > len(l.Text) {
		at = len(l.Text)
	}
	return Position{
		Offset: l.Offset + at,
		Line:   l.Number,
		Column: utf8.RuneCountInString(l.Text[:at]) + 1,
	}
}

// IsBlank reports whether the line holds only whitespace.
func (l Line) IsBlank() bool {
	return strings.TrimSpace(l.Text) == ""
}

// SplitLines splits src on "\n", dropping a "\r" before it. A trailing
// newline does not produce an extra empty line.
func SplitLines(src string) []Line {
	var lines []Line
	offset := 0
	number := 1
	for offset < len(src) {
		end := strings.IndexByte(src[offset:], '\n')
		next := len(src)
		text := src[offset:]
		if end >= 0 {
			text = src[offset : offset+end]
			next = offset + end + 1
		}
		text = strings.TrimSuffix(text, "\r")
		lines = append(lines, Line{Text: text, Number: number, Offset: offset})
		offset = next
		number++
	}
	return lines
}

// EndsWithNewline reports whether src is terminated by a line break.
func EndsWithNewline(src string) bool {
	return strings.HasSuffix(src, "\n")
}

// IsJavaLetter reports whether r may start a Java identifier.
func IsJavaLetter(r rune) bool {
	return unicode.IsLetter(r) || r == '$' || r == '_'
}

// IsJavaIdentPart reports whether r may continue a Java identifier.
func IsJavaIdentPart(r rune) bool {
	return IsJavaLetter(r) || unicode.IsDigit(r)
}

// IsJavaIdentifier reports whether s is a plain Java identifier.
func IsJavaIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !IsJavaLetter(r) {
			return false
		}
		if !IsJavaIdentPart(r) {
			return false
		}
	}
	return true
}

// IsMethodName accepts identifiers plus the JVM special names.
func IsMethodName(s string) bool {
	return s == "<init>" || s == "<clinit>" || IsJavaIdentifier(s)
}

// ScanWhile returns the index of the first byte at or after start for which
// keep is false.
func ScanWhile(s string, start int, keep func(rune) bool) int {
	i := start
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !keep(r) {
			break
		}
		i += size
	}
	return i
}

// IsInlineSpace matches spaces and tabs.
func IsInlineSpace(r rune) bool {
	return r == ' ' || r == '\t'
}
