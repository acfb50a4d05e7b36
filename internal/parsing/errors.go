// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package parsing

import (
	"fmt"
	"strings"

	"github.com/dotandev/retrace/internal/errors"
)

// ParseError is a grammar violation with the exact source position of the
// failure and the tokens that would have been accepted there.
type ParseError struct {
	File     string
	Message  string
	Offset   int // byte offset from the start of the source
	Line     int // 1-based
	Column   int // 1-based, in runes
	Length   int // bytes covered by the error, at least 1
	Expected []string
}

// NewError builds a ParseError located at byte index at of line.
func NewError(line Line, at, length int, message string, expected ...string) *ParseError {
	pos := line.Pos(at)
	if length < 1 {
		length = 1
	}
	return &ParseError{
		Message:  message,
		Offset:   pos.Offset,
		Line:     pos.Line,
		Column:   pos.Column,
		Length:   length,
		Expected: expected,
	}
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		b.WriteByte(':')
	}
	fmt.Fprintf(&b, "%d:%d: %s", e.Line, e.Column, e.Message)
	if len(e.Expected) > 0 {
		b.WriteString(" (expected ")
		b.WriteString(ExpectedList(e.Expected))
		b.WriteByte(')')
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return errors.ErrParse }

// ExpectedList renders an expected-token set for humans.
func ExpectedList(expected []string) string {
	switch len(expected) {
	case 0:
		return ""
	case 1:
		return expected[0]
	}
	return "one of " + strings.Join(expected, ", ")
}

// ParseErrors collects every error found in one source. A parser keeps
// going after a bad line so that all problems are reported together.
type ParseErrors []*ParseError

func (pe ParseErrors) Error() string {
	switch len(pe) {
	case 0:
		return "no parse errors"
	case 1:
		return pe[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", pe[0].Error(), len(pe)-1)
}

func (pe ParseErrors) Unwrap() []error {
	errs := make([]error, len(pe))
	for i, e := range pe {
		errs[i] = e
	}
	return errs
}

// WithFile stamps every error with the given file name.
func (pe ParseErrors) WithFile(file string) ParseErrors {
	for _, e := range pe {
		e.File = file
	}
	return pe
}

// OrNil returns nil for an empty collection so callers can return it
// directly as an error.
func (pe ParseErrors) OrNil() error {
	if len(pe) == 0 {
		return nil
	}
	return pe
}
