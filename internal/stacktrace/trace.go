// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package stacktrace parses JVM stack traces into a tree that serializes
// back to the exact input text.
package stacktrace

import (
	"io"
	"strconv"
	"strings"

	"github.com/dotandev/retrace/internal/names"
)

// Header prefixes that introduce nested blocks.
const (
	CausedByPrefix   = "Caused by: "
	SuppressedPrefix = "Suppressed: "
)

// Trace is a parsed stack trace: a sequence of top-level blocks.
type Trace struct {
	Blocks []*Block
	// TrailingNewline records whether the input ended with a line break.
	TrailingNewline bool
}

// BlockKind says how a block relates to its parent.
type BlockKind int

const (
	BlockRoot BlockKind = iota
	BlockCause
	BlockSuppressed
)

// Block is one exception: a header, its frames, an optional elision
// marker, and nested cause and suppressed blocks in input order.
type Block struct {
	// Indent and Prefix precede the exception name on the header line.
	// Prefix is "Caused by: ", "Suppressed: ", an uncaught-exception
	// preamble such as `Exception in thread "main" `, or empty.
	Indent string
	Prefix string
	// Exception is the qualified exception class at the start of the
	// header, empty when the header does not start with one.
	Exception string
	// Message is the rest of the first header line.
	Message string
	// Continued holds further header lines before the first frame.
	Continued []string
	// Headless blocks start directly with a frame or elision marker.
	Headless bool

	Frames  []Frame
	Elision *Elision
	Nested  []*Block
}

// Kind reports the block's relation to its parent.
func (b *Block) Kind() BlockKind {
	switch b.Prefix {
	case CausedByPrefix:
		return BlockCause
	case SuppressedPrefix:
		return BlockSuppressed
	}
	return BlockRoot
}

// ExceptionType is the exception class as an identifier.
func (b *Block) ExceptionType() names.Identifier {
	if b.Exception == "" {
		return names.Identifier{}
	}
	return names.Class(b.Exception)
}

// Cause returns the block's direct cause, or nil.
func (b *Block) Cause() *Block {
	for _, n := range b.Nested {
		if n.Kind() == BlockCause {
			return n
		}
	}
	return nil
}

// Suppressed returns the block's suppressed exceptions.
func (b *Block) Suppressed() []*Block {
	var out []*Block
	for _, n := range b.Nested {
		if n.Kind() == BlockSuppressed {
			out = append(out, n)
		}
	}
	return out
}

// HeaderLine renders the first header line.
func (b *Block) HeaderLine() string {
	return b.Indent + b.Prefix + b.Exception + b.Message
}

// Walk visits b and every nested block depth first, in input order.
func (b *Block) Walk(fn func(*Block)) {
	fn(b)
	for _, n := range b.Nested {
		n.Walk(fn)
	}
}

// Frame is one "at" line.
type Frame struct {
	Indent string
	// Module is a module or class loader prefix including its trailing
	// slash, e.g. "java.base/" or "app//".
	Module string
	// ClassName is kept as written; hidden classes contain a slash.
	ClassName  string
	MethodName string
	Location   Location
	// Trailing is whatever followed the closing parenthesis.
	Trailing string
}

// Class is the frame's class as an identifier.
func (f Frame) Class() names.Identifier { return names.Class(f.ClassName) }

// Method is the frame's method as an identifier.
func (f Frame) Method() names.Identifier { return names.Method(f.MethodName) }

func (f Frame) String() string {
	return f.Indent + "at " + f.Module + f.ClassName + "." + f.MethodName + "(" + f.Location.String() + ")" + f.Trailing
}

// Location is the text between a frame's parentheses.
type Location struct {
	Native  bool
	File    string
	Line    uint32
	HasLine bool
}

const (
	nativeMethod  = "Native Method"
	unknownSource = "Unknown Source"
)

// IsUnknown reports a frame compiled without source information.
func (l Location) IsUnknown() bool { return l.File == unknownSource }

func (l Location) String() string {
	if l.Native {
		return nativeMethod
	}
	if l.HasLine {
		return l.File + ":" + strconv.FormatUint(uint64(l.Line), 10)
	}
	return l.File
}

// Elision is a "... N more" or "... N common frames omitted" marker. It
// is reproduced as written and never expanded.
type Elision struct {
	Raw   string
	Count int
}

// Lines renders the trace line by line.
func (t *Trace) Lines() []string {
	var out []string
	for _, b := range t.Blocks {
		out = b.appendLines(out)
	}
	return out
}

func (b *Block) appendLines(out []string) []string {
	if !b.Headless {
		out = append(out, b.HeaderLine())
		out = append(out, b.Continued...)
	}
	for _, f := range b.Frames {
		out = append(out, f.String())
	}
	if b.Elision != nil {
		out = append(out, b.Elision.Raw)
	}
	for _, n := range b.Nested {
		out = n.appendLines(out)
	}
	return out
}

// String serializes the trace with "\n" line endings.
func (t *Trace) String() string {
	s := strings.Join(t.Lines(), "\n")
	if t.TrailingNewline {
		s += "\n"
	}
	return s
}

// WriteTo writes the serialized trace to w.
func (t *Trace) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, t.String())
	return int64(n), err
}

// Walk visits every block of the trace depth first.
func (t *Trace) Walk(fn func(*Block)) {
	for _, b := range t.Blocks {
		b.Walk(fn)
	}
}
