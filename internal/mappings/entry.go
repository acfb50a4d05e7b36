// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package mappings parses obfuscation mapping files into read-only tables.
//
// A Table maps names from one namespace (From) to another (To). Entry
// names are always given as Obfuscated (the From side, which is what a
// stack trace contains) and Deobfuscated (the To side).
package mappings

import (
	"slices"

	"github.com/dotandev/retrace/internal/names"
	"github.com/dotandev/retrace/internal/parsing"
)

// Entry is one rename. The concrete type is one of *ClassEntry,
// *MethodEntry or *FieldEntry; the set is closed.
type Entry interface {
	Kind() names.Kind
	// Owner is the obfuscated owning class. For a class entry it is the
	// class itself.
	Owner() names.Identifier
	Obfuscated() names.Identifier
	Deobfuscated() names.Identifier
	// Pos is where the entry was declared.
	Pos() parsing.Position

	sealed()
}

type entryBase struct {
	owner names.Identifier
	obf   names.Identifier
	deobf names.Identifier
	pos   parsing.Position
}

func (e *entryBase) Owner() names.Identifier        { return e.owner }
func (e *entryBase) Obfuscated() names.Identifier   { return e.obf }
func (e *entryBase) Deobfuscated() names.Identifier { return e.deobf }
func (e *entryBase) Pos() parsing.Position          { return e.pos }
func (e *entryBase) sealed()                        {}

// Supertypes is explicit hierarchy metadata for a class, in the From
// namespace. Superclass is zero when the class declared none.
type Supertypes struct {
	Superclass names.Identifier
	Interfaces []names.Identifier
}

// ClassEntry renames a class.
type ClassEntry struct {
	entryBase
	// SourceFile is the original source file name when the mapping
	// recorded one.
	SourceFile string
	// Supertypes is nil when the mapping carries no hierarchy for the
	// class.
	Supertypes *Supertypes
}

// NewClassEntry builds a class rename.
func NewClassEntry(obf, deobf string, pos parsing.Position) *ClassEntry {
	o := names.Class(obf)
	return &ClassEntry{entryBase: entryBase{owner: o, obf: o, deobf: names.Class(deobf), pos: pos}}
}

func (e *ClassEntry) Kind() names.Kind { return names.KindClass }

func (e *ClassEntry) equal(o *ClassEntry) bool {
	if e.deobf != o.deobf || e.SourceFile != o.SourceFile {
		return false
	}
	if (e.Supertypes == nil) != (o.Supertypes == nil) {
		return false
	}
	if e.Supertypes == nil {
		return true
	}
	return e.Supertypes.Superclass == o.Supertypes.Superclass &&
		slices.Equal(e.Supertypes.Interfaces, o.Supertypes.Interfaces)
}

// MethodEntry renames a method. Signature is in the From namespace.
type MethodEntry struct {
	entryBase
	Signature *names.Descriptor
	Lines     []LineRange
}

// NewMethodEntry builds a method rename. sig may be nil when the dialect
// does not record one.
func NewMethodEntry(owner, obf, deobf string, sig *names.Descriptor, lines []LineRange, pos parsing.Position) *MethodEntry {
	return &MethodEntry{
		entryBase: entryBase{owner: names.Class(owner), obf: names.Method(obf), deobf: names.Method(deobf), pos: pos},
		Signature: sig,
		Lines:     lines,
	}
}

func (e *MethodEntry) Kind() names.Kind { return names.KindMethod }

// SignatureKey is the descriptor string used in the table index, empty
// when the entry has no signature.
func (e *MethodEntry) SignatureKey() string {
	if e.Signature == nil {
		return ""
	}
	return e.Signature.String()
}

// MapLine translates an obfuscated line number. ok is false when no range
// covers the line, in which case the caller keeps the line as it was.
func (e *MethodEntry) MapLine(line uint32) (uint32, bool) {
	for _, r := range e.Lines {
		if r.Contains(line) {
			return r.Map(line), true
		}
	}
	return line, false
}

// CoversLine reports whether any of the entry's ranges contains line.
func (e *MethodEntry) CoversLine(line uint32) bool {
	_, ok := e.MapLine(line)
	return ok
}

// FieldEntry renames a field. Type is in the From namespace when known.
type FieldEntry struct {
	entryBase
	Type *names.Type
}

// NewFieldEntry builds a field rename.
func NewFieldEntry(owner, obf, deobf string, typ *names.Type, pos parsing.Position) *FieldEntry {
	return &FieldEntry{
		entryBase: entryBase{owner: names.Class(owner), obf: names.Field(obf), deobf: names.Field(deobf), pos: pos},
		Type:      typ,
	}
}

func (e *FieldEntry) Kind() names.Kind { return names.KindField }

// LineRange maps obfuscated lines [ObfStart, ObfEnd] onto original lines
// [OrigStart, OrigEnd].
type LineRange struct {
	ObfStart  uint32
	ObfEnd    uint32
	OrigStart uint32
	OrigEnd   uint32
}

// Contains reports whether line is in the obfuscated range.
func (r LineRange) Contains(line uint32) bool {
	return line >= r.ObfStart && line <= r.ObfEnd
}

// Map translates a line inside the range. Ranges of equal length shift by
// a constant; a single original line absorbs the whole range; anything
// else is scaled proportionally.
func (r LineRange) Map(line uint32) uint32 {
	obfSpan := int64(r.ObfEnd) - int64(r.ObfStart)
	origSpan := int64(r.OrigEnd) - int64(r.OrigStart)
	delta := int64(line) - int64(r.ObfStart)
	switch {
	case origSpan == 0:
		return r.OrigStart
	case obfSpan == origSpan, obfSpan == 0:
		return uint32(int64(r.OrigStart) + delta)
	default:
		return uint32(int64(r.OrigStart) + delta*origSpan/obfSpan)
	}
}

// Reverse swaps the obfuscated and original sides.
func (r LineRange) Reverse() LineRange {
	return LineRange{ObfStart: r.OrigStart, ObfEnd: r.OrigEnd, OrigStart: r.ObfStart, OrigEnd: r.ObfEnd}
}
