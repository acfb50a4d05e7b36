// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package mappings

import (
	"fmt"
	"slices"

	rerrors "github.com/dotandev/retrace/internal/errors"
	"github.com/dotandev/retrace/internal/names"
)

type methodKey struct {
	owner, obf, sig string
}

type memberKey struct {
	owner, obf string
}

// Table is every rename of one mapping file. It is built once by a Builder
// and never mutated afterwards, so it may be shared between goroutines.
type Table struct {
	From   names.Namespace
	To     names.Namespace
	Source string

	classes     map[string]*ClassEntry
	classOrder  []string
	methods     map[methodKey]*MethodEntry
	methodNames map[memberKey][]*MethodEntry
	fields      map[memberKey]*FieldEntry
	members     map[string][]Entry
	ownerOrder  []string
}

// Len is the number of entries of every kind.
func (t *Table) Len() int {
	n := len(t.classes)
	for _, m := range t.members {
		n += len(m)
	}
	return n
}

// Class looks up a class by obfuscated name.
func (t *Table) Class(obf string) (*ClassEntry, bool) {
	e, ok := t.classes[obf]
	return e, ok
}

// Classes returns class entries in declaration order.
func (t *Table) Classes() []*ClassEntry {
	out := make([]*ClassEntry, 0, len(t.classOrder))
	for _, name := range t.classOrder {
		out = append(out, t.classes[name])
	}
	return out
}

// Owners returns every class that has a class entry or members, in
// declaration order.
func (t *Table) Owners() []string {
	return slices.Clone(t.ownerOrder)
}

// Method looks up a method by its full key.
func (t *Table) Method(owner, obf string, sig names.Descriptor) (*MethodEntry, bool) {
	e, ok := t.methods[methodKey{owner, obf, sig.String()}]
	return e, ok
}

// MethodsNamed returns every overload of obf declared directly on owner.
func (t *Table) MethodsNamed(owner, obf string) []*MethodEntry {
	return t.methodNames[memberKey{owner, obf}]
}

// Field looks up a field declared directly on owner.
func (t *Table) Field(owner, obf string) (*FieldEntry, bool) {
	e, ok := t.fields[memberKey{owner, obf}]
	return e, ok
}

// Members returns the method and field entries of owner in declaration
// order.
func (t *Table) Members(owner string) []Entry {
	return t.members[owner]
}

// Builder accumulates entries for a Table and enforces the duplicate
// rules: a byte-identical duplicate is dropped, a method repeated with the
// same rename gains the extra line ranges, anything else is a structural
// error.
type Builder struct {
	table *Table
	file  string
	errs  []*rerrors.StructuralError
}

// NewBuilder starts an empty table.
func NewBuilder(from, to names.Namespace, source string) *Builder {
	return &Builder{
		table: &Table{
			From:        from,
			To:          to,
			Source:      source,
			classes:     make(map[string]*ClassEntry),
			methods:     make(map[methodKey]*MethodEntry),
			methodNames: make(map[memberKey][]*MethodEntry),
			fields:      make(map[memberKey]*FieldEntry),
			members:     make(map[string][]Entry),
		},
		file: source,
	}
}

func (b *Builder) conflict(e Entry, format string, args ...any) {
	pos := e.Pos()
	b.errs = append(b.errs, &rerrors.StructuralError{
		File:    b.file,
		Offset:  pos.Offset,
		Line:    pos.Line,
		Column:  pos.Column,
		Message: fmt.Sprintf(format, args...),
	})
}

func (b *Builder) noteOwner(owner string) {
	if _, ok := b.table.members[owner]; ok {
		return
	}
	if _, ok := b.table.classes[owner]; ok {
		return
	}
	b.table.ownerOrder = append(b.table.ownerOrder, owner)
}

// AddClass records a class rename.
func (b *Builder) AddClass(e *ClassEntry) {
	name := e.Obfuscated().Name()
	if prev, ok := b.table.classes[name]; ok {
		if !prev.equal(e) {
			b.conflict(e, "class %s is mapped to both %s (line %d) and %s",
				name, prev.Deobfuscated(), prev.Pos().Line, e.Deobfuscated())
		}
		return
	}
	b.noteOwner(name)
	b.table.classes[name] = e
	b.table.classOrder = append(b.table.classOrder, name)
}

// AddMethod records a method rename.
func (b *Builder) AddMethod(e *MethodEntry) {
	owner, obf := e.Owner().Name(), e.Obfuscated().Name()
	key := methodKey{owner, obf, e.SignatureKey()}
	if prev, ok := b.table.methods[key]; ok {
		if prev.Deobfuscated() != e.Deobfuscated() {
			b.conflict(e, "method %s.%s%s is mapped to both %s (line %d) and %s",
				owner, obf, key.sig, prev.Deobfuscated(), prev.Pos().Line, e.Deobfuscated())
			return
		}
		for _, r := range e.Lines {
			if !slices.Contains(prev.Lines, r) {
				prev.Lines = append(prev.Lines, r)
			}
		}
		return
	}
	b.noteOwner(owner)
	b.table.methods[key] = e
	mk := memberKey{owner, obf}
	b.table.methodNames[mk] = append(b.table.methodNames[mk], e)
	b.table.members[owner] = append(b.table.members[owner], e)
}

// AddField records a field rename.
func (b *Builder) AddField(e *FieldEntry) {
	owner, obf := e.Owner().Name(), e.Obfuscated().Name()
	key := memberKey{owner, obf}
	if prev, ok := b.table.fields[key]; ok {
		if prev.Deobfuscated() != e.Deobfuscated() {
			b.conflict(e, "field %s.%s is mapped to both %s (line %d) and %s",
				owner, obf, prev.Deobfuscated(), prev.Pos().Line, e.Deobfuscated())
		}
		return
	}
	b.noteOwner(owner)
	b.table.fields[key] = e
	b.table.members[owner] = append(b.table.members[owner], e)
}

// Errors returns the structural errors found so far.
func (b *Builder) Errors() []*rerrors.StructuralError {
	return b.errs
}

// Build finishes the table. The builder must not be used afterwards.
func (b *Builder) Build() *Table {
	t := b.table
	b.table = nil
	return t
}
