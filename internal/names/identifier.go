// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package names holds the identifier and type vocabulary shared by the
// mapping, trace and resolution packages.
package names

import (
	"fmt"
	"strings"
)

// Kind tags what an identifier names. The same literal string means
// different things in different kinds.
type Kind int

const (
	KindClass Kind = iota
	KindMethod
	KindField
	KindPackage
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindMethod:
		return "method"
	case KindField:
		return "field"
	case KindPackage:
		return "package"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Identifier is an immutable, kind-tagged name. Class and package names are
// dot-separated binary names (a.b.C$D); member names are simple names.
type Identifier struct {
	kind Kind
	name string
}

// NewIdentifier creates an identifier of the given kind. Slash-separated
// internal names are normalized to dots for classes and packages.
func NewIdentifier(kind Kind, name string) Identifier {
	if kind == KindClass || kind == KindPackage {
		name = strings.ReplaceAll(name, "/", ".")
	}
	return Identifier{kind: kind, name: name}
}

func Class(name string) Identifier   { return NewIdentifier(KindClass, name) }
func Method(name string) Identifier  { return NewIdentifier(KindMethod, name) }
func Field(name string) Identifier   { return NewIdentifier(KindField, name) }
func Package(name string) Identifier { return NewIdentifier(KindPackage, name) }

func (id Identifier) Kind() Kind     { return id.kind }
func (id Identifier) Name() string   { return id.name }
func (id Identifier) IsZero() bool   { return id.name == "" }
func (id Identifier) String() string { return id.name }

// Qualified renders the identifier with its kind, e.g. "method:render".
func (id Identifier) Qualified() string {
	return id.kind.String() + ":" + id.name
}

// MarshalText encodes the qualified form so identifiers read well in JSON.
func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.Qualified()), nil
}

// SimpleName returns the part of a class name after the last package dot.
func (id Identifier) SimpleName() string {
	if i := strings.LastIndexByte(id.name, '.'); i >= 0 {
		return id.name[i+1:]
	}
	return id.name
}

// PackageOf returns the package of a class identifier; the zero Identifier
// for classes in the default package.
func (id Identifier) PackageOf() Identifier {
	if i := strings.LastIndexByte(id.name, '.'); i >= 0 {
		return Package(id.name[:i])
	}
	return Identifier{kind: KindPackage}
}

// OuterClass strips nested-class suffixes: a.b.C$D$1 -> a.b.C.
func (id Identifier) OuterClass() Identifier {
	simple := id.SimpleName()
	if i := strings.IndexByte(simple, '$'); i > 0 {
		return Class(id.name[:len(id.name)-len(simple)+i])
	}
	return id
}
