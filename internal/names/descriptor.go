// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package names

import (
	"fmt"
	"strings"
)

// TypeTag is the sort of a JVM type.
type TypeTag int

const (
	TypeVoid TypeTag = iota
	TypeBoolean
	TypeByte
	TypeChar
	TypeShort
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypeObject
	TypeArray
)

var primitiveSource = map[TypeTag]string{
	TypeVoid:    "void",
	TypeBoolean: "boolean",
	TypeByte:    "byte",
	TypeChar:    "char",
	TypeShort:   "short",
	TypeInt:     "int",
	TypeLong:    "long",
	TypeFloat:   "float",
	TypeDouble:  "double",
}

var primitiveDescriptor = map[TypeTag]byte{
	TypeVoid:    'V',
	TypeBoolean: 'Z',
	TypeByte:    'B',
	TypeChar:    'C',
	TypeShort:   'S',
	TypeInt:     'I',
	TypeLong:    'J',
	TypeFloat:   'F',
	TypeDouble:  'D',
}

// Type is a JVM field or return type. Object carries a dotted class name,
// Array carries its element type.
type Type struct {
	Tag    TypeTag
	Object string
	Elem   *Type
}

// ObjectType returns the type for the given class name.
func ObjectType(class string) Type {
	return Type{Tag: TypeObject, Object: strings.ReplaceAll(class, "/", ".")}
}

// ArrayOf returns an array of elem.
func ArrayOf(elem Type) Type {
	e := elem
	return Type{Tag: TypeArray, Elem: &e}
}

// TypeFromSource parses a Java source-form type such as "int",
// "java.lang.String" or "a.b.C[][]".
func TypeFromSource(name string) Type {
	if base, ok := strings.CutSuffix(name, "[]"); ok {
		return ArrayOf(TypeFromSource(base))
	}
	for tag, src := range primitiveSource {
		if src == name {
			return Type{Tag: tag}
		}
	}
	return ObjectType(name)
}

// String renders the source form.
func (t Type) String() string {
	switch t.Tag {
	case TypeObject:
		return t.Object
	case TypeArray:
		return t.Elem.String() + "[]"
	default:
		return primitiveSource[t.Tag]
	}
}

// Descriptor renders the JVM descriptor form (I, La/b/C;, [J).
func (t Type) Descriptor() string {
	var b strings.Builder
	t.writeDescriptor(&b)
	return b.String()
}

func (t Type) writeDescriptor(b *strings.Builder) {
	switch t.Tag {
	case TypeObject:
		b.WriteByte('L')
		b.WriteString(strings.ReplaceAll(t.Object, ".", "/"))
		b.WriteByte(';')
	case TypeArray:
		b.WriteByte('[')
		t.Elem.writeDescriptor(b)
	default:
		b.WriteByte(primitiveDescriptor[t.Tag])
	}
}

// MapClasses rewrites object types through fn; names fn does not know
// (ok == false) are kept.
func (t Type) MapClasses(fn func(string) (string, bool)) Type {
	switch t.Tag {
	case TypeObject:
		if mapped, ok := fn(t.Object); ok {
			return ObjectType(mapped)
		}
		return t
	case TypeArray:
		return ArrayOf(t.Elem.MapClasses(fn))
	default:
		return t
	}
}

// Descriptor is a method signature: parameter types and return type. It is
// the disambiguator between overloads that share an obfuscated name.
type Descriptor struct {
	Params []Type
	Return Type
}

// String renders the JVM descriptor, e.g. "(ILa/b/C;)V". Two descriptors
// are equal exactly when their strings are equal.
func (d Descriptor) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range d.Params {
		p.writeDescriptor(&b)
	}
	b.WriteByte(')')
	d.Return.writeDescriptor(&b)
	return b.String()
}

// SourceString renders the Java form, e.g. "void (int,a.b.C)".
func (d Descriptor) SourceString() string {
	params := make([]string, len(d.Params))
	for i, p := range d.Params {
		params[i] = p.String()
	}
	return d.Return.String() + " (" + strings.Join(params, ",") + ")"
}

// MapClasses rewrites every object type in the descriptor.
func (d Descriptor) MapClasses(fn func(string) (string, bool)) Descriptor {
	params := make([]Type, len(d.Params))
	for i, p := range d.Params {
		params[i] = p.MapClasses(fn)
	}
	return Descriptor{Params: params, Return: d.Return.MapClasses(fn)}
}

// ParseDescriptor parses a JVM method descriptor.
func ParseDescriptor(s string) (Descriptor, error) {
	if len(s) == 0 || s[0] != '(' {
		return Descriptor{}, fmt.Errorf("method descriptor %q must start with '('", s)
	}
	pos := 1
	var params []Type
	for pos < len(s) && s[pos] != ')' {
		t, n, err := parseFieldType(s, pos)
		if err != nil {
			return Descriptor{}, err
		}
		params = append(params, t)
		pos = n
	}
	if pos >= len(s) {
		return Descriptor{}, fmt.Errorf("method descriptor %q is missing ')'", s)
	}
	pos++
	ret, n, err := parseFieldType(s, pos)
	if err != nil {
		return Descriptor{}, err
	}
	if n != len(s) {
		return Descriptor{}, fmt.Errorf("trailing characters in method descriptor %q", s)
	}
	return Descriptor{Params: params, Return: ret}, nil
}

// ParseFieldDescriptor parses a single JVM field descriptor.
func ParseFieldDescriptor(s string) (Type, error) {
	t, n, err := parseFieldType(s, 0)
	if err != nil {
		return Type{}, err
	}
	if n != len(s) {
		return Type{}, fmt.Errorf("trailing characters in field descriptor %q", s)
	}
	return t, nil
}

func parseFieldType(s string, pos int) (Type, int, error) {
	if pos >= len(s) {
		return Type{}, pos, fmt.Errorf("descriptor %q ends where a type was expected", s)
	}
	c := s[pos]
	for tag, d := range primitiveDescriptor {
		if d == c {
			return Type{Tag: tag}, pos + 1, nil
		}
	}
	switch c {
	case 'L':
		end := strings.IndexByte(s[pos:], ';')
		if end < 0 {
			return Type{}, pos, fmt.Errorf("unterminated class type in descriptor %q", s)
		}
		if end == 1 {
			return Type{}, pos, fmt.Errorf("empty class type in descriptor %q", s)
		}
		return ObjectType(s[pos+1 : pos+end]), pos + end + 1, nil
	case '[':
		elem, n, err := parseFieldType(s, pos+1)
		if err != nil {
			return Type{}, pos, err
		}
		return ArrayOf(elem), n, nil
	}
	return Type{}, pos, fmt.Errorf("unexpected %q at offset %d in descriptor %q", c, pos, s)
}
