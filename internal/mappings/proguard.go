// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package mappings

import (
	"encoding/json"
	"strings"

	"github.com/dotandev/retrace/internal/names"
	"github.com/dotandev/retrace/internal/parsing"
)

// ProGuard / R8 mapping files read original -> obfuscated:
//
//	com.example.Widget -> a.b.C:
//	# {"id":"sourceFile","fileName":"Widget.java"}
//	    int count -> a
//	    12:14:void render(int,java.lang.String):40:42 -> x

type pgClass struct {
	orig, obf  string
	pos        parsing.Position
	sourceFile string
	super      *pgSupertypes
	members    []pgMember
}

type pgSupertypes struct {
	superclass string
	interfaces []string
}

type pgMember struct {
	method bool
	typ    string
	name   string
	args   []string
	obf    string
	lines  *LineRange
	pos    parsing.Position
	// inlined marks a member qualified with another class, which R8 uses
	// for inline frames rather than renames.
	inlined bool
}

type pgMetadata struct {
	ID         string   `json:"id"`
	FileName   string   `json:"fileName"`
	Superclass string   `json:"superclass"`
	Interfaces []string `json:"interfaces"`
}

func parseProGuard(src string, opts ParseOptions) (*Table, *FileError) {
	var (
		classes []*pgClass
		cur     *pgClass
		broken  bool
		ferr    FileError
	)

	for _, line := range parsing.SplitLines(src) {
		if line.IsBlank() {
			continue
		}
		trimmed := strings.TrimLeft(line.Text, " \t")
		indent := len(line.Text) - len(trimmed)

		if strings.HasPrefix(trimmed, "#") {
			if cur != nil {
				cur.applyMetadata(strings.TrimSpace(trimmed[1:]))
			}
			continue
		}

		if indent == 0 {
			c, err := parseClassLine(line)
			if err != nil {
				ferr.Parse = append(ferr.Parse, err)
				cur, broken = nil, true
				continue
			}
			classes = append(classes, c)
			cur, broken = c, false
			continue
		}

		m, err := parseMemberLine(line, indent)
		if err != nil {
			ferr.Parse = append(ferr.Parse, err)
			continue
		}
		if cur == nil {
			if !broken {
				ferr.Structural = append(ferr.Structural,
					structural(opts.File, m.pos, "member %s declared before any class", m.name))
			}
			continue
		}
		cur.members = append(cur.members, m)
	}

	if !ferr.empty() {
		return nil, &ferr
	}
	return buildProGuard(classes, opts, &ferr)
}

func (c *pgClass) applyMetadata(comment string) {
	if !strings.HasPrefix(comment, "{") {
		return
	}
	var meta pgMetadata
	if err := json.Unmarshal([]byte(comment), &meta); err != nil {
		return
	}
	switch meta.ID {
	case "sourceFile":
		c.sourceFile = meta.FileName
	case "hierarchy":
		c.super = &pgSupertypes{superclass: meta.Superclass, interfaces: meta.Interfaces}
	}
}

func isClassChar(r rune) bool {
	return parsing.IsJavaIdentPart(r) || r == '.' || r == '-'
}

func isTypeChar(r rune) bool {
	return isClassChar(r) || r == '[' || r == ']'
}

func isMemberChar(r rune) bool {
	return isClassChar(r) || r == '<' || r == '>'
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func parseClassLine(line parsing.Line) (*pgClass, *parsing.ParseError) {
	c := parsing.NewCursor(line)
	orig := c.Take(isClassChar)
	if orig == "" {
		return nil, c.Fail("class name")
	}
	if err := c.Expect(" -> "); err != nil {
		return nil, err
	}
	obf := c.Take(isClassChar)
	if obf == "" {
		return nil, c.Fail("obfuscated class name")
	}
	if err := c.Expect(":"); err != nil {
		return nil, err
	}
	c.SkipSpace()
	if !c.Done() {
		return nil, c.Fail("end of line")
	}
	return &pgClass{orig: orig, obf: obf, pos: line.Pos(0)}, nil
}

func parseMemberLine(line parsing.Line, indent int) (pgMember, *parsing.ParseError) {
	c := parsing.NewCursor(line)
	c.Pos = indent
	m := pgMember{pos: line.Pos(indent)}

	if isDigit(c.Peek()) {
		start, err := c.Uint32("line number")
		if err != nil {
			return m, err
		}
		if err := c.Expect(":"); err != nil {
			return m, err
		}
		end, err := c.Uint32("line number")
		if err != nil {
			return m, err
		}
		if err := c.Expect(":"); err != nil {
			return m, err
		}
		m.lines = &LineRange{ObfStart: start, ObfEnd: end, OrigStart: start, OrigEnd: end}
	}

	m.typ = c.Take(isTypeChar)
	if m.typ == "" {
		return m, c.Fail("type")
	}
	if err := c.Expect(" "); err != nil {
		return m, err
	}
	m.name = c.Take(isMemberChar)
	if m.name == "" {
		return m, c.Fail("member name")
	}
	if i := strings.LastIndexByte(m.name, '.'); i >= 0 {
		m.name = m.name[i+1:]
		m.inlined = true
	}

	if c.Accept("(") {
		m.method = true
		open := c.Pos
		argText, ok := c.TakeUntil(")")
		if !ok {
			return m, c.ErrorAt(len(line.Text), 1, "unterminated argument list", `")"`)
		}
		if argText != "" {
			at := open
			for _, arg := range strings.Split(argText, ",") {
				if arg == "" || parsing.ScanWhile(arg, 0, isTypeChar) != len(arg) {
					return m, c.ErrorAt(at, max(len(arg), 1), "malformed argument type", "type")
				}
				m.args = append(m.args, arg)
				at += len(arg) + 1
			}
		}
		c.Accept(")")
		if c.Accept(":") {
			origStart, err := c.Uint32("original line number")
			if err != nil {
				return m, err
			}
			origEnd := origStart
			if c.Accept(":") {
				if origEnd, err = c.Uint32("original line number"); err != nil {
					return m, err
				}
			}
			if m.lines != nil {
				m.lines.OrigStart, m.lines.OrigEnd = origStart, origEnd
			}
		}
	}

	if err := c.Expect(" -> "); err != nil {
		return m, err
	}
	m.obf = c.Take(isMemberChar)
	if m.obf == "" {
		return m, c.Fail("obfuscated name")
	}
	c.SkipSpace()
	if !c.Done() {
		return m, c.Fail("end of line")
	}
	return m, nil
}

func buildProGuard(classes []*pgClass, opts ParseOptions, ferr *FileError) (*Table, *FileError) {
	origToObf := make(map[string]string, len(classes))
	for _, c := range classes {
		origToObf[c.orig] = c.obf
	}
	fromName := func(orig string) (string, bool) { return orig, false }
	if opts.Reverse {
		fromName = func(orig string) (string, bool) {
			obf, ok := origToObf[orig]
			return obf, ok
		}
	}
	rename := func(orig string) string {
		if n, ok := fromName(orig); ok {
			return n
		}
		return orig
	}

	b := NewBuilder(opts.From, opts.To, opts.File)
	for _, c := range classes {
		from, to := c.orig, c.obf
		if opts.Reverse {
			from, to = c.obf, c.orig
		}
		ce := NewClassEntry(from, to, c.pos)
		ce.SourceFile = c.sourceFile
		if c.super != nil {
			st := &Supertypes{}
			if c.super.superclass != "" {
				st.Superclass = names.Class(rename(c.super.superclass))
			}
			for _, iface := range c.super.interfaces {
				st.Interfaces = append(st.Interfaces, names.Class(rename(iface)))
			}
			ce.Supertypes = st
		}
		b.AddClass(ce)

		for _, m := range c.members {
			if m.inlined {
				continue
			}
			mFrom, mTo := m.name, m.obf
			if opts.Reverse {
				mFrom, mTo = m.obf, m.name
			}
			if !m.method {
				typ := names.TypeFromSource(m.typ).MapClasses(fromName)
				b.AddField(NewFieldEntry(from, mFrom, mTo, &typ, m.pos))
				continue
			}
			sig := names.Descriptor{Return: names.TypeFromSource(m.typ).MapClasses(fromName)}
			for _, a := range m.args {
				sig.Params = append(sig.Params, names.TypeFromSource(a).MapClasses(fromName))
			}
			var lines []LineRange
			if m.lines != nil {
				r := *m.lines
				if !opts.Reverse {
					r = r.Reverse()
				}
				lines = []LineRange{r}
			}
			b.AddMethod(NewMethodEntry(from, mFrom, mTo, &sig, lines, m.pos))
		}
	}

	if errs := b.Errors(); len(errs) > 0 {
		ferr.Structural = append(ferr.Structural, errs...)
		return nil, ferr
	}
	return b.Build(), nil
}
