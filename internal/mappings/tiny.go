// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package mappings

import (
	"strings"

	rerrors "github.com/dotandev/retrace/internal/errors"
	"github.com/dotandev/retrace/internal/names"
	"github.com/dotandev/retrace/internal/parsing"
)

// Tiny v2 files are tab separated, one column per namespace:
//
//	tiny	2	0	official	intermediary
//	c	a	net/minecraft/class_1
//		m	(I)V	a	method_1
//		f	La;	b	field_1
//
// Descriptors are written in the first namespace.

type tinyClass struct {
	names   []string
	pos     parsing.Position
	members []tinyMember
}

type tinyMember struct {
	method bool
	desc   string
	descAt int
	line   parsing.Line
	names  []string
	pos    parsing.Position
}

type tinyHeader struct {
	namespaces []string
	escaped    bool
}

func parseTiny(src string, opts ParseOptions) (*Table, *FileError) {
	var ferr FileError
	lines := parsing.SplitLines(src)
	if len(lines) == 0 {
		ferr.Parse = append(ferr.Parse, parsing.NewError(parsing.Line{Number: 1}, 0, 1, "empty mapping file", `"tiny"`))
		return nil, &ferr
	}

	hdr, perr := parseTinyHeader(lines[0])
	if perr != nil {
		ferr.Parse = append(ferr.Parse, perr)
		return nil, &ferr
	}
	fromIdx, toIdx, err := tinyColumns(hdr.namespaces, opts)
	if err != nil {
		ferr.Err = err
		return nil, &ferr
	}

	var (
		classes  []*tinyClass
		cur      *tinyClass
		inHeader = true
	)
	for _, line := range lines[1:] {
		text := line.Text
		if line.IsBlank() {
			continue
		}
		member := strings.HasPrefix(text, "\tm\t") || strings.HasPrefix(text, "\tf\t")

		if inHeader && strings.HasPrefix(text, "\t") && !member {
			if strings.TrimSpace(text) == "escaped-names" {
				hdr.escaped = true
			}
			continue
		}
		inHeader = false

		switch {
		case strings.HasPrefix(text, "c\t"):
			cols, perr := tinyNames(line, 2, len(hdr.namespaces), hdr.escaped)
			if perr != nil {
				ferr.Parse = append(ferr.Parse, perr)
				cur = nil
				continue
			}
			cur = &tinyClass{names: cols, pos: line.Pos(0)}
			classes = append(classes, cur)

		case member:
			descAt := 3
			descEnd := strings.IndexByte(text[descAt:], '\t')
			if descEnd <= 0 {
				ferr.Parse = append(ferr.Parse, parsing.NewError(line, descAt, 1, "missing descriptor", "descriptor"))
				continue
			}
			cols, perr := tinyNames(line, descAt+descEnd+1, len(hdr.namespaces), hdr.escaped)
			if perr != nil {
				ferr.Parse = append(ferr.Parse, perr)
				continue
			}
			m := tinyMember{
				method: text[1] == 'm',
				desc:   text[descAt : descAt+descEnd],
				descAt: descAt,
				line:   line,
				names:  cols,
				pos:    line.Pos(1),
			}
			if cur == nil {
				if len(classes) == 0 {
					ferr.Structural = append(ferr.Structural,
						structural(opts.File, m.pos, "member %s declared before any class", cols[0]))
				}
				continue
			}
			cur.members = append(cur.members, m)

		case strings.HasPrefix(text, "\t"):
			// class comments and nested parameter, variable and comment
			// sections carry no renames
		default:
			ferr.Parse = append(ferr.Parse, parsing.NewError(line, 0, 1, "unknown section", `"c"`, `"\tm"`, `"\tf"`))
		}
	}
	if !ferr.empty() {
		return nil, &ferr
	}
	return buildTiny(classes, fromIdx, toIdx, opts, &ferr)
}

func parseTinyHeader(line parsing.Line) (tinyHeader, *parsing.ParseError) {
	fields := strings.Split(line.Text, "\t")
	at := func(i int) int {
		off := 0
		for _, f := range fields[:i] {
			off += len(f) + 1
		}
		return off
	}
	switch {
	case fields[0] != "tiny":
		return tinyHeader{}, parsing.NewError(line, 0, len(fields[0]), "not a tiny mapping file", `"tiny"`)
	case len(fields) < 2 || fields[1] != "2":
		return tinyHeader{}, parsing.NewError(line, at(min(1, len(fields))), 1, "unsupported tiny major version", `"2"`)
	case len(fields) < 5:
		return tinyHeader{}, parsing.NewError(line, len(line.Text), 1, "tiny header needs at least two namespaces", "namespace")
	}
	for i, ns := range fields[3:] {
		if ns == "" {
			return tinyHeader{}, parsing.NewError(line, at(i+3), 1, "empty namespace name", "namespace")
		}
	}
	return tinyHeader{namespaces: fields[3:]}, nil
}

func tinyColumns(namespaces []string, opts ParseOptions) (int, int, error) {
	find := func(name string, def int) (int, error) {
		if name == "" {
			return def, nil
		}
		for i, ns := range namespaces {
			if ns == name {
				return i, nil
			}
		}
		return 0, rerrors.WrapUnknownNamespace(name)
	}
	from, err := find(opts.FromColumn, 0)
	if err != nil {
		return 0, 0, err
	}
	to, err := find(opts.ToColumn, 1)
	if err != nil {
		return 0, 0, err
	}
	return from, to, nil
}

// tinyNames reads the name columns that start at byte index at. Missing
// or empty columns fall back to the first name.
func tinyNames(line parsing.Line, at, want int, escaped bool) ([]string, *parsing.ParseError) {
	if at > len(line.Text) {
		return nil, parsing.NewError(line, len(line.Text), 1, "missing names", "name")
	}
	cols := strings.Split(line.Text[at:], "\t")
	if len(cols) > want {
		extra := at
		for _, c := range cols[:want] {
			extra += len(c) + 1
		}
		return nil, parsing.NewError(line, extra, len(line.Text)-extra, "more names than namespaces", "end of line")
	}
	if cols[0] == "" {
		return nil, parsing.NewError(line, at, 1, "missing primary name", "name")
	}
	out := make([]string, want)
	for i := range out {
		name := ""
		if i < len(cols) {
			name = cols[i]
		}
		if escaped {
			name = unescapeTiny(name)
		}
		if name == "" {
			name = out[0]
		}
		out[i] = name
	}
	return out, nil
}

func unescapeTiny(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '0':
			b.WriteByte(0)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func buildTiny(classes []*tinyClass, fromIdx, toIdx int, opts ParseOptions, ferr *FileError) (*Table, *FileError) {
	primaryToFrom := make(map[string]string, len(classes))
	for _, c := range classes {
		primaryToFrom[names.Class(c.names[0]).Name()] = names.Class(c.names[fromIdx]).Name()
	}
	fromName := func(primary string) (string, bool) {
		n, ok := primaryToFrom[primary]
		return n, ok
	}

	b := NewBuilder(opts.From, opts.To, opts.File)
	for _, c := range classes {
		owner := c.names[fromIdx]
		b.AddClass(NewClassEntry(owner, c.names[toIdx], c.pos))

		for _, m := range c.members {
			from, to := m.names[fromIdx], m.names[toIdx]
			if m.method {
				d, err := names.ParseDescriptor(m.desc)
				if err != nil {
					ferr.Parse = append(ferr.Parse, parsing.NewError(m.line, m.descAt, len(m.desc), err.Error(), "method descriptor"))
					continue
				}
				sig := d.MapClasses(fromName)
				b.AddMethod(NewMethodEntry(owner, from, to, &sig, nil, m.pos))
				continue
			}
			t, err := names.ParseFieldDescriptor(m.desc)
			if err != nil {
				ferr.Parse = append(ferr.Parse, parsing.NewError(m.line, m.descAt, len(m.desc), err.Error(), "field descriptor"))
				continue
			}
			typ := t.MapClasses(fromName)
			b.AddField(NewFieldEntry(owner, from, to, &typ, m.pos))
		}
	}

	ferr.Structural = append(ferr.Structural, b.Errors()...)
	if !ferr.empty() {
		return nil, ferr
	}
	return b.Build(), nil
}
