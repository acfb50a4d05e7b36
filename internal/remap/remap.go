// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package remap rewrites a parsed stack trace with resolved names.
package remap

import (
	"regexp"
	"slices"
	"strings"

	"github.com/dotandev/retrace/internal/mappings"
	"github.com/dotandev/retrace/internal/names"
	"github.com/dotandev/retrace/internal/resolve"
	"github.com/dotandev/retrace/internal/stacktrace"
)

// Options are the opt-in rewrites beyond plain identifiers.
type Options struct {
	// RemapFileNames rewrites the file token of frames whose class
	// resolved.
	RemapFileNames bool
	// JoinAmbiguous renders an ambiguous method as its candidate names
	// joined with "/". The occurrence still counts as unresolved.
	JoinAmbiguous bool
}

// Reconstructor applies one resolver to traces. It keeps no state between
// calls and may be shared.
type Reconstructor struct {
	resolver *resolve.Resolver
	opts     Options
}

// New returns a reconstructor backed by r.
func New(r *resolve.Resolver, opts Options) *Reconstructor {
	return &Reconstructor{resolver: r, opts: opts}
}

// Remap returns a new trace with every resolvable symbol rewritten, and a
// summary with one outcome per symbol occurrence. The input is not
// modified.
func (rc *Reconstructor) Remap(t *stacktrace.Trace) (*stacktrace.Trace, Summary) {
	out, occ := rc.remap(t, nil, true)
	return out, summarize(occ)
}

// occurrence is the outcome for one symbol in trace order.
type occurrence struct {
	symbol names.Identifier
	result resolve.Result
}

// pass carries per-call state while one trace is rewritten.
type pass struct {
	rc    *Reconstructor
	prev  []occurrence
	occ   []occurrence
	final bool
}

func (rc *Reconstructor) remap(t *stacktrace.Trace, prev []occurrence, final bool) (*stacktrace.Trace, []occurrence) {
	p := &pass{rc: rc, prev: prev, final: final}
	out := &stacktrace.Trace{TrailingNewline: t.TrailingNewline}
	for _, b := range t.Blocks {
		out.Blocks = append(out.Blocks, p.block(b))
	}
	return out, p.occ
}

// record decides the outcome of the next occurrence. An occurrence that an
// earlier stage failed on is passed through untouched, since its text is
// still in that stage's namespace.
func (p *pass) record(symbol names.Identifier, resolveFn func() resolve.Result) (resolve.Result, bool) {
	i := len(p.occ)
	if p.prev != nil && i < len(p.prev) {
		earlier := p.prev[i]
		if !earlier.result.Resolved() {
			p.occ = append(p.occ, earlier)
			return earlier.result, false
		}
		symbol = earlier.symbol
	}
	res := resolveFn()
	p.occ = append(p.occ, occurrence{symbol: symbol, result: res})
	return res, true
}

func (p *pass) block(b *stacktrace.Block) *stacktrace.Block {
	nb := &stacktrace.Block{
		Indent:    b.Indent,
		Prefix:    b.Prefix,
		Exception: b.Exception,
		Headless:  b.Headless,
		Elision:   b.Elision,
	}
	if b.Exception != "" {
		res, fresh := p.record(names.Class(b.Exception), func() resolve.Result {
			return p.rc.resolver.Class(b.Exception)
		})
		if fresh && res.Resolved() {
			nb.Exception = res.Name.Name()
		}
	}
	nb.Message = p.message(b.Message)
	for _, line := range b.Continued {
		nb.Continued = append(nb.Continued, p.message(line))
	}
	for _, f := range b.Frames {
		nb.Frames = append(nb.Frames, p.frame(f))
	}
	for _, n := range b.Nested {
		nb.Nested = append(nb.Nested, p.block(n))
	}
	return nb
}

func (p *pass) frame(f stacktrace.Frame) stacktrace.Frame {
	out := f

	cls, clsFresh := p.record(f.Class(), func() resolve.Result {
		return p.rc.resolver.Class(f.ClassName)
	})
	if clsFresh && cls.Resolved() {
		out.ClassName = cls.Name.Name()
	}

	q := resolve.Method{Owner: f.ClassName, Name: f.MethodName, Line: f.Location.Line, HasLine: f.Location.HasLine}
	symbol := names.Method(f.ClassName + "." + f.MethodName)
	m, mFresh := p.record(symbol, func() resolve.Result {
		return p.rc.resolver.Method(q)
	})
	if mFresh {
		switch {
		case m.Resolved():
			out.MethodName = m.Name.Name()
			if f.Location.HasLine {
				out.Location.Line, _ = m.MapLine(f.Location.Line)
			}
		case m.Reason == resolve.AmbiguousOverload && p.final && p.rc.opts.JoinAmbiguous:
			out.MethodName = joinCandidates(m.Candidates)
		}
	}

	if clsFresh && cls.Resolved() && p.rc.opts.RemapFileNames {
		out.Location.File = p.fileName(f, cls)
	}
	return out
}

func joinCandidates(cands []*mappings.MethodEntry) string {
	var all []string
	for _, c := range cands {
		all = append(all, c.Deobfuscated().Name())
	}
	slices.Sort(all)
	return strings.Join(slices.Compact(all), "/")
}

// fileName picks the original source file of a resolved frame class. The
// recorded source file wins; otherwise the file stem is looked up as a
// class in the frame's package.
func (p *pass) fileName(f stacktrace.Frame, cls resolve.Result) string {
	loc := f.Location
	if loc.Native || loc.File == "" || loc.IsUnknown() {
		return loc.File
	}
	if ce, ok := cls.Entry.(*mappings.ClassEntry); ok && ce.SourceFile != "" {
		return ce.SourceFile
	}

	stem, ext := loc.File, ""
	if i := strings.LastIndexByte(loc.File, '.'); i > 0 {
		stem, ext = loc.File[:i], loc.File[i:]
	}
	candidate := stem
	if pkg := f.Class().PackageOf(); !pkg.IsZero() {
		candidate = pkg.Name() + "." + stem
	}
	res := p.rc.resolver.Class(candidate)
	if !res.Resolved() {
		return loc.File
	}
	return res.Name.OuterClass().SimpleName() + ext
}

// messageSymbolRe matches quoted qualified names in exception messages:
// "a.b.C.d()" is a method, "a.b.C.d" a field.
var messageSymbolRe = regexp.MustCompile(`"([\p{L}_$][\p{L}\p{N}_$]*(?:\.[\p{L}_$][\p{L}\p{N}_$]*)+)(\([^"()]*\))?"`)

func (p *pass) message(text string) string {
	matches := messageSymbolRe.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		nameStart, nameEnd := m[2], m[3]
		isMethod := m[4] >= 0
		qualified := text[nameStart:nameEnd]
		dot := strings.LastIndexByte(qualified, '.')
		owner, member := qualified[:dot], qualified[dot+1:]

		var (
			symbol    names.Identifier
			resolveFn func() resolve.Result
		)
		if isMethod {
			symbol = names.Method(qualified)
			resolveFn = func() resolve.Result {
				return p.rc.resolver.Method(resolve.Method{Owner: owner, Name: member})
			}
		} else {
			symbol = names.Field(qualified)
			resolveFn = func() resolve.Result { return p.rc.resolver.Field(owner, member) }
		}

		b.WriteString(text[last:nameStart])
		cls, clsFresh := p.record(names.Class(owner), func() resolve.Result {
			return p.rc.resolver.Class(owner)
		})
		if clsFresh && cls.Resolved() {
			b.WriteString(cls.Name.Name())
		} else {
			b.WriteString(owner)
		}
		b.WriteByte('.')
		res, fresh := p.record(symbol, resolveFn)
		if fresh && res.Resolved() {
			b.WriteString(res.Name.Name())
		} else {
			b.WriteString(member)
		}
		last = nameEnd
	}
	b.WriteString(text[last:])
	return b.String()
}
