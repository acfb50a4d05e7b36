// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package resolve maps obfuscated class, method and field references to
// their original names by searching the class hierarchy.
package resolve

import (
	"github.com/dotandev/retrace/internal/hierarchy"
	"github.com/dotandev/retrace/internal/mappings"
	"github.com/dotandev/retrace/internal/names"
)

// Reason explains an unresolved result.
type Reason int

const (
	ReasonNone Reason = iota
	NoMapping
	AmbiguousOverload
	CyclicHierarchy
)

func (r Reason) String() string {
	switch r {
	case NoMapping:
		return "no mapping"
	case AmbiguousOverload:
		return "ambiguous overload"
	case CyclicHierarchy:
		return "cyclic hierarchy"
	default:
		return "resolved"
	}
}

// Result is the outcome for one symbol occurrence.
type Result struct {
	// Name is the original name, zero when unresolved.
	Name   names.Identifier
	Reason Reason
	// Entry is the matching mapping entry. It is nil for unresolved
	// results and for special method names that are never renamed.
	Entry mappings.Entry
	// Candidates lists the competing overloads of an ambiguous lookup.
	Candidates []*mappings.MethodEntry
}

// Resolved reports whether a name was found.
func (r Result) Resolved() bool { return r.Reason == ReasonNone }

// MapLine translates an obfuscated line number through the matched
// method's line ranges. Lines outside every range come back unchanged with
// ok false.
func (r Result) MapLine(line uint32) (uint32, bool) {
	m, ok := r.Entry.(*mappings.MethodEntry)
	if !ok {
		return line, false
	}
	return m.MapLine(line)
}

func resolved(e mappings.Entry) Result {
	return Result{Name: e.Deobfuscated(), Entry: e}
}

func unresolved(reason Reason) Result {
	return Result{Reason: reason}
}

// Method describes a method reference. Signature is nil when the context
// does not provide one, as in stack traces. Line, when HasLine is set,
// narrows overloads by their line ranges.
type Method struct {
	Owner     string
	Name      string
	Signature *names.Descriptor
	Line      uint32
	HasLine   bool
}

// Resolver answers lookups against one graph. It holds no mutable state
// and is safe for concurrent use.
type Resolver struct {
	graph *hierarchy.Graph
}

// New returns a resolver over g.
func New(g *hierarchy.Graph) *Resolver {
	return &Resolver{graph: g}
}

// Graph returns the graph the resolver searches.
func (r *Resolver) Graph() *hierarchy.Graph { return r.graph }

// Class resolves a class name by direct lookup.
func (r *Resolver) Class(name string) Result {
	node, ok := r.graph.Lookup(name)
	if !ok || node.Class == nil {
		return unresolved(NoMapping)
	}
	return resolved(node.Class)
}

// Method resolves a method, searching the superclass chain and then
// interfaces depth first when the owning class does not declare it.
func (r *Resolver) Method(q Method) Result {
	res := r.walk(q.Owner, true, func(n *hierarchy.ClassNode) (Result, bool) {
		return matchMethod(n, q)
	})
	if res.Reason == NoMapping && (q.Name == "<init>" || q.Name == "<clinit>") {
		return Result{Name: names.Method(q.Name)}
	}
	return res
}

// Field resolves a field. Only the superclass chain is searched: fields
// on interfaces are found only when the interface is the owning class.
func (r *Resolver) Field(owner, name string) Result {
	return r.walk(owner, false, func(n *hierarchy.ClassNode) (Result, bool) {
		if f, ok := n.Field(name); ok {
			return resolved(f), true
		}
		return Result{}, false
	})
}

func matchMethod(n *hierarchy.ClassNode, q Method) (Result, bool) {
	overloads := n.Methods(q.Name)
	if len(overloads) == 0 {
		return Result{}, false
	}
	if q.Signature != nil {
		key := q.Signature.String()
		for _, m := range overloads {
			if m.SignatureKey() == key {
				return resolved(m), true
			}
		}
		return Result{}, false
	}

	if len(overloads) == 1 {
		return resolved(overloads[0]), true
	}
	if q.HasLine {
		var covering []*mappings.MethodEntry
		for _, m := range overloads {
			if m.CoversLine(q.Line) {
				covering = append(covering, m)
			}
		}
		if len(covering) > 0 && sameName(covering) {
			return resolved(covering[0]), true
		}
	}
	return Result{Reason: AmbiguousOverload, Candidates: overloads}, true
}

func sameName(ms []*mappings.MethodEntry) bool {
	for _, m := range ms[1:] {
		if m.Deobfuscated() != ms[0].Deobfuscated() {
			return false
		}
	}
	return true
}

// walk runs a depth-first search from owner. match ends the search when
// it reports true. A node reached again while it is still on the current
// path means the hierarchy is cyclic; that aborts the whole lookup.
func (r *Resolver) walk(owner string, interfaces bool, match func(*hierarchy.ClassNode) (Result, bool)) Result {
	start, ok := r.graph.Lookup(owner)
	if !ok {
		return unresolved(NoMapping)
	}

	onPath := make(map[hierarchy.NodeID]bool)
	done := make(map[hierarchy.NodeID]bool)

	var visit func(id hierarchy.NodeID) (Result, bool)
	visit = func(id hierarchy.NodeID) (Result, bool) {
		if onPath[id] {
			return unresolved(CyclicHierarchy), true
		}
		if done[id] {
			return Result{}, false
		}
		node := r.graph.Node(id)
		if res, ok := match(node); ok {
			return res, true
		}

		edges := node.Edges
		if !interfaces && len(edges) > 1 {
			edges = edges[:1]
		}
		onPath[id] = true
		for _, next := range edges {
			if res, stop := visit(next); stop {
				return res, true
			}
		}
		delete(onPath, id)
		done[id] = true
		return Result{}, false
	}

	if res, stop := visit(start.ID); stop {
		return res
	}
	return unresolved(NoMapping)
}
