// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package hierarchy builds the class inheritance graph that member lookups
// walk. Nodes live in an arena and refer to each other by index, so cyclic
// input from a broken mapping file is representable.
package hierarchy

import (
	"fmt"

	rerrors "github.com/dotandev/retrace/internal/errors"
	"github.com/dotandev/retrace/internal/mappings"
	"github.com/dotandev/retrace/internal/names"
)

// RootClass is the implicit superclass of every class that declares none.
const RootClass = "java.lang.Object"

// NodeID addresses a ClassNode inside its Graph.
type NodeID int

// ClassNode is one class: its rename, its supertypes in search order
// (superclass first, then interfaces) and the members declared on it.
type ClassNode struct {
	ID           NodeID
	Obfuscated   names.Identifier
	Deobfuscated names.Identifier
	// Class is the winning class entry, nil for stubs and for classes
	// known only through their members.
	Class *mappings.ClassEntry
	// Edges holds superclass then interfaces.
	Edges []NodeID
	// Stub nodes were only referenced as a supertype.
	Stub bool

	declared *mappings.Supertypes
	methods  map[string][]*mappings.MethodEntry
	fields   map[string]*mappings.FieldEntry
}

// Methods returns the overloads of obf declared on the class.
func (n *ClassNode) Methods(obf string) []*mappings.MethodEntry {
	return n.methods[obf]
}

// Field returns the field obf declared on the class.
func (n *ClassNode) Field(obf string) (*mappings.FieldEntry, bool) {
	f, ok := n.fields[obf]
	return f, ok
}

// Superclass returns the first edge, if any.
func (n *ClassNode) Superclass() (NodeID, bool) {
	if len(n.Edges) == 0 {
		return 0, false
	}
	return n.Edges[0], true
}

// Graph is read-only once built.
type Graph struct {
	From names.Namespace
	To   names.Namespace

	nodes []*ClassNode
	index map[string]NodeID
}

// Len is the number of nodes, stubs included.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) *ClassNode { return g.nodes[id] }

// Lookup finds the node for an obfuscated class name.
func (g *Graph) Lookup(class string) (*ClassNode, bool) {
	id, ok := g.index[names.Class(class).Name()]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

func (g *Graph) ensure(name string, stub bool) *ClassNode {
	if id, ok := g.index[name]; ok {
		n := g.nodes[id]
		if !stub {
			n.Stub = false
		}
		return n
	}
	n := &ClassNode{
		ID:         NodeID(len(g.nodes)),
		Obfuscated: names.Class(name),
		Stub:       stub,
		methods:    make(map[string][]*mappings.MethodEntry),
		fields:     make(map[string]*mappings.FieldEntry),
	}
	g.nodes = append(g.nodes, n)
	g.index[name] = n.ID
	return n
}

// Build merges tables into one graph. The first table is the base and
// every later table is an overlay: an overlay's class renames and member
// entries replace the base's for the same key, and an overlay that
// declares supertypes for a class replaces the base's edges for it.
func Build(tables ...*mappings.Table) (*Graph, error) {
	g := &Graph{index: make(map[string]NodeID)}
	for _, t := range tables {
		if err := g.adoptNamespaces(t); err != nil {
			return nil, err
		}
		for _, owner := range t.Owners() {
			node := g.ensure(owner, false)
			if ce, ok := t.Class(owner); ok {
				node.Class = ce
				node.Deobfuscated = ce.Deobfuscated()
				if ce.Supertypes != nil {
					node.declared = ce.Supertypes
				}
			}
			for _, e := range t.Members(owner) {
				switch m := e.(type) {
				case *mappings.MethodEntry:
					node.putMethod(m)
				case *mappings.FieldEntry:
					node.fields[m.Obfuscated().Name()] = m
				}
			}
		}
	}

	declaredCount := len(g.nodes)
	for i := 0; i < declaredCount; i++ {
		node := g.nodes[i]
		if node.Obfuscated.Name() == RootClass {
			continue
		}
		super := RootClass
		var ifaces []names.Identifier
		if node.declared != nil {
			if !node.declared.Superclass.IsZero() {
				super = node.declared.Superclass.Name()
			}
			ifaces = node.declared.Interfaces
		}
		node.Edges = append(node.Edges, g.ensure(super, true).ID)
		for _, iface := range ifaces {
			node.Edges = append(node.Edges, g.ensure(iface.Name(), true).ID)
		}
	}
	return g, nil
}

func (g *Graph) adoptNamespaces(t *mappings.Table) error {
	if g.From == "" && g.To == "" {
		g.From, g.To = t.From, t.To
		return nil
	}
	if t.From == "" && t.To == "" {
		return nil
	}
	if t.From != g.From || t.To != g.To {
		return rerrors.WrapValidationError(fmt.Sprintf(
			"mapping %s maps %s -> %s but the graph maps %s -> %s", t.Source, t.From, t.To, g.From, g.To))
	}
	return nil
}

func (n *ClassNode) putMethod(m *mappings.MethodEntry) {
	name := m.Obfuscated().Name()
	overloads := n.methods[name]
	for i, prev := range overloads {
		if prev.SignatureKey() == m.SignatureKey() {
			overloads[i] = m
			return
		}
	}
	n.methods[name] = append(overloads, m)
}
