// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"fmt"
	"strings"

	"github.com/dotandev/retrace/internal/errors"
	"github.com/dotandev/retrace/internal/names"
)

// Step is one hop between namespaces, served by one mapping source.
type Step struct {
	From names.Namespace
	To   names.Namespace
}

func (s Step) String() string { return fmt.Sprintf("%s->%s", s.From, s.To) }

// Path is an ordered list of steps.
type Path []Step

func (p Path) String() string {
	if len(p) == 0 {
		return "identity"
	}
	parts := []string{string(p[0].From)}
	for _, s := range p {
		parts = append(parts, string(s.To))
	}
	return strings.Join(parts, "->")
}

// edges lists the namespace pairs a published mapping file connects. Each
// works in both directions.
var edges = [][2]names.Namespace{
	{names.Obfuscated, names.Mojang},
	{names.Obfuscated, names.FabricIntermediary},
}

// Plan finds the shortest path of steps from one namespace to another. An
// empty path means the names are already in the target namespace.
func Plan(from, to names.Namespace) (Path, error) {
	return planOver(edges, from, to)
}

func planOver(edges [][2]names.Namespace, from, to names.Namespace) (Path, error) {
	if err := from.Validate(); err != nil {
		return nil, err
	}
	if err := to.Validate(); err != nil {
		return nil, err
	}
	if from == to {
		return Path{}, nil
	}

	adj := make(map[names.Namespace][]names.Namespace)
	for _, e := range edges {
		adj[e[0]] = append(adj[e[0]], e[1])
		adj[e[1]] = append(adj[e[1]], e[0])
	}

	prev := map[names.Namespace]names.Namespace{from: from}
	queue := []names.Namespace{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			break
		}
		for _, next := range adj[cur] {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			queue = append(queue, next)
		}
	}
	if _, ok := prev[to]; !ok {
		return nil, errors.WrapNoPath(string(from), string(to))
	}

	var path Path
	for cur := to; cur != from; cur = prev[cur] {
		path = append(Path{{From: prev[cur], To: cur}}, path...)
	}
	return path, nil
}
