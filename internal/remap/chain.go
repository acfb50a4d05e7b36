// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package remap

import "github.com/dotandev/retrace/internal/stacktrace"

// Remapper rewrites a parsed trace.
type Remapper interface {
	Remap(t *stacktrace.Trace) (*stacktrace.Trace, Summary)
}

// Chain applies reconstructors in order, each one reading the names the
// previous one produced. An occurrence counts as resolved only when every
// stage resolved it; once a stage fails on it, later stages leave it
// alone. An empty chain is the identity.
type Chain []*Reconstructor

func (c Chain) Remap(t *stacktrace.Trace) (*stacktrace.Trace, Summary) {
	if len(c) == 0 {
		return t, summarize(nil)
	}
	cur := t
	var occ []occurrence
	for i, rc := range c {
		cur, occ = rc.remap(cur, occ, i == len(c)-1)
	}
	return cur, summarize(occ)
}

// Text parses src, remaps it and serializes the result.
func Text(r Remapper, src string) (string, Summary, error) {
	t, err := stacktrace.Parse(src)
	if err != nil {
		return "", Summary{}, err
	}
	out, summary := r.Remap(t)
	return out.String(), summary, nil
}
