// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package remap

import (
	"fmt"
	"strings"

	"github.com/dotandev/retrace/internal/names"
)

// Summary counts symbol occurrences by outcome. UnresolvedSymbols lists
// each unresolved symbol once, in the order first seen.
type Summary struct {
	ResolvedCount     int                `json:"resolved_count"`
	UnresolvedCount   int                `json:"unresolved_count"`
	UnresolvedSymbols []names.Identifier `json:"unresolved_symbols"`
	Details           []Detail           `json:"details,omitempty"`
}

// Detail explains one unresolved symbol.
type Detail struct {
	Symbol      names.Identifier `json:"symbol"`
	Reason      string           `json:"reason"`
	Occurrences int              `json:"occurrences"`
	// Candidates holds the competing names of an ambiguous overload.
	Candidates []string `json:"candidates,omitempty"`
}

func summarize(occ []occurrence) Summary {
	s := Summary{UnresolvedSymbols: []names.Identifier{}}
	seen := make(map[names.Identifier]int)
	for _, o := range occ {
		if o.result.Resolved() {
			s.ResolvedCount++
			continue
		}
		s.UnresolvedCount++
		if i, ok := seen[o.symbol]; ok {
			s.Details[i].Occurrences++
			continue
		}
		seen[o.symbol] = len(s.Details)
		s.UnresolvedSymbols = append(s.UnresolvedSymbols, o.symbol)
		d := Detail{Symbol: o.symbol, Reason: o.result.Reason.String(), Occurrences: 1}
		for _, c := range o.result.Candidates {
			d.Candidates = append(d.Candidates, c.Deobfuscated().Name()+" "+c.SignatureKey())
		}
		s.Details = append(s.Details, d)
	}
	return s
}

// Total is the number of symbol occurrences seen.
func (s Summary) Total() int { return s.ResolvedCount + s.UnresolvedCount }

// String renders a short human report.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d symbols resolved", s.ResolvedCount, s.Total())
	if s.UnresolvedCount == 0 {
		return b.String()
	}
	fmt.Fprintf(&b, ", %d unresolved:", s.UnresolvedCount)
	for _, d := range s.Details {
		fmt.Fprintf(&b, "\n  %s %s (%s", d.Symbol.Kind(), d.Symbol.Name(), d.Reason)
		if d.Occurrences > 1 {
			fmt.Fprintf(&b, ", %d times", d.Occurrences)
		}
		b.WriteByte(')')
	}
	return b.String()
}
