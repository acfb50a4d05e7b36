// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package diag

import (
	"bytes"

	"github.com/dotandev/retrace/internal/mappings"
)

// Report is the outcome of checking one mapping file.
type Report struct {
	Name       string `json:"name"`
	Valid      bool   `json:"valid"`
	Dialect    string `json:"dialect"`
	Entries    int    `json:"entries"`
	ErrorCount int    `json:"error_count"`
	// Text holds the rendered diagnostics, without color.
	Text string `json:"diagnostics,omitempty"`
}

// CheckMappings parses src and renders every problem found in it. format
// is a dialect name; empty means detect. Only an unknown format is
// returned as an error.
func CheckMappings(name, src, format string) (*Report, error) {
	dialect, err := mappings.ParseDialect(format)
	if err != nil {
		return nil, err
	}
	if dialect == mappings.DialectAuto {
		dialect = mappings.Detect(src)
	}

	r := &Report{Name: name, Dialect: dialect.String()}
	table, err := mappings.Parse(src, mappings.ParseOptions{File: name, Dialect: dialect})
	if err != nil {
		var buf bytes.Buffer
		p := NewPrinter(&buf)
		p.DisableColor()
		p.AddSource(name, src)
		r.ErrorCount = p.Print(err)
		r.Text = buf.String()
		return r, nil
	}
	r.Valid = true
	r.Entries = table.Len()
	return r, nil
}
