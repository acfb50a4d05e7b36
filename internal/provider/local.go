// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"github.com/dotandev/retrace/internal/mappings"
)

// LoadLocal builds a context from user supplied mapping files, the first
// being the base and the rest overlays. Any broken file fails the load;
// the error lists every problem of every file.
func LoadLocal(sources []mappings.Source) (*Context, error) {
	tables, err := mappings.LoadAll(sources)
	if err != nil {
		return nil, err
	}
	return NewContext("local", tables...)
}
