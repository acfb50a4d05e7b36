// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package mapsource

import (
	"strings"

	"github.com/dotandev/retrace/internal/errors"
	"github.com/hashicorp/go-version"
)

// CheckVersion rejects version ids that cannot name a published version.
// Ids made only of digits and dots must parse as a version number;
// snapshot and pre-release ids are passed through. Path separators are
// never allowed since the id becomes part of URLs.
func CheckVersion(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.WrapValidationError("version cannot be empty")
	}
	if strings.ContainsAny(id, `/\?#`) || strings.Contains(id, "..") {
		return errors.WrapValidationError("version " + id + " contains illegal characters")
	}
	if strings.Trim(id, "0123456789.") == "" {
		if _, err := version.NewVersion(id); err != nil {
			return errors.WrapValidationError("malformed version " + id)
		}
	}
	return nil
}
