// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for comparison with errors.Is
var (
	ErrParse               = errors.New("parse error")
	ErrStructural          = errors.New("structural mapping error")
	ErrMappingNotAvailable = errors.New("mapping not available")
	ErrHashMismatch        = errors.New("hash mismatch")
	ErrNoPath              = errors.New("no mapping path between namespaces")
	ErrUnknownNamespace    = errors.New("unknown namespace")
	ErrVersionNotFound     = errors.New("version not found")
	ErrConfig              = errors.New("configuration error")
	ErrValidation          = errors.New("validation error")
	ErrUnauthorized        = errors.New("unauthorized")
)

// StructuralError reports a mapping file that parsed but does not make
// sense as a table: members under an undeclared class, or two conflicting
// entries for the same key.
type StructuralError struct {
	File    string
	Offset  int
	Line    int
	Column  int
	Message string
}

func (e *StructuralError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

// Wrap functions for consistent error wrapping
func WrapMappingNotAvailable(version string, err error) error {
	return fmt.Errorf("%w for %s: %w", ErrMappingNotAvailable, version, err)
}

func WrapHashMismatch(algorithm, got, want string) error {
	return fmt.Errorf("%w: %s was %s, expected %s", ErrHashMismatch, algorithm, got, want)
}

func WrapNoPath(from, to string) error {
	return fmt.Errorf("%w: %s -> %s", ErrNoPath, from, to)
}

func WrapUnknownNamespace(name string) error {
	return fmt.Errorf("%w: %q. Must be one of: obf, mojang, fabric", ErrUnknownNamespace, name)
}

func WrapVersionNotFound(version string) error {
	return fmt.Errorf("%w: no version id matched %q", ErrVersionNotFound, version)
}

func WrapConfigError(msg string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrConfig, msg, err)
}

func WrapValidationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
