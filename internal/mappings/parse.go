// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package mappings

import (
	"fmt"
	"runtime"
	"strings"

	rerrors "github.com/dotandev/retrace/internal/errors"
	"github.com/dotandev/retrace/internal/names"
	"github.com/dotandev/retrace/internal/parsing"
	"golang.org/x/sync/errgroup"
)

// Dialect is a mapping file format.
type Dialect int

const (
	DialectAuto Dialect = iota
	DialectProGuard
	DialectTiny
)

func (d Dialect) String() string {
	switch d {
	case DialectProGuard:
		return "proguard"
	case DialectTiny:
		return "tiny"
	default:
		return "auto"
	}
}

// ParseDialect accepts the names printed by Dialect.String.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return DialectAuto, nil
	case "proguard", "r8", "mojang":
		return DialectProGuard, nil
	case "tiny", "tiny2", "tinyv2":
		return DialectTiny, nil
	}
	return DialectAuto, rerrors.WrapValidationError(fmt.Sprintf("unknown mapping format %q. Must be one of: auto, proguard, tiny", s))
}

// Detect guesses the dialect from the first line.
func Detect(src string) Dialect {
	if strings.HasPrefix(src, "tiny\t") {
		return DialectTiny
	}
	return DialectProGuard
}

// ParseOptions controls how a file becomes a Table.
type ParseOptions struct {
	// File names the source in diagnostics.
	File    string
	Dialect Dialect
	// Reverse flips a ProGuard file so that its right-hand (obfuscated)
	// names become the From side.
	Reverse bool
	// FromColumn and ToColumn pick Tiny namespaces by header name. They
	// default to the first and second column.
	FromColumn string
	ToColumn   string
	// From and To label the resulting table.
	From names.Namespace
	To   names.Namespace
}

// FileError is everything that went wrong with one mapping file.
type FileError struct {
	File       string
	Parse      parsing.ParseErrors
	Structural []*rerrors.StructuralError
	// Err is set for failures that have no source position.
	Err error
}

func (e *FileError) Error() string {
	var first error
	n := len(e.Parse) + len(e.Structural)
	switch {
	case e.Err != nil:
		first = e.Err
		n++
	case len(e.Parse) > 0:
		first = e.Parse[0]
	case len(e.Structural) > 0:
		first = e.Structural[0]
	default:
		return fmt.Sprintf("%s: invalid mapping file", e.File)
	}
	if n > 1 {
		return fmt.Sprintf("%s (and %d more errors)", first, n-1)
	}
	return first.Error()
}

func (e *FileError) Unwrap() []error {
	var errs []error
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	for _, pe := range e.Parse {
		errs = append(errs, pe)
	}
	for _, se := range e.Structural {
		errs = append(errs, se)
	}
	return errs
}

func (e *FileError) empty() bool {
	return e.Err == nil && len(e.Parse) == 0 && len(e.Structural) == 0
}

// Parse reads one mapping file. On failure the error is a *FileError
// holding every problem found in the file.
func Parse(src string, opts ParseOptions) (*Table, error) {
	dialect := opts.Dialect
	if dialect == DialectAuto {
		dialect = Detect(src)
	}

	var (
		t    *Table
		ferr *FileError
	)
	switch dialect {
	case DialectTiny:
		t, ferr = parseTiny(src, opts)
	default:
		t, ferr = parseProGuard(src, opts)
	}
	if ferr != nil && !ferr.empty() {
		ferr.File = opts.File
		ferr.Parse.WithFile(opts.File)
		return nil, ferr
	}
	return t, nil
}

// Source is one mapping file to load.
type Source struct {
	Data    []byte
	Options ParseOptions
}

// LoadError aggregates the files that failed in a LoadAll call.
type LoadError struct {
	Failures []*FileError
}

func (e *LoadError) Error() string {
	if len(e.Failures) == 1 {
		return e.Failures[0].Error()
	}
	files := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		files[i] = f.File
	}
	return fmt.Sprintf("%d mapping files failed to load: %s", len(e.Failures), strings.Join(files, ", "))
}

func (e *LoadError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// LoadAll parses every source in parallel. A broken file does not stop the
// others: the tables that loaded are returned in source order together
// with a *LoadError describing the rest.
func LoadAll(sources []Source) ([]*Table, error) {
	tables := make([]*Table, len(sources))
	failures := make([]*FileError, len(sources))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, src := range sources {
		g.Go(func() error {
			t, err := Parse(string(src.Data), src.Options)
			if err != nil {
				failures[i] = asFileError(src.Options.File, err)
				return nil
			}
			tables[i] = t
			return nil
		})
	}
	_ = g.Wait()

	var (
		loaded []*Table
		lerr   LoadError
	)
	for i := range sources {
		if failures[i] != nil {
			lerr.Failures = append(lerr.Failures, failures[i])
			continue
		}
		loaded = append(loaded, tables[i])
	}
	if len(lerr.Failures) > 0 {
		return loaded, &lerr
	}
	return loaded, nil
}

func asFileError(file string, err error) *FileError {
	if fe, ok := err.(*FileError); ok {
		return fe
	}
	return &FileError{File: file, Err: err}
}

func structural(file string, pos parsing.Position, format string, args ...any) *rerrors.StructuralError {
	return &rerrors.StructuralError{
		File:    file,
		Offset:  pos.Offset,
		Line:    pos.Line,
		Column:  pos.Column,
		Message: fmt.Sprintf(format, args...),
	}
}
