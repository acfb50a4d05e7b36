// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package names

import (
	"fmt"

	"github.com/dotandev/retrace/internal/errors"
)

// Namespace identifies one naming scheme of the game's classes.
type Namespace string

const (
	Obfuscated         Namespace = "obf"
	Mojang             Namespace = "mojang"
	FabricIntermediary Namespace = "fabric"
)

// Namespaces lists the namespaces the mapping sources can bridge.
var Namespaces = []Namespace{Obfuscated, Mojang, FabricIntermediary}

// ParseNamespace accepts the short CLI spellings.
func ParseNamespace(s string) (Namespace, error) {
	switch s {
	case "obf", "official", "obfuscated":
		return Obfuscated, nil
	case "mojang", "mojmap", "named":
		return Mojang, nil
	case "fabric", "intermediary":
		return FabricIntermediary, nil
	}
	return "", errors.WrapUnknownNamespace(s)
}

// TinyName is the namespace label used in Fabric Tiny headers.
func (n Namespace) TinyName() string {
	switch n {
	case Obfuscated:
		return "official"
	case FabricIntermediary:
		return "intermediary"
	case Mojang:
		return "named"
	}
	return string(n)
}

func (n Namespace) String() string { return string(n) }

// Validate reports whether n is one of the known namespaces.
func (n Namespace) Validate() error {
	for _, known := range Namespaces {
		if n == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", errors.ErrUnknownNamespace, string(n))
}
