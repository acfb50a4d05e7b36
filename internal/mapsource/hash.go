// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package mapsource

import (
	"crypto/sha1"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/dotandev/retrace/internal/errors"
)

// Algorithm names a supported digest.
type Algorithm string

const (
	SHA1   Algorithm = "sha1"
	SHA512 Algorithm = "sha512"
)

// Hash is an expected digest in lower-case hex.
type Hash struct {
	Algorithm Algorithm
	Value     string
}

func NewHash(alg Algorithm, value string) Hash {
	return Hash{Algorithm: alg, Value: strings.ToLower(strings.TrimSpace(value))}
}

func (h Hash) String() string {
	return string(h.Algorithm) + ":" + h.Value
}

func (h Hash) newDigest() (hash.Hash, error) {
	switch h.Algorithm {
	case SHA1:
		return sha1.New(), nil
	case SHA512:
		return sha512.New(), nil
	}
	return nil, fmt.Errorf("unsupported hash algorithm %q", h.Algorithm)
}

// Verify hashes r and compares it with the expected value.
func (h Hash) Verify(r io.Reader) error {
	d, err := h.newDigest()
	if err != nil {
		return err
	}
	if _, err := io.Copy(d, r); err != nil {
		return fmt.Errorf("failed to hash content: %w", err)
	}
	got := hex.EncodeToString(d.Sum(nil))
	if got != h.Value {
		return errors.WrapHashMismatch(string(h.Algorithm), got, h.Value)
	}
	return nil
}

// parseSidecar reads a checksum file: the first field is the hex digest,
// optionally followed by a file name.
func parseSidecar(alg Algorithm, body []byte) (Hash, error) {
	fields := strings.Fields(string(body))
	if len(fields) == 0 {
		return Hash{}, fmt.Errorf("empty %s checksum file", alg)
	}
	h := NewHash(alg, fields[0])
	if _, err := hex.DecodeString(h.Value); err != nil {
		return Hash{}, fmt.Errorf("malformed %s checksum %q", alg, fields[0])
	}
	return h, nil
}
