// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package cas

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 digest. Every hash in KGEN (object
// identity, file references, attestation record hashes) is this size
// and comes from the same content domain.
type Hash [32]byte

// AlgorithmName identifies the digest algorithm project-wide. It is
// recorded in attestation signature metadata so verifiers never have
// to guess which algorithm produced a FileRef hash.
const AlgorithmName = "blake3"

// contentDomainKey is the 32-byte key for BLAKE3 keyed hashing. The
// byte values are the ASCII encoding of the domain name, zero-padded
// to 32 bytes: readable in hex dumps, opaque to the hash function.
// Changing this key invalidates every stored hash.
var contentDomainKey = [32]byte{
	'k', 'g', 'e', 'n', '.', 'c', 'o', 'n', 't', 'e', 'n', 't',
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Digest computes the content-domain BLAKE3 keyed hash of data. Pure
// function: identical bytes produce identical hashes on every
// platform and in every invocation context.
func Digest(data []byte) Hash {
	// NewKeyed only fails on wrong key length, which the fixed-size
	// array rules out.
	hasher, err := blake3.NewKeyed(contentDomainKey[:])
	if err != nil {
		panic("cas: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash
}

// IsZero reports whether the hash is the all-zero value, which is
// never a valid content digest in KGEN's usage (it would require a
// deliberate preimage) and serves as the "no hash" sentinel.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the hex form of the hash.
func (h Hash) String() string {
	return FormatHash(h)
}

// FormatHash returns the lower-case hex encoding of a hash. This is
// the canonical text form used in attestation records, the chain
// index, logs, and CLI output.
func FormatHash(hash Hash) string {
	return hex.EncodeToString(hash[:])
}

// ParseHash parses a 64-character hex string into a Hash.
func ParseHash(hexString string) (Hash, error) {
	var hash Hash
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return hash, fmt.Errorf("parsing content hash: %w", err)
	}
	if len(decoded) != 32 {
		return hash, fmt.Errorf("content hash is %d bytes, want 32", len(decoded))
	}
	copy(hash[:], decoded)
	return hash, nil
}
