// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package cas

import "fmt"

// IntegrityError reports that an object's stored bytes no longer
// match the hash they are addressed by. The corrupted data is never
// returned to the caller.
type IntegrityError struct {
	// Hash is the requested (expected) content hash.
	Hash Hash

	// Computed is the digest of the bytes actually read. Zero when
	// the object could not even be decoded (truncated header, failed
	// decompression, AEAD authentication failure).
	Computed Hash

	// Path is the on-disk object location.
	Path string

	// Cause is the decode failure, if the mismatch was detected
	// before a digest could be computed.
	Cause error
}

func (e *IntegrityError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("object %s at %s failed integrity check: %v",
			FormatHash(e.Hash), e.Path, e.Cause)
	}
	return fmt.Sprintf("object %s at %s failed integrity check: stored bytes hash to %s",
		FormatHash(e.Hash), e.Path, FormatHash(e.Computed))
}

func (e *IntegrityError) Unwrap() error { return e.Cause }

// SealedObjectError reports a sealed object read through a store that
// was opened without a sealing key. The object on disk may be intact;
// this store just cannot decode it.
type SealedObjectError struct {
	Hash Hash
	Path string
}

func (e *SealedObjectError) Error() string {
	return fmt.Sprintf("object %s at %s is sealed but the store has no sealing key",
		FormatHash(e.Hash), e.Path)
}

// NotFoundError reports that no object with the given hash exists in
// the store.
type NotFoundError struct {
	Hash Hash
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("object %s not found in store", FormatHash(e.Hash))
}
