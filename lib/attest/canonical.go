// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package attest

import (
	"fmt"

	"github.com/kgen-foundation/kgen/lib/cas"
	"github.com/kgen-foundation/kgen/lib/codec"
)

// CanonicalBytes serializes the record deterministically for hashing
// and signing. The signature and the volatile fields are zeroed
// first, so the canonical form of a record is the same before and
// after signing and across re-runs of the same execution.
func (r *Record) CanonicalBytes() ([]byte, error) {
	canonical := *r
	canonical.Signature = nil
	canonical.ExecutionID = ""
	canonical.ProcessID = 0

	data, err := codec.Marshal(&canonical)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing attestation record: %w", err)
	}
	return data, nil
}

// Hash returns the content hash of the canonical record bytes. This
// is the identity a record has in the provenance chain and the value
// child records carry as parent_attestation_hash.
func (r *Record) Hash() (cas.Hash, error) {
	canonical, err := r.CanonicalBytes()
	if err != nil {
		return cas.Hash{}, err
	}
	return cas.Digest(canonical), nil
}
