// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package sign

import (
	"crypto/ed25519"
	"fmt"

	"github.com/kgen-foundation/kgen/lib/attest"
)

// Algorithm names the signature scheme recorded in attestation
// signature metadata.
const Algorithm = "ed25519"

// SignatureError reports a signing or verification failure: a
// missing or malformed key, or a signature that does not validate.
type SignatureError struct {
	// Op is "sign" or "verify".
	Op string

	// Reason describes what failed.
	Reason string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// Sign produces the detached signature over canonical record bytes.
func Sign(canonical []byte, key ed25519.PrivateKey) (*attest.Signature, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, &SignatureError{Op: "sign",
			Reason: fmt.Sprintf("private key is %d bytes, want %d", len(key), ed25519.PrivateKeySize)}
	}
	return &attest.Signature{
		Algorithm:     Algorithm,
		PublicKey:     []byte(key.Public().(ed25519.PublicKey)),
		SignatureData: ed25519.Sign(key, canonical),
	}, nil
}

// Verify reports whether the signature validates against the exact
// canonical bytes. Any single-bit change in content, signature, or
// key flips the result to false.
func Verify(canonical []byte, signature *attest.Signature) bool {
	if signature == nil || signature.Algorithm != Algorithm {
		return false
	}
	if len(signature.PublicKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(signature.PublicKey), canonical, signature.SignatureData)
}

// SignRecord canonicalizes the record, signs it, and attaches the
// signature. The canonical bytes are unaffected because the
// signature field is excluded from canonicalization.
func SignRecord(record *attest.Record, key ed25519.PrivateKey) error {
	canonical, err := record.CanonicalBytes()
	if err != nil {
		return err
	}
	signature, err := Sign(canonical, key)
	if err != nil {
		return err
	}
	record.Signature = signature
	return nil
}

// VerifyRecord checks a signed record's signature against its own
// canonical bytes.
func VerifyRecord(record *attest.Record) (bool, error) {
	if record.Signature == nil {
		return false, &SignatureError{Op: "verify", Reason: "record carries no signature"}
	}
	canonical, err := record.CanonicalBytes()
	if err != nil {
		return false, err
	}
	return Verify(canonical, record.Signature), nil
}
