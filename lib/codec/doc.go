// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides KGEN's canonical serialization: CBOR with
// Core Deterministic Encoding (RFC 8949 §4.2). Attestation records
// are hashed and signed over these bytes, so the encoder must map
// the same logical data to the same byte sequence on every platform
// and in every run. Sorted map keys, smallest integer encoding, and
// no indefinite-length items give exactly that.
//
// Consumers import only this package, never fxamacker/cbor directly,
// so the encoding configuration cannot drift between callers.
package codec
