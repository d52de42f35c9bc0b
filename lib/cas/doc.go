// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

// Package cas implements KGEN's content-addressed storage: the single
// digest algorithm used across the whole system, and the on-disk
// object store that persists, deduplicates, and integrity-checks
// blobs by that digest.
//
// The package is organized in layers:
//
//   - Hashing: BLAKE3 in domain-separated keyed mode. One content
//     domain is used for every hash in KGEN — object identity,
//     FileRef hashes in attestations, and attestation record hashes
//     all come from Digest. Mixing algorithms between subsystems
//     would break hash-based cross-referencing, so there is exactly
//     one.
//
//   - Compression: per-object transparent compression (none, LZ4,
//     zstd) with an incompressible fallback. Hashes are always
//     computed on uncompressed bytes, so object identity is stable
//     across compression configuration changes.
//
//   - Sealing: optional XChaCha20-Poly1305 at-rest encryption with
//     HKDF-derived per-object keys. AEAD authentication failure on
//     read surfaces as an IntegrityError, same as a digest mismatch.
//
//   - Store: sharded filesystem layout (objects/ab/cd/<hex>) so
//     lookups are O(1) without directory scans. Writes go through a
//     temp file and a single atomic rename; a concurrent reader never
//     observes a partial object. Two writers racing to store
//     identical bytes converge on one object — the loser's rename is
//     a no-op, not an error.
//
// Retrieval recomputes the digest of the decoded bytes and compares
// it to the requested hash. On mismatch the data is not returned;
// the caller gets an *IntegrityError carrying both hashes and the
// object path.
package cas
