// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

// Package provenance maintains the hash-linked history of signed
// attestation records for a workspace.
//
// Each appended record carries the previous record's canonical hash
// as its parent, forming a singly linked list: a record can only
// reference a record created strictly earlier, so the chain is
// acyclic by construction. The signed record envelope lives in the
// content-addressed store; a SQLite index maps chain positions to
// record hashes so the head and the walk order are a query away. The
// index is derived data — the store holds the bytes of record.
//
// Verify walks the chain from the first record, re-verifying every
// signature, recomputing every canonical hash, and confirming every
// parent link, and reports the first broken link if any.
package provenance
