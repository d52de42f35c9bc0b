// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

// Package sign provides Ed25519 signing and verification of
// attestation records, plus on-disk keypair management.
//
// Ed25519 signatures are deterministic: the same canonical bytes
// under the same key always produce the same signature, which keeps
// repeated attestations of identical executions byte-identical end
// to end.
package sign
