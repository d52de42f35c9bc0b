// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

// Package attest builds and canonicalizes attestation records: the
// signed description of one tool execution, what it read, what it
// wrote, and where its inputs came from.
//
// A Builder hands out one Handle per execution. The handle collects
// input and output file references while the command runs and is
// finished with the exit code, producing an unsigned Record. The
// record's canonical form is deterministic CBOR with the signature
// and the declared volatile fields (execution id, process id)
// excluded, so two executions with identical inputs under a fixed
// epoch produce byte-identical canonical records.
package attest
