// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

// Package inject implements atomic, idempotent mutation of existing
// text files via marker-relative or positional directives.
//
// Every directive execution runs the same state machine regardless of
// mode:
//
//	Pending → Validating → (Skipped | Staging → Verifying →
//	Committing → Committed)
//
// with any failure in Validating, Staging, or Verifying landing in
// RolledBack: the target file is byte-identical to its state before
// the operation began and no staging artifact survives. Only the
// Staging computation differs between modes — the atomicity logic is
// shared, never duplicated per mode.
//
// Staging writes the new content to a temp file beside the target;
// Committing is a single rename, so the target is either the old
// bytes or the new bytes at every observable instant. A process
// killed between Staging and Committing leaves the original intact;
// Recover sweeps the orphaned temp files on the next startup.
//
// Verifying performs the idempotence check: when the target already
// contains the byte-identical payload at the intended insertion
// point, the directive commits as a no-op instead of duplicating
// content. Applying the same directive twice always equals applying
// it once.
//
// Directives touching the same target path are serialized by a
// per-path lock with a bounded wait; directives on different paths
// run fully in parallel.
package inject
