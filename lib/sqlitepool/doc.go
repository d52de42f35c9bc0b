// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the KGEN-standard SQLite connection
// pool.
//
// KGEN keeps its structured local state, today the provenance chain
// index, in SQLite via zombiezen.com/go/sqlite. This package wraps
// sqlitex.Pool with production defaults: WAL journal mode, NORMAL
// synchronous, a busy timeout for write contention, and per
// connection schema setup through an OnConnect hook. Callers
// [Pool.Take] a connection, do their work, and [Pool.Put] it back;
// connections are not safe for concurrent use.
//
// The package is intentionally thin. It applies pragmas and exposes
// the zombiezen types directly; callers write SQL with
// sqlitex.Execute and manage transactions with sqlitex.Save. The
// bytes of record are always the content-addressed store — the
// database is an index over them and can be rebuilt.
package sqlitepool
