// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package provenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/kgen-foundation/kgen/lib/attest"
	"github.com/kgen-foundation/kgen/lib/cas"
	"github.com/kgen-foundation/kgen/lib/clock"
	"github.com/kgen-foundation/kgen/lib/codec"
	"github.com/kgen-foundation/kgen/lib/sign"
	"github.com/kgen-foundation/kgen/lib/sqlitepool"
)

const schema = `
CREATE TABLE IF NOT EXISTS chain (
    position     INTEGER PRIMARY KEY AUTOINCREMENT,
    record_hash  TEXT NOT NULL UNIQUE,
    cas_hash     TEXT NOT NULL,
    parent_hash  TEXT NOT NULL DEFAULT '',
    appended_at  TEXT NOT NULL
);
`

// Entry is one link of the chain as held in the index.
type Entry struct {
	// Position is the 1-based chain position.
	Position int64

	// RecordHash is the canonical hash of the record at this
	// position, the identity child records reference as their
	// parent.
	RecordHash cas.Hash

	// EnvelopeHash addresses the signed record envelope in the
	// content-addressed store.
	EnvelopeHash cas.Hash

	// ParentHash is the record hash of the preceding entry; zero for
	// the first.
	ParentHash cas.Hash

	// AppendedAt is when the entry was appended, RFC3339 UTC.
	AppendedAt string
}

// VerifyResult reports a chain walk.
type VerifyResult struct {
	// OK is true when every link verified.
	OK bool

	// Checked is how many records were verified (all of them when
	// OK; the records before the break otherwise).
	Checked int

	// BrokenPosition is the chain position of the first broken link;
	// zero when OK.
	BrokenPosition int64

	// Reason describes the first broken link; empty when OK.
	Reason string
}

// Options configures a Chain.
type Options struct {
	// DatabasePath is the chain index file.
	DatabasePath string

	// Store holds the signed record envelopes.
	Store *cas.Store

	// Clock stamps appended_at. nil means wall clock.
	Clock clock.Clock

	// PoolSize is passed to the connection pool; zero for the
	// default.
	PoolSize int

	// Logger receives chain events. nil discards.
	Logger *slog.Logger
}

// Chain is the append-only provenance history of one workspace. Safe
// for concurrent use; SQLite serializes the appends.
type Chain struct {
	pool   *sqlitepool.Pool
	store  *cas.Store
	clock  clock.Clock
	logger *slog.Logger
}

// Open opens (creating if needed) the chain index.
func Open(options Options) (*Chain, error) {
	if options.Store == nil {
		return nil, fmt.Errorf("provenance: Store is required")
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     options.DatabasePath,
		PoolSize: options.PoolSize,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, err
	}

	return &Chain{
		pool:   pool,
		store:  options.Store,
		clock:  clk,
		logger: logger,
	}, nil
}

// Close releases the index. The store is owned by the caller.
func (c *Chain) Close() error {
	return c.pool.Close()
}

// Append adds a signed record to the chain and returns its position.
// The record's signature must verify and its parent attestation hash
// must name the current head (or be empty on an empty chain); both
// are checked inside the append transaction so concurrent appends
// cannot interleave into a fork.
func (c *Chain) Append(ctx context.Context, record *attest.Record) (int64, error) {
	valid, err := sign.VerifyRecord(record)
	if err != nil {
		return 0, err
	}
	if !valid {
		return 0, &sign.SignatureError{Op: "verify", Reason: "record signature does not validate"}
	}

	recordHash, err := record.Hash()
	if err != nil {
		return 0, err
	}
	envelope, err := codec.Marshal(record)
	if err != nil {
		return 0, fmt.Errorf("encoding record envelope: %w", err)
	}
	envelopeHash, err := c.store.Put(envelope)
	if err != nil {
		return 0, fmt.Errorf("storing record envelope: %w", err)
	}

	conn, err := c.pool.Take(ctx)
	if err != nil {
		return 0, err
	}
	defer c.pool.Put(conn)

	var position int64
	err = func() (err error) {
		defer sqlitex.Save(conn)(&err)

		head, found, err := headEntry(conn)
		if err != nil {
			return err
		}
		expectedParent := ""
		parentColumn := ""
		if found {
			expectedParent = cas.FormatHash(head.RecordHash)
			parentColumn = expectedParent
		}
		if record.Provenance.ParentAttestationHash != expectedParent {
			return fmt.Errorf("record parent %q does not match chain head %q",
				record.Provenance.ParentAttestationHash, expectedParent)
		}

		err = sqlitex.Execute(conn,
			`INSERT INTO chain (record_hash, cas_hash, parent_hash, appended_at)
			 VALUES (?, ?, ?, ?)`,
			&sqlitex.ExecOptions{
				Args: []any{
					cas.FormatHash(recordHash),
					cas.FormatHash(envelopeHash),
					parentColumn,
					c.clock.Now().UTC().Format(time.RFC3339),
				},
			})
		if err != nil {
			return fmt.Errorf("inserting chain entry: %w", err)
		}
		position = conn.LastInsertRowID()
		return nil
	}()
	if err != nil {
		return 0, err
	}

	c.logger.Info("attestation appended",
		"position", position,
		"record_hash", recordHash,
	)
	return position, nil
}

// Head returns the newest entry, or found=false on an empty chain.
func (c *Chain) Head(ctx context.Context) (Entry, bool, error) {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	defer c.pool.Put(conn)
	return headEntry(conn)
}

// Entries returns every chain entry in position order.
func (c *Chain) Entries(ctx context.Context) ([]Entry, error) {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer c.pool.Put(conn)

	var entries []Entry
	err = sqlitex.Execute(conn,
		`SELECT position, record_hash, cas_hash, parent_hash, appended_at
		 FROM chain ORDER BY position`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entry, err := scanEntry(stmt)
				if err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("listing chain entries: %w", err)
	}
	return entries, nil
}

// Record loads and decodes the signed record at a chain entry.
func (c *Chain) Record(entry Entry) (*attest.Record, error) {
	envelope, err := c.store.Get(entry.EnvelopeHash)
	if err != nil {
		return nil, fmt.Errorf("loading record envelope at position %d: %w", entry.Position, err)
	}
	var record attest.Record
	if err := codec.Unmarshal(envelope, &record); err != nil {
		return nil, fmt.Errorf("decoding record envelope at position %d: %w", entry.Position, err)
	}
	return &record, nil
}

// Verify walks the whole chain from the first record, re-verifying
// each signature, recomputing each canonical hash, and confirming
// each parent link against the actual hash of the preceding record.
func (c *Chain) Verify(ctx context.Context) (*VerifyResult, error) {
	entries, err := c.Entries(ctx)
	if err != nil {
		return nil, err
	}

	broken := func(position int64, checked int, format string, args ...any) *VerifyResult {
		return &VerifyResult{
			Checked:        checked,
			BrokenPosition: position,
			Reason:         fmt.Sprintf(format, args...),
		}
	}

	var previousHash cas.Hash
	for i, entry := range entries {
		record, err := c.Record(entry)
		if err != nil {
			return broken(entry.Position, i, "record unreadable: %v", err), nil
		}

		valid, err := sign.VerifyRecord(record)
		if err != nil || !valid {
			return broken(entry.Position, i, "signature does not validate"), nil
		}

		actualHash, err := record.Hash()
		if err != nil {
			return broken(entry.Position, i, "record not canonicalizable: %v", err), nil
		}
		if actualHash != entry.RecordHash {
			return broken(entry.Position, i, "record hash mismatch: index has %s, record is %s",
				entry.RecordHash, actualHash), nil
		}

		expectedParent := ""
		if i > 0 {
			expectedParent = cas.FormatHash(previousHash)
		}
		if record.Provenance.ParentAttestationHash != expectedParent {
			return broken(entry.Position, i, "parent link %q does not match preceding record %q",
				record.Provenance.ParentAttestationHash, expectedParent), nil
		}

		previousHash = actualHash
	}

	return &VerifyResult{OK: true, Checked: len(entries)}, nil
}

func headEntry(conn *sqlite.Conn) (Entry, bool, error) {
	var head Entry
	found := false
	err := sqlitex.Execute(conn,
		`SELECT position, record_hash, cas_hash, parent_hash, appended_at
		 FROM chain ORDER BY position DESC LIMIT 1`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entry, err := scanEntry(stmt)
				if err != nil {
					return err
				}
				head = entry
				found = true
				return nil
			},
		})
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading chain head: %w", err)
	}
	return head, found, nil
}

func scanEntry(stmt *sqlite.Stmt) (Entry, error) {
	entry := Entry{
		Position:   stmt.ColumnInt64(0),
		AppendedAt: stmt.ColumnText(4),
	}

	recordHash, err := cas.ParseHash(stmt.ColumnText(1))
	if err != nil {
		return Entry{}, fmt.Errorf("chain entry %d: %w", entry.Position, err)
	}
	entry.RecordHash = recordHash

	envelopeHash, err := cas.ParseHash(stmt.ColumnText(2))
	if err != nil {
		return Entry{}, fmt.Errorf("chain entry %d: %w", entry.Position, err)
	}
	entry.EnvelopeHash = envelopeHash

	if parent := stmt.ColumnText(3); parent != "" {
		parentHash, err := cas.ParseHash(parent)
		if err != nil {
			return Entry{}, fmt.Errorf("chain entry %d: %w", entry.Position, err)
		}
		entry.ParentHash = parentHash
	}
	return entry, nil
}
