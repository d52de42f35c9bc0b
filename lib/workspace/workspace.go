// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

// Package workspace wires the KGEN core together for one workspace:
// the content-addressed store, the injection engine, the attestation
// builder, the signing keypair, and the provenance chain, all built
// from one configuration and torn down together.
//
// There is no process-wide state. Every collaborator receives the
// store instance the workspace owns; opening two workspaces gives
// two fully independent cores.
package workspace

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/kgen-foundation/kgen/lib/attest"
	"github.com/kgen-foundation/kgen/lib/cas"
	"github.com/kgen-foundation/kgen/lib/clock"
	"github.com/kgen-foundation/kgen/lib/config"
	"github.com/kgen-foundation/kgen/lib/inject"
	"github.com/kgen-foundation/kgen/lib/provenance"
	"github.com/kgen-foundation/kgen/lib/sign"
)

// Options configures Open.
type Options struct {
	// Config is the loaded configuration; nil means defaults.
	Config *config.Config

	// ToolVersion is stamped into attestation environments.
	ToolVersion string

	// Logger receives workspace events. nil discards.
	Logger *slog.Logger
}

// Workspace owns one KGEN core: store, engine, builder, chain, and
// signing identity. Open at command start, Close at teardown.
type Workspace struct {
	Config  *config.Config
	Store   *cas.Store
	Engine  *inject.Engine
	Chain   *provenance.Chain
	Builder *attest.Builder
	Clock   clock.Clock

	logger     *slog.Logger
	signingKey ed25519.PrivateKey
}

// AttestOutcome is the attestation side of a command result. When
// strict mode is off, signing problems land in Warnings instead of
// failing the command.
type AttestOutcome struct {
	// Record is the finished record, signed when signing succeeded.
	Record *attest.Record

	// SignatureValid reports whether the attached signature verifies.
	SignatureValid bool

	// Position is the record's chain position; zero when it was not
	// appended.
	Position int64

	// Warnings carries non-fatal attestation problems.
	Warnings []string
}

// Open builds a workspace from configuration. The signing keypair is
// loaded when present; its absence is only an error once something
// needs to sign (and then only in strict mode).
func Open(options Options) (*Workspace, error) {
	cfg := options.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}

	clk, err := clock.FromEnv()
	if err != nil {
		return nil, err
	}

	storeOptions := cas.Options{Logger: logger}
	if cfg.Store.Compression != "auto" {
		tag, err := cas.ParseCompressionTag(cfg.Store.Compression)
		if err != nil {
			return nil, err
		}
		storeOptions.Compression = &tag
	}
	if cfg.Store.SealingKeyFile != "" {
		key, err := os.ReadFile(cfg.Store.SealingKeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading sealing key: %w", err)
		}
		sealer, err := cas.NewSealer(key)
		if err != nil {
			return nil, err
		}
		storeOptions.Sealer = sealer
	}

	store, err := cas.NewStore(cfg.Paths.Objects, storeOptions)
	if err != nil {
		return nil, err
	}

	chain, err := provenance.Open(provenance.Options{
		DatabasePath: cfg.Paths.ChainDatabase,
		Store:        store,
		Clock:        clk,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	workspace := &Workspace{
		Config: cfg,
		Store:  store,
		Engine: inject.NewEngine(inject.Options{
			Store:    store,
			LockWait: cfg.LockWait(),
			Logger:   logger,
		}),
		Chain:   chain,
		Builder: attest.NewBuilder(clk, options.ToolVersion),
		Clock:   clk,
		logger:  logger,
	}

	// A keypair that was never generated is fine (CommitAttestation
	// degrades per strict mode), but a present-and-unloadable one is
	// an operator problem that must not masquerade as "no key".
	_, private, err := sign.LoadKeypair(cfg.Paths.Keys)
	switch {
	case err == nil:
		workspace.signingKey = private
	case errors.Is(err, fs.ErrNotExist):
	default:
		chain.Close()
		return nil, fmt.Errorf("loading signing keypair from %s: %w", cfg.Paths.Keys, err)
	}

	return workspace, nil
}

// Close releases the workspace.
func (w *Workspace) Close() error {
	return w.Chain.Close()
}

// CanSign reports whether a signing key was loaded.
func (w *Workspace) CanSign() bool {
	return w.signingKey != nil
}

// CommitAttestation parents a finished record on the current chain
// head, signs it, and appends it. Without a signing key the record
// cannot enter the chain: strict mode fails the command, otherwise
// the outcome carries the unsigned record plus a warning.
func (w *Workspace) CommitAttestation(ctx context.Context, record *attest.Record) (*AttestOutcome, error) {
	outcome := &AttestOutcome{Record: record}

	if w.signingKey == nil {
		err := &sign.SignatureError{Op: "sign", Reason: "no signing key in " + w.Config.Paths.Keys}
		if w.Config.Attestation.Strict {
			return nil, err
		}
		w.logger.Warn("attestation not signed", "error", err)
		outcome.Warnings = append(outcome.Warnings, err.Error())
		return outcome, nil
	}

	head, found, err := w.Chain.Head(ctx)
	if err != nil {
		return nil, err
	}
	if found {
		record.Provenance.ParentAttestationHash = cas.FormatHash(head.RecordHash)
	} else {
		record.Provenance.ParentAttestationHash = ""
	}

	if err := sign.SignRecord(record, w.signingKey); err != nil {
		if w.Config.Attestation.Strict {
			return nil, err
		}
		w.logger.Warn("attestation signing failed", "error", err)
		outcome.Warnings = append(outcome.Warnings, err.Error())
		return outcome, nil
	}
	outcome.SignatureValid, _ = sign.VerifyRecord(record)

	position, err := w.Chain.Append(ctx, record)
	if err != nil {
		if w.Config.Attestation.Strict {
			return nil, err
		}
		w.logger.Warn("attestation not chained", "error", err)
		outcome.Warnings = append(outcome.Warnings, err.Error())
		return outcome, nil
	}
	outcome.Position = position

	return outcome, nil
}

// RunAttested runs one attested operation: it opens a record handle,
// invokes run, finishes the record with run's exit code, and commits
// the attestation. The operation's own error is returned as-is; in
// non-strict mode attestation problems surface only in the outcome's
// warnings.
func (w *Workspace) RunAttested(ctx context.Context, info attest.CommandInfo, run func(handle *attest.Handle) (int, error)) (*AttestOutcome, error) {
	handle := w.Builder.Begin(info)
	exitCode, runErr := run(handle)
	record := handle.Finish(exitCode)

	outcome, commitErr := w.CommitAttestation(ctx, record)
	if runErr != nil {
		return outcome, runErr
	}
	return outcome, commitErr
}
