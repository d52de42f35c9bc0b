// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package inject

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kgen-foundation/kgen/lib/cas"
)

// stagingPattern names the temp files written beside targets during
// an injection. Recover matches on the same prefix.
const stagingPattern = ".kgen-tmp-*"

// DefaultLockWait bounds how long Apply blocks on another injection
// into the same target before giving up.
const DefaultLockWait = 5 * time.Second

// Status is the terminal state of a directive execution.
type Status string

const (
	// StatusCommitted means the target now holds the post-injection
	// content (possibly unchanged, when the payload was already in
	// place).
	StatusCommitted Status = "committed"

	// StatusSkipped means the skip predicate held and the target was
	// never read for staging, let alone written.
	StatusSkipped Status = "skipped"

	// StatusRolledBack means the execution failed and the target is
	// byte-identical to its state before Apply.
	StatusRolledBack Status = "rolled-back"
)

// Result reports the outcome of one directive execution.
type Result struct {
	// Status is the terminal state.
	Status Status

	// FinalHash is the content hash of the target after a commit.
	// Zero for skipped and rolled-back executions.
	FinalHash cas.Hash

	// BackupHash addresses the target's pre-image in the backing
	// store, when the directive requested a backup and the target
	// existed. Zero otherwise.
	BackupHash cas.Hash

	// NoOp is set on committed executions where the payload was
	// already in place and no write happened.
	NoOp bool
}

// Options configures an Engine.
type Options struct {
	// Store receives pre-image backups. Required only when directives
	// set Backup.
	Store *cas.Store

	// LockWait bounds the wait for the per-path lock. Zero means
	// DefaultLockWait.
	LockWait time.Duration

	// Logger receives per-execution events. nil discards.
	Logger *slog.Logger
}

// Engine executes injection directives. It is safe for concurrent
// use; executions against distinct targets proceed in parallel while
// executions against the same target are serialized.
type Engine struct {
	store    *cas.Store
	locks    *pathLocks
	lockWait time.Duration
	logger   *slog.Logger
}

// NewEngine builds an engine from options.
func NewEngine(options Options) *Engine {
	lockWait := options.LockWait
	if lockWait <= 0 {
		lockWait = DefaultLockWait
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		store:    options.Store,
		locks:    newPathLocks(),
		lockWait: lockWait,
		logger:   logger,
	}
}

// Apply executes one directive to completion. The returned Result is
// non-nil whenever the directive at least reached Validating; its
// Status says how the execution ended. A non-nil error accompanies
// every rolled-back result.
func (e *Engine) Apply(directive *Directive, vars map[string]string) (*Result, error) {
	if err := directive.Validate(); err != nil {
		return &Result{Status: StatusRolledBack}, err
	}

	target, err := filepath.Abs(directive.TargetPath)
	if err != nil {
		return &Result{Status: StatusRolledBack},
			fmt.Errorf("resolving target path: %w", err)
	}

	release, err := e.locks.acquire(target, e.lockWait)
	if err != nil {
		return &Result{Status: StatusRolledBack}, err
	}
	defer release()

	result, err := e.applyLocked(directive, target, vars)
	if err != nil {
		e.logger.Error("injection failed",
			"target", target,
			"mode", directive.Mode,
			"error", err)
		return result, err
	}

	e.logger.Info("injection finished",
		"target", target,
		"mode", directive.Mode,
		"status", result.Status,
		"noop", result.NoOp)
	return result, nil
}

func (e *Engine) applyLocked(directive *Directive, target string, vars map[string]string) (*Result, error) {
	original, exists, err := readTarget(target)
	if err != nil {
		return &Result{Status: StatusRolledBack}, err
	}

	if !exists && !directive.Mode.createsTarget() {
		return &Result{Status: StatusRolledBack}, &ValidationError{
			Path: target, Mode: directive.Mode,
			Reason: "target does not exist", Occurrences: -1,
		}
	}
	if exists && isBinary(original) {
		return &Result{Status: StatusRolledBack}, &BinaryFileError{Path: target}
	}

	if directive.SkipIf != "" {
		predicate, err := ParsePredicate(directive.SkipIf)
		if err != nil {
			// Validate already parsed it; a failure here means the
			// directive was mutated since.
			return &Result{Status: StatusRolledBack}, err
		}
		if predicate.Evaluate(original, vars) {
			return &Result{Status: StatusSkipped}, nil
		}
	}

	staged, noop, err := stage(directive, original, exists)
	if err != nil {
		return &Result{Status: StatusRolledBack}, err
	}
	if noop {
		return &Result{
			Status:    StatusCommitted,
			FinalHash: cas.Digest(original),
			NoOp:      true,
		}, nil
	}

	var backupHash cas.Hash
	if directive.Backup && exists {
		if e.store == nil {
			return &Result{Status: StatusRolledBack},
				fmt.Errorf("directive requests a backup but the engine has no store")
		}
		backupHash, err = e.store.Put(original)
		if err != nil {
			return &Result{Status: StatusRolledBack},
				fmt.Errorf("backing up pre-image of %s: %w", target, err)
		}
	}

	if err := e.commit(directive, target, exists, staged); err != nil {
		return &Result{Status: StatusRolledBack}, err
	}

	return &Result{
		Status:     StatusCommitted,
		FinalHash:  cas.Digest(staged),
		BackupHash: backupHash,
	}, nil
}

// commit writes staged content to a temp file beside the target,
// verifies it read back intact, and renames it over the target. Any
// failure discards the temp file; the target is never left holding
// partial content.
func (e *Engine) commit(directive *Directive, target string, exists bool, staged []byte) error {
	dir := filepath.Dir(target)
	if !exists {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating parent directory: %w", err)
		}
	}

	file, err := os.CreateTemp(dir, stagingPattern)
	if err != nil {
		return fmt.Errorf("creating staging file: %w", err)
	}
	stagingPath := file.Name()

	fail := func(cause error) error {
		file.Close()
		if removeErr := os.Remove(stagingPath); removeErr != nil {
			return &RollbackError{
				Path:        target,
				StagingPath: stagingPath,
				Failure:     cause,
				Cleanup:     removeErr,
			}
		}
		return cause
	}

	if _, err := file.Write(staged); err != nil {
		return fail(fmt.Errorf("writing staging file: %w", err))
	}
	if err := file.Sync(); err != nil {
		return fail(fmt.Errorf("syncing staging file: %w", err))
	}
	if err := file.Close(); err != nil {
		return fail(fmt.Errorf("closing staging file: %w", err))
	}

	written, err := os.ReadFile(stagingPath)
	if err != nil {
		return fail(fmt.Errorf("verifying staging file: %w", err))
	}
	if !bytes.Equal(written, staged) {
		return fail(fmt.Errorf("staging file for %s read back differently than written", target))
	}
	if err := verifyContract(directive, written); err != nil {
		return fail(err)
	}

	// Preserve the target's mode; new files get the umask default.
	if exists {
		if info, err := os.Stat(target); err == nil {
			os.Chmod(stagingPath, info.Mode().Perm())
		}
	} else {
		os.Chmod(stagingPath, 0o644)
	}

	if err := os.Rename(stagingPath, target); err != nil {
		return fail(fmt.Errorf("committing injection into %s: %w", target, err))
	}
	return nil
}

// verifyContract re-checks the mode's structural invariant against
// the staged bytes before the commit is allowed.
func verifyContract(directive *Directive, staged []byte) error {
	switch directive.Mode {
	case ModeAfter, ModeBefore:
		if !strings.Contains(string(staged), directive.Marker) {
			return &ValidationError{Path: directive.TargetPath, Mode: directive.Mode,
				Reason: "staged content lost the marker", Marker: directive.Marker, Occurrences: 0}
		}
	case ModeLineAt:
		if lines := splitLines(staged); directive.LineNumber > len(lines) {
			return &ValidationError{Path: directive.TargetPath, Mode: directive.Mode,
				Reason:      fmt.Sprintf("staged content has %d lines, fewer than line %d", len(lines), directive.LineNumber),
				Occurrences: -1}
		}
	}
	if !strings.Contains(string(staged), strings.TrimSuffix(directive.Payload, "\n")) {
		return &ValidationError{Path: directive.TargetPath, Mode: directive.Mode,
			Reason: "staged content does not contain the payload", Occurrences: -1}
	}
	return nil
}

// Recover removes orphaned staging files under dir, left behind by
// injections that died between Staging and Committing. It walks
// recursively and returns how many artifacts were removed. Call it on
// startup before running new directives.
func (e *Engine) Recover(dir string) (int, error) {
	removed := 0
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if matched, _ := filepath.Match(stagingPattern, entry.Name()); !matched {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing orphaned staging file: %w", err)
		}
		e.logger.Warn("removed orphaned staging file", "path", path)
		removed++
		return nil
	})
	return removed, err
}

func readTarget(path string) (content []byte, exists bool, err error) {
	content, err = os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading target: %w", err)
	}
	return content, true, nil
}
