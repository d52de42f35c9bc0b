// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package inject

import (
	"fmt"
	"time"
)

// ValidationError reports a malformed or ambiguous directive: missing
// mode fields, a marker that occurs zero or multiple times, a line
// number out of range.
type ValidationError struct {
	// Path is the directive's target, when one was resolved.
	Path string

	// Mode is the directive mode being validated.
	Mode Mode

	// Reason describes what was wrong.
	Reason string

	// Marker is the marker text, for marker-relative modes.
	Marker string

	// Occurrences is how many times the marker was found, when that
	// is what failed (-1 when not applicable).
	Occurrences int
}

func (e *ValidationError) Error() string {
	if e.Marker != "" && e.Occurrences >= 0 {
		return fmt.Sprintf("invalid %s directive for %s: %s (marker %q found %d times)",
			e.Mode, e.Path, e.Reason, e.Marker, e.Occurrences)
	}
	if e.Path != "" {
		return fmt.Sprintf("invalid %s directive for %s: %s", e.Mode, e.Path, e.Reason)
	}
	return fmt.Sprintf("invalid %s directive: %s", e.Mode, e.Reason)
}

// BinaryFileError reports a refusal to inject into a binary target.
type BinaryFileError struct {
	Path string
}

func (e *BinaryFileError) Error() string {
	return fmt.Sprintf("refusing to inject into binary file %s", e.Path)
}

// ConcurrencyError reports that the per-path lock for a target could
// not be acquired within the bounded wait. The operation is safe to
// retry.
type ConcurrencyError struct {
	Path string
	Wait time.Duration
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("could not lock %s within %v (held by a concurrent injection)", e.Path, e.Wait)
}

// RollbackError reports that cleanup after a failed injection itself
// failed: the staging artifact could not be discarded. The target
// file is still untouched, but the leftover artifact needs operator
// attention, so this is fatal and never swallowed.
type RollbackError struct {
	// Path is the target whose injection failed.
	Path string

	// StagingPath is the artifact that could not be removed.
	StagingPath string

	// Failure is the error that triggered the rollback.
	Failure error

	// Cleanup is the error from discarding the staging artifact.
	Cleanup error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback of injection into %s failed: %v (after: %v; staging artifact left at %s)",
		e.Path, e.Cleanup, e.Failure, e.StagingPath)
}

func (e *RollbackError) Unwrap() error { return e.Cleanup }
