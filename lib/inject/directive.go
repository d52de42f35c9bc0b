// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package inject

import "fmt"

// Mode selects where a directive's payload lands in the target file.
type Mode string

const (
	// ModeAfter inserts the payload on the line(s) immediately after
	// the unique marker line.
	ModeAfter Mode = "after"

	// ModeBefore inserts the payload on the line(s) immediately
	// before the unique marker line.
	ModeBefore Mode = "before"

	// ModeAppend adds the payload at the end of the file, creating
	// the file when it does not exist.
	ModeAppend Mode = "append"

	// ModePrepend adds the payload at the start of the file, creating
	// the file when it does not exist.
	ModePrepend Mode = "prepend"

	// ModeLineAt inserts the payload at a 1-based line number.
	ModeLineAt Mode = "line-at"

	// ModeOverwrite replaces the entire file content with the
	// payload, creating the file when it does not exist.
	ModeOverwrite Mode = "overwrite"
)

// ParseMode converts a mode name to a Mode, rejecting unknown names.
func ParseMode(name string) (Mode, error) {
	switch Mode(name) {
	case ModeAfter, ModeBefore, ModeAppend, ModePrepend, ModeLineAt, ModeOverwrite:
		return Mode(name), nil
	}
	return "", fmt.Errorf("unknown injection mode %q", name)
}

// createsTarget reports whether the mode may bring a missing target
// file into existence. Marker-relative and positional modes require
// the target to already exist.
func (m Mode) createsTarget() bool {
	switch m {
	case ModeAppend, ModePrepend, ModeOverwrite:
		return true
	}
	return false
}

// Directive describes one injection: which file, where in it, and
// what to insert.
type Directive struct {
	// TargetPath is the file to mutate.
	TargetPath string

	// Mode selects the insertion strategy.
	Mode Mode

	// Marker is the anchor text for ModeAfter and ModeBefore. It must
	// occur on exactly one line of the target.
	Marker string

	// LineNumber is the 1-based insertion position for ModeLineAt.
	// Line N of a file with L lines is valid for 1 <= N <= L+1;
	// L+1 appends.
	LineNumber int

	// SkipIf is an optional predicate evaluated against the current
	// target content and the variable set before any mutation. When
	// it holds, the directive is skipped. See ParsePredicate for the
	// grammar.
	SkipIf string

	// Payload is the content to insert. For line-oriented modes it is
	// inserted as whole lines; a missing trailing newline is added.
	// ModeOverwrite writes it byte-for-byte.
	Payload string

	// Backup requests that the target's pre-image be stored in the
	// content-addressed store before the commit, so the mutation can
	// be undone later.
	Backup bool
}

// Validate rejects structurally malformed directives before any file
// is touched.
func (d *Directive) Validate() error {
	if d.TargetPath == "" {
		return &ValidationError{Mode: d.Mode, Reason: "target path is empty", Occurrences: -1}
	}
	if _, err := ParseMode(string(d.Mode)); err != nil {
		return &ValidationError{Path: d.TargetPath, Mode: d.Mode, Reason: err.Error(), Occurrences: -1}
	}

	switch d.Mode {
	case ModeAfter, ModeBefore:
		if d.Marker == "" {
			return &ValidationError{Path: d.TargetPath, Mode: d.Mode,
				Reason: "marker is required", Occurrences: -1}
		}
		if d.LineNumber != 0 {
			return &ValidationError{Path: d.TargetPath, Mode: d.Mode,
				Reason: "line number is not valid for marker-relative modes", Occurrences: -1}
		}
	case ModeLineAt:
		if d.LineNumber < 1 {
			return &ValidationError{Path: d.TargetPath, Mode: d.Mode,
				Reason: fmt.Sprintf("line number %d is not positive", d.LineNumber), Occurrences: -1}
		}
		if d.Marker != "" {
			return &ValidationError{Path: d.TargetPath, Mode: d.Mode,
				Reason: "marker is not valid for positional mode", Occurrences: -1}
		}
	default:
		if d.Marker != "" || d.LineNumber != 0 {
			return &ValidationError{Path: d.TargetPath, Mode: d.Mode,
				Reason: "marker and line number are not valid for this mode", Occurrences: -1}
		}
	}

	if d.SkipIf != "" {
		if _, err := ParsePredicate(d.SkipIf); err != nil {
			return &ValidationError{Path: d.TargetPath, Mode: d.Mode,
				Reason: fmt.Sprintf("bad skip predicate: %v", err), Occurrences: -1}
		}
	}
	return nil
}
