// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package inject

import (
	"fmt"
	"strings"
)

// stage computes the post-injection content for a directive, without
// touching the filesystem. It returns noop=true when the target
// already contains the payload at the intended position, in which
// case staged is the original content unchanged.
func stage(d *Directive, original []byte, exists bool) (staged []byte, noop bool, err error) {
	switch d.Mode {
	case ModeAfter, ModeBefore:
		return stageMarker(d, original)
	case ModeAppend:
		return stageAppend(d, original)
	case ModePrepend:
		return stagePrepend(d, original)
	case ModeLineAt:
		return stageLineAt(d, original)
	case ModeOverwrite:
		return stageOverwrite(d, original, exists)
	}
	return nil, false, &ValidationError{Path: d.TargetPath, Mode: d.Mode,
		Reason: "unknown mode", Occurrences: -1}
}

// payloadLines splits the payload into lines, each carrying a
// trailing newline, so blocks splice cleanly between existing lines.
func payloadLines(payload string) []string {
	if !strings.HasSuffix(payload, "\n") {
		payload += "\n"
	}
	lines := strings.SplitAfter(payload, "\n")
	// SplitAfter leaves a trailing empty element when the input ends
	// with the separator.
	return lines[:len(lines)-1]
}

// splitLines splits file content the same way, preserving newlines.
// The final line is kept even when it lacks a terminator.
func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	lines := strings.SplitAfter(string(content), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// blockAt reports whether the payload block sits at position start in
// lines. Trailing newlines are ignored in the comparison so a payload
// matched against an unterminated final line still counts.
func blockAt(lines []string, start int, block []string) bool {
	if start < 0 || start+len(block) > len(lines) {
		return false
	}
	for i, want := range block {
		if strings.TrimSuffix(lines[start+i], "\n") != strings.TrimSuffix(want, "\n") {
			return false
		}
	}
	return true
}

func spliceLines(lines []string, at int, block []string) []byte {
	var out strings.Builder
	for i, line := range lines[:at] {
		// An unterminated line cannot precede an insertion.
		if i == at-1 && !strings.HasSuffix(line, "\n") {
			line += "\n"
		}
		out.WriteString(line)
	}
	for _, line := range block {
		out.WriteString(line)
	}
	for _, line := range lines[at:] {
		out.WriteString(line)
	}
	return []byte(out.String())
}

func stageMarker(d *Directive, original []byte) ([]byte, bool, error) {
	lines := splitLines(original)
	block := payloadLines(d.Payload)

	occurrences := 0
	markerLine := -1
	for i, line := range lines {
		n := strings.Count(line, d.Marker)
		if n > 0 && markerLine < 0 {
			markerLine = i
		}
		occurrences += n
	}

	if occurrences == 0 {
		return nil, false, &ValidationError{Path: d.TargetPath, Mode: d.Mode,
			Reason: "marker not found", Marker: d.Marker, Occurrences: 0}
	}

	// Idempotence first: a payload that happens to contain the marker
	// text must not turn a completed injection into an ambiguity
	// failure on re-run.
	insertAt := markerLine + 1
	checkAt := markerLine + 1
	if d.Mode == ModeBefore {
		insertAt = markerLine
		checkAt = markerLine - len(block)
	}
	if blockAt(lines, checkAt, block) {
		return original, true, nil
	}

	if occurrences > 1 {
		return nil, false, &ValidationError{Path: d.TargetPath, Mode: d.Mode,
			Reason: "marker is ambiguous", Marker: d.Marker, Occurrences: occurrences}
	}
	return spliceLines(lines, insertAt, block), false, nil
}

func stageAppend(d *Directive, original []byte) ([]byte, bool, error) {
	lines := splitLines(original)
	block := payloadLines(d.Payload)
	if blockAt(lines, len(lines)-len(block), block) {
		return original, true, nil
	}
	return spliceLines(lines, len(lines), block), false, nil
}

func stagePrepend(d *Directive, original []byte) ([]byte, bool, error) {
	lines := splitLines(original)
	block := payloadLines(d.Payload)
	if blockAt(lines, 0, block) {
		return original, true, nil
	}
	return spliceLines(lines, 0, block), false, nil
}

func stageLineAt(d *Directive, original []byte) ([]byte, bool, error) {
	lines := splitLines(original)
	block := payloadLines(d.Payload)

	// Line N is valid for 1..len+1; len+1 appends.
	if d.LineNumber > len(lines)+1 {
		return nil, false, &ValidationError{Path: d.TargetPath, Mode: d.Mode,
			Reason:      fmt.Sprintf("line %d is beyond the file's %d lines", d.LineNumber, len(lines)),
			Occurrences: -1}
	}
	at := d.LineNumber - 1
	if blockAt(lines, at, block) {
		return original, true, nil
	}
	return spliceLines(lines, at, block), false, nil
}

func stageOverwrite(d *Directive, original []byte, exists bool) ([]byte, bool, error) {
	if exists && string(original) == d.Payload {
		return original, true, nil
	}
	return []byte(d.Payload), false, nil
}
