// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides small helpers shared by KGEN package
// tests.
package testutil

import (
	"os"
	"path/filepath"
)

// TB is the subset of testing.TB the helpers need. Taking the
// interface keeps testutil importable outside _test files.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// WriteFile writes content to path, creating parent directories, or
// fails the test.
func WriteFile(t TB, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating parent of %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// ReadFile reads path or fails the test.
func ReadFile(t TB, path string) []byte {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return content
}
