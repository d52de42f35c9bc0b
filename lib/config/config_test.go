// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithoutEnvUsesDefaults(t *testing.T) {
	t.Setenv(ConfigEnv, "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Paths.Root != ".kgen" {
		t.Errorf("default root = %q", cfg.Paths.Root)
	}
	if cfg.Store.Compression != "auto" {
		t.Errorf("default compression = %q", cfg.Store.Compression)
	}
	if cfg.LockWait() != 5*time.Second {
		t.Errorf("default lock wait = %v", cfg.LockWait())
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kgen.yaml")
	content := `
paths:
  root: /var/lib/kgen
store:
  compression: zstd
attestation:
  strict: true
injection:
  backup: true
  lock_wait: 30s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Paths.Root != "/var/lib/kgen" {
		t.Errorf("root = %q", cfg.Paths.Root)
	}
	// Dependent paths follow the overridden root.
	if cfg.Paths.Objects != "/var/lib/kgen/store" {
		t.Errorf("objects = %q", cfg.Paths.Objects)
	}
	if cfg.Paths.ChainDatabase != "/var/lib/kgen/chain.db" {
		t.Errorf("chain database = %q", cfg.Paths.ChainDatabase)
	}
	if !cfg.Attestation.Strict || !cfg.Injection.Backup {
		t.Error("boolean fields not loaded")
	}
	if cfg.LockWait() != 30*time.Second {
		t.Errorf("lock wait = %v", cfg.LockWait())
	}
}

func TestLoadFileRejectsBadValues(t *testing.T) {
	for name, content := range map[string]string{
		"bad compression": "store:\n  compression: brotli\n",
		"bad lock wait":   "injection:\n  lock_wait: soon\n",
	} {
		path := filepath.Join(t.TempDir(), "kgen.yaml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFile(path); err == nil {
			t.Errorf("%s accepted", name)
		}
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing explicit config file accepted")
	}
}

func TestVariableExpansion(t *testing.T) {
	t.Setenv("HOME", "/home/kgen-user")
	path := filepath.Join(t.TempDir(), "kgen.yaml")
	content := "paths:\n  root: ${HOME}/.kgen\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Paths.Root != "/home/kgen-user/.kgen" {
		t.Errorf("expanded root = %q", cfg.Paths.Root)
	}
	if cfg.Paths.Objects != "/home/kgen-user/.kgen/store" {
		t.Errorf("expanded objects = %q", cfg.Paths.Objects)
	}
}

func TestEnsurePaths(t *testing.T) {
	root := filepath.Join(t.TempDir(), "state")
	cfg := defaultAt(root)
	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths failed: %v", err)
	}

	info, err := os.Stat(cfg.Paths.Keys)
	if err != nil {
		t.Fatalf("keys directory missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o700 {
		t.Errorf("keys directory mode = %o, want 700", perm)
	}
	if _, err := os.Stat(cfg.Paths.Objects); err != nil {
		t.Errorf("objects directory missing: %v", err)
	}
}
