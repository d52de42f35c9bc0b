// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kgen-foundation/kgen/lib/attest"
	"github.com/kgen-foundation/kgen/lib/cas"
	"github.com/kgen-foundation/kgen/lib/config"
	"github.com/kgen-foundation/kgen/lib/inject"
	"github.com/kgen-foundation/kgen/lib/sign"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.Root = filepath.Join(t.TempDir(), "kgen")
	cfg.Paths.Objects = filepath.Join(cfg.Paths.Root, "store")
	cfg.Paths.Keys = filepath.Join(cfg.Paths.Root, "keys")
	cfg.Paths.ChainDatabase = filepath.Join(cfg.Paths.Root, "chain.db")
	return cfg
}

func openWorkspace(t *testing.T, cfg *config.Config, withKey bool) *Workspace {
	t.Helper()
	if withKey {
		public, private, err := sign.GenerateKeypair()
		if err != nil {
			t.Fatal(err)
		}
		if err := sign.SaveKeypair(cfg.Paths.Keys, public, private); err != nil {
			t.Fatal(err)
		}
	}
	w, err := Open(Options{Config: cfg, ToolVersion: "test"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func TestRunAttestedChainsRecords(t *testing.T) {
	t.Setenv("KGEN_BUILD_EPOCH", "1700000000")
	w := openWorkspace(t, testConfig(t), true)
	ctx := context.Background()

	content := []byte("generated file body")
	outcome, err := w.RunAttested(ctx, attest.CommandInfo{Command: "generate"},
		func(handle *attest.Handle) (int, error) {
			hash, err := w.Store.Put(content)
			if err != nil {
				return 1, err
			}
			handle.RecordOutput("out.txt", hash, int64(len(content)))
			return 0, nil
		})
	if err != nil {
		t.Fatalf("RunAttested failed: %v", err)
	}
	if !outcome.SignatureValid || outcome.Position != 1 || len(outcome.Warnings) != 0 {
		t.Fatalf("outcome = %+v", outcome)
	}

	// A second operation links to the first.
	second, err := w.RunAttested(ctx, attest.CommandInfo{Command: "generate-again"},
		func(handle *attest.Handle) (int, error) { return 0, nil })
	if err != nil {
		t.Fatal(err)
	}
	if second.Position != 2 {
		t.Fatalf("second position = %d", second.Position)
	}
	firstHash, err := outcome.Record.Hash()
	if err != nil {
		t.Fatal(err)
	}
	if second.Record.Provenance.ParentAttestationHash != cas.FormatHash(firstHash) {
		t.Fatal("second record does not parent the first")
	}

	result, err := w.Chain.Verify(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !result.OK || result.Checked != 2 {
		t.Fatalf("chain verify = %+v", result)
	}
}

func TestMissingKeyIsWarningByDefault(t *testing.T) {
	w := openWorkspace(t, testConfig(t), false)

	outcome, err := w.RunAttested(context.Background(), attest.CommandInfo{Command: "generate"},
		func(handle *attest.Handle) (int, error) { return 0, nil })
	if err != nil {
		t.Fatalf("missing key failed the command: %v", err)
	}
	if len(outcome.Warnings) == 0 {
		t.Fatal("missing key produced no warning")
	}
	if outcome.Record.Signature != nil || outcome.Position != 0 {
		t.Fatalf("unsigned outcome = %+v", outcome)
	}
}

func TestCorruptKeyFailsOpen(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.Paths.Keys, 0700); err != nil {
		t.Fatal(err)
	}
	keyPath := filepath.Join(cfg.Paths.Keys, "attestation-signing-key")
	if err := os.WriteFile(keyPath, []byte("truncated"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := Open(Options{Config: cfg, ToolVersion: "test"})
	if err == nil {
		t.Fatal("corrupt signing key treated as absent")
	}
	if !strings.Contains(err.Error(), "signing keypair") {
		t.Fatalf("error does not name the keypair load: %v", err)
	}
}

func TestMissingKeyFailsInStrictMode(t *testing.T) {
	cfg := testConfig(t)
	cfg.Attestation.Strict = true
	w := openWorkspace(t, cfg, false)

	_, err := w.RunAttested(context.Background(), attest.CommandInfo{Command: "generate"},
		func(handle *attest.Handle) (int, error) { return 0, nil })
	if err == nil {
		t.Fatal("strict mode let an unsignable attestation pass")
	}
}

func TestWorkspaceEngineInjects(t *testing.T) {
	w := openWorkspace(t, testConfig(t), false)
	target := filepath.Join(t.TempDir(), "routes.js")

	directive := &inject.Directive{
		TargetPath: target,
		Mode:       inject.ModeAppend,
		Payload:    "module.exports = router;",
		Backup:     false,
	}
	result, err := w.Engine.Apply(directive, nil)
	if err != nil {
		t.Fatalf("Apply through workspace engine failed: %v", err)
	}
	if result.Status != inject.StatusCommitted {
		t.Fatalf("status = %s", result.Status)
	}
}

func TestOpenIsolatesWorkspaces(t *testing.T) {
	first := openWorkspace(t, testConfig(t), false)
	second := openWorkspace(t, testConfig(t), false)

	hash, err := first.Store.Put([]byte("only in the first workspace"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := second.Store.Get(hash); err == nil {
		t.Fatal("object leaked between workspaces")
	}
}
