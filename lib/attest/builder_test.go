// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package attest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kgen-foundation/kgen/lib/cas"
	"github.com/kgen-foundation/kgen/lib/clock"
)

const testEpoch = 1700000000

func buildRecord(t *testing.T, inputOrder []string) *Record {
	t.Helper()
	builder := NewBuilder(clock.Fixed(time.Unix(testEpoch, 0)), "1.2.3")
	handle := builder.Begin(CommandInfo{
		Command:          "generate",
		Args:             []string{"api-routes", "--force"},
		Flags:            map[string]string{"force": "true"},
		WorkingDirectory: "/workspace/project",
	})
	for _, path := range inputOrder {
		handle.RecordInput(path, cas.Digest([]byte(path)), int64(len(path)), time.Unix(testEpoch, 0))
	}
	handle.RecordOutput("src/routes.js", cas.Digest([]byte("generated")), 9)
	handle.SetProvenance(Provenance{
		SourceTemplateHash: cas.FormatHash(cas.Digest([]byte("template"))),
		InputDataHash:      cas.FormatHash(cas.Digest([]byte("data"))),
	})
	return handle.Finish(0)
}

func TestCanonicalBytesAreDeterministic(t *testing.T) {
	first := buildRecord(t, []string{"a.tmpl", "b.json"})
	second := buildRecord(t, []string{"a.tmpl", "b.json"})

	// Volatile fields differ between runs by construction.
	if first.ExecutionID == second.ExecutionID {
		t.Error("two executions share an execution id")
	}

	firstBytes, err := first.CanonicalBytes()
	if err != nil {
		t.Fatal(err)
	}
	secondBytes, err := second.CanonicalBytes()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(firstBytes, secondBytes) {
		t.Fatal("identical executions under a fixed epoch produced different canonical bytes")
	}
}

func TestCanonicalBytesIgnoreCollectionOrder(t *testing.T) {
	forward := buildRecord(t, []string{"a.tmpl", "b.json"})
	reversed := buildRecord(t, []string{"b.json", "a.tmpl"})

	forwardHash, err := forward.Hash()
	if err != nil {
		t.Fatal(err)
	}
	reversedHash, err := reversed.Hash()
	if err != nil {
		t.Fatal(err)
	}
	if forwardHash != reversedHash {
		t.Fatal("input collection order leaked into the record hash")
	}
}

func TestCanonicalBytesExcludeSignature(t *testing.T) {
	record := buildRecord(t, []string{"a.tmpl"})
	before, err := record.CanonicalBytes()
	if err != nil {
		t.Fatal(err)
	}

	record.Signature = &Signature{
		Algorithm:     "ed25519",
		PublicKey:     []byte("public key bytes public key bytes"),
		SignatureData: []byte("signature"),
	}
	after, err := record.CanonicalBytes()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("attaching a signature changed the canonical bytes")
	}
}

func TestCanonicalBytesDifferOnContent(t *testing.T) {
	base := buildRecord(t, []string{"a.tmpl"})
	other := buildRecord(t, []string{"a.tmpl"})
	other.Provenance.ParentAttestationHash = cas.FormatHash(cas.Digest([]byte("parent")))

	baseHash, err := base.Hash()
	if err != nil {
		t.Fatal(err)
	}
	otherHash, err := other.Hash()
	if err != nil {
		t.Fatal(err)
	}
	if baseHash == otherHash {
		t.Fatal("records with different provenance share a hash")
	}
}

func TestFixedEpochTimestamps(t *testing.T) {
	record := buildRecord(t, nil)
	want := time.Unix(testEpoch, 0).UTC().Format(timeFormat)
	if record.Execution.StartTime != want || record.Execution.EndTime != want {
		t.Fatalf("execution times = %s..%s, want both %s",
			record.Execution.StartTime, record.Execution.EndTime, want)
	}
	if record.Execution.DurationMS != 0 {
		t.Fatalf("fixed epoch duration = %d ms, want 0", record.Execution.DurationMS)
	}
}

func TestFinishSortsFileRefs(t *testing.T) {
	record := buildRecord(t, []string{"z.tmpl", "a.tmpl", "m.json"})
	for i := 1; i < len(record.Inputs); i++ {
		if record.Inputs[i-1].Path > record.Inputs[i].Path {
			t.Fatalf("inputs not sorted by path: %s before %s",
				record.Inputs[i-1].Path, record.Inputs[i].Path)
		}
	}
}

func TestFileRefFor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.json")
	content := []byte(`{"name": "kgen"}`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	ref, err := FileRefFor(path)
	if err != nil {
		t.Fatalf("FileRefFor failed: %v", err)
	}
	if ref.Hash != cas.FormatHash(cas.Digest(content)) {
		t.Error("FileRef hash does not match content digest")
	}
	if ref.Size != int64(len(content)) {
		t.Errorf("FileRef size = %d, want %d", ref.Size, len(content))
	}
	if ref.Modified == "" {
		t.Error("input FileRef has no modification time")
	}

	if _, err := FileRefFor(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("FileRefFor of a missing file succeeded")
	}
}

func TestWallClockDuration(t *testing.T) {
	builder := NewBuilder(clock.Real(), "1.2.3")
	handle := builder.Begin(CommandInfo{Command: "generate"})
	time.Sleep(5 * time.Millisecond)
	record := handle.Finish(2)

	if record.Execution.DurationMS < 0 {
		t.Fatalf("negative duration %d ms", record.Execution.DurationMS)
	}
	if record.Execution.ExitCode != 2 {
		t.Fatalf("exit code = %d, want 2", record.Execution.ExitCode)
	}
	if record.ProcessID != os.Getpid() {
		t.Fatalf("process id = %d, want %d", record.ProcessID, os.Getpid())
	}
}
