// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package attest

import (
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kgen-foundation/kgen/lib/cas"
	"github.com/kgen-foundation/kgen/lib/clock"
)

// CommandInfo describes the command an attestation is being built
// for.
type CommandInfo struct {
	Command          string
	Args             []string
	Flags            map[string]string
	WorkingDirectory string
}

// Builder produces attestation records. The clock decides every
// timestamp field: a fixed clock (see clock.FromEnv) makes repeated
// runs byte-identical in their canonical form.
type Builder struct {
	clock       clock.Clock
	toolVersion string
}

// NewBuilder returns a builder stamping records with the given tool
// version.
func NewBuilder(clk clock.Clock, toolVersion string) *Builder {
	return &Builder{clock: clk, toolVersion: toolVersion}
}

// Handle is one in-progress attestation. Input and output references
// may be appended from multiple goroutines while the command runs.
type Handle struct {
	mu     sync.Mutex
	record Record
	start  time.Time
	clock  clock.Clock
}

// Begin opens an attestation for one command execution.
func (b *Builder) Begin(info CommandInfo) *Handle {
	start := b.clock.Now().UTC()
	return &Handle{
		start: start,
		clock: b.clock,
		record: Record{
			Command:          info.Command,
			Args:             info.Args,
			Flags:            info.Flags,
			WorkingDirectory: info.WorkingDirectory,
			Environment: Environment{
				OS:             runtime.GOOS,
				Arch:           runtime.GOARCH,
				RuntimeVersion: runtime.Version(),
				ToolVersion:    b.toolVersion,
			},
			Execution: ExecutionInfo{
				StartTime: start.Format(timeFormat),
			},
			ExecutionID: uuid.NewString(),
			ProcessID:   os.Getpid(),
		},
	}
}

// RecordInput notes a file the execution read.
func (h *Handle) RecordInput(path string, hash cas.Hash, size int64, modified time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record.Inputs = append(h.record.Inputs, FileRef{
		Path:     path,
		Hash:     cas.FormatHash(hash),
		Size:     size,
		Modified: modified.UTC().Format(timeFormat),
	})
}

// RecordInputFile hashes the file at path and records it as an
// input.
func (h *Handle) RecordInputFile(path string) error {
	ref, err := FileRefFor(path)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record.Inputs = append(h.record.Inputs, ref)
	return nil
}

// RecordOutput notes a file the execution wrote.
func (h *Handle) RecordOutput(path string, hash cas.Hash, size int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record.Outputs = append(h.record.Outputs, FileRef{
		Path: path,
		Hash: cas.FormatHash(hash),
		Size: size,
	})
}

// SetProvenance attaches the template and input-data identity. The
// parent attestation hash is normally filled in by the chain at
// append time.
func (h *Handle) SetProvenance(provenance Provenance) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record.Provenance = provenance
}

// Finish closes the attestation with the command's exit code and
// returns the unsigned record. Inputs and outputs are sorted by path
// so collection order never leaks into the canonical bytes.
func (h *Handle) Finish(exitCode int) *Record {
	h.mu.Lock()
	defer h.mu.Unlock()

	end := h.clock.Now().UTC()
	h.record.Execution.EndTime = end.Format(timeFormat)
	h.record.Execution.DurationMS = end.Sub(h.start).Milliseconds()
	h.record.Execution.ExitCode = exitCode

	sort.Slice(h.record.Inputs, func(i, j int) bool {
		return h.record.Inputs[i].Path < h.record.Inputs[j].Path
	})
	sort.Slice(h.record.Outputs, func(i, j int) bool {
		return h.record.Outputs[i].Path < h.record.Outputs[j].Path
	})

	record := h.record
	return &record
}
