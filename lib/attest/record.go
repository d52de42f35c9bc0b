// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package attest

import (
	"fmt"
	"os"
	"time"

	"github.com/kgen-foundation/kgen/lib/cas"
)

// timeFormat is how every timestamp field is rendered. UTC keeps the
// canonical bytes independent of the host timezone.
const timeFormat = time.RFC3339

// Record is one attestation: the full description of a command
// execution. Immutable once signed.
type Record struct {
	// Command is the executed tool or subcommand name.
	Command string `cbor:"command" json:"command"`

	// Args are the positional arguments, in order.
	Args []string `cbor:"args" json:"args"`

	// Flags are the named options the command ran with.
	Flags map[string]string `cbor:"flags" json:"flags"`

	// WorkingDirectory is where the command ran.
	WorkingDirectory string `cbor:"working_directory" json:"working_directory"`

	// Environment describes the platform and tool that produced the
	// record.
	Environment Environment `cbor:"environment" json:"environment"`

	// Inputs are the files the execution read, sorted by path.
	Inputs []FileRef `cbor:"inputs" json:"inputs"`

	// Outputs are the files the execution wrote, sorted by path.
	Outputs []FileRef `cbor:"outputs" json:"outputs"`

	// Provenance ties the execution to its template, its input data,
	// and the preceding attestation in the chain.
	Provenance Provenance `cbor:"provenance" json:"provenance"`

	// Execution carries the timing and exit status.
	Execution ExecutionInfo `cbor:"execution" json:"execution"`

	// ExecutionID uniquely identifies this run. Volatile: excluded
	// from the canonical bytes.
	ExecutionID string `cbor:"execution_id" json:"execution_id"`

	// ProcessID is the OS process that ran the command. Volatile:
	// excluded from the canonical bytes.
	ProcessID int `cbor:"process_id" json:"process_id"`

	// Signature is attached after signing; nil on an unsigned record.
	Signature *Signature `cbor:"signature,omitempty" json:"signature,omitempty"`
}

// FileRef points at a content-addressed file. Hash is the hex digest
// of the file's bytes, the same identity the object has in the store.
type FileRef struct {
	Path string `cbor:"path" json:"path"`
	Hash string `cbor:"hash" json:"hash"`
	Size int64  `cbor:"size" json:"size"`

	// Modified is set for inputs only; output freshness is implied by
	// the execution timestamps.
	Modified string `cbor:"modified,omitempty" json:"modified,omitempty"`
}

// Environment identifies the platform a record was produced on.
type Environment struct {
	OS             string `cbor:"os" json:"os"`
	Arch           string `cbor:"arch" json:"arch"`
	RuntimeVersion string `cbor:"runtime_version" json:"runtime_version"`
	ToolVersion    string `cbor:"tool_version" json:"tool_version"`
}

// Provenance links a record to the artifacts and history behind it.
// Hashes are hex digests; ParentAttestationHash is empty on the first
// record of a chain.
type Provenance struct {
	SourceTemplateHash    string `cbor:"source_template_hash" json:"source_template_hash"`
	InputDataHash         string `cbor:"input_data_hash" json:"input_data_hash"`
	ParentAttestationHash string `cbor:"parent_attestation_hash,omitempty" json:"parent_attestation_hash,omitempty"`
}

// ExecutionInfo carries when the command ran and how it exited.
type ExecutionInfo struct {
	StartTime  string `cbor:"start_time" json:"start_time"`
	EndTime    string `cbor:"end_time" json:"end_time"`
	DurationMS int64  `cbor:"duration_ms" json:"duration_ms"`
	ExitCode   int    `cbor:"exit_code" json:"exit_code"`
}

// Signature is the detached signature over a record's canonical
// bytes.
type Signature struct {
	// Algorithm names the signature scheme, currently always
	// "ed25519".
	Algorithm string `cbor:"algorithm" json:"algorithm"`

	// PublicKey is the raw verification key.
	PublicKey []byte `cbor:"public_key" json:"public_key"`

	// SignatureData is the raw signature bytes.
	SignatureData []byte `cbor:"signature_data" json:"signature_data"`
}

// FileRefFor reads a file and builds the input reference for it:
// content hash, size, and modification time.
func FileRefFor(path string) (FileRef, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return FileRef{}, fmt.Errorf("reading input file: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return FileRef{}, fmt.Errorf("stating input file: %w", err)
	}
	return FileRef{
		Path:     path,
		Hash:     cas.FormatHash(cas.Digest(content)),
		Size:     int64(len(content)),
		Modified: info.ModTime().UTC().Format(timeFormat),
	}, nil
}
