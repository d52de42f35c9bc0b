// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/kgen-foundation/kgen/cmd/kgen/cli"
	"github.com/kgen-foundation/kgen/lib/attest"
	"github.com/kgen-foundation/kgen/lib/cas"
	"github.com/kgen-foundation/kgen/lib/codec"
	"github.com/kgen-foundation/kgen/lib/sign"
)

func attestCommand() *cli.Command {
	return &cli.Command{
		Name:    "attest",
		Summary: "inspect and verify attestation records",
		Subcommands: []*cli.Command{
			attestVerifyCommand(),
			attestShowCommand(),
		},
	}
}

type envelopeParams struct {
	commonParams
}

func attestVerifyCommand() *cli.Command {
	var params envelopeParams
	return &cli.Command{
		Name:    "verify",
		Summary: "verify the signature of a stored attestation record",
		Usage:   "kgen attest verify [flags] <envelope-hash>",
		Flags:   func() *cli.FlagSet { return cli.FlagsFromParams("verify", &params) },
		Run: func(args []string) error {
			record, err := loadEnvelope(&params, args)
			if err != nil {
				return err
			}

			valid, err := sign.VerifyRecord(record)
			if err != nil {
				return err
			}
			if !valid {
				return fmt.Errorf("signature does not validate")
			}

			recordHash, err := record.Hash()
			if err != nil {
				return err
			}
			fmt.Printf("signature: valid\n")
			fmt.Printf("record_hash: %s\n", recordHash)
			return nil
		},
	}
}

func attestShowCommand() *cli.Command {
	var params envelopeParams
	return &cli.Command{
		Name:    "show",
		Summary: "print a stored attestation record",
		Usage:   "kgen attest show [flags] <envelope-hash>",
		Flags:   func() *cli.FlagSet { return cli.FlagsFromParams("show", &params) },
		Run: func(args []string) error {
			record, err := loadEnvelope(&params, args)
			if err != nil {
				return err
			}

			fmt.Printf("command: %s %v\n", record.Command, record.Args)
			fmt.Printf("working_directory: %s\n", record.WorkingDirectory)
			fmt.Printf("environment: %s/%s %s (tool %s)\n",
				record.Environment.OS, record.Environment.Arch,
				record.Environment.RuntimeVersion, record.Environment.ToolVersion)
			fmt.Printf("execution: %s .. %s (%d ms, exit %d)\n",
				record.Execution.StartTime, record.Execution.EndTime,
				record.Execution.DurationMS, record.Execution.ExitCode)
			for _, input := range record.Inputs {
				fmt.Printf("input: %s %s (%d bytes)\n", input.Path, input.Hash, input.Size)
			}
			for _, output := range record.Outputs {
				fmt.Printf("output: %s %s (%d bytes)\n", output.Path, output.Hash, output.Size)
			}
			if parent := record.Provenance.ParentAttestationHash; parent != "" {
				fmt.Printf("parent: %s\n", parent)
			}
			return nil
		},
	}
}

// loadEnvelope fetches and decodes a signed record envelope from the
// store by its hash.
func loadEnvelope(params *envelopeParams, args []string) (*attest.Record, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("exactly one envelope hash is required")
	}
	hash, err := cas.ParseHash(args[0])
	if err != nil {
		return nil, err
	}

	workspace, err := params.openWorkspace()
	if err != nil {
		return nil, err
	}
	defer workspace.Close()

	envelope, err := workspace.Store.Get(hash)
	if err != nil {
		return nil, err
	}
	var record attest.Record
	if err := codec.Unmarshal(envelope, &record); err != nil {
		return nil, fmt.Errorf("decoding record envelope: %w", err)
	}
	return &record, nil
}
