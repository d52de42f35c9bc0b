// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/kgen-foundation/kgen/cmd/kgen/cli"
)

func chainCommand() *cli.Command {
	return &cli.Command{
		Name:    "chain",
		Summary: "inspect and verify the provenance chain",
		Subcommands: []*cli.Command{
			chainHeadCommand(),
			chainListCommand(),
			chainVerifyCommand(),
		},
	}
}

func chainHeadCommand() *cli.Command {
	var params struct {
		commonParams
	}
	return &cli.Command{
		Name:    "head",
		Summary: "show the newest chain entry",
		Usage:   "kgen chain head [flags]",
		Flags:   func() *cli.FlagSet { return cli.FlagsFromParams("head", &params) },
		Run: func(args []string) error {
			workspace, err := params.openWorkspace()
			if err != nil {
				return err
			}
			defer workspace.Close()

			head, found, err := workspace.Chain.Head(context.Background())
			if err != nil {
				return err
			}
			if !found {
				fmt.Println("chain is empty")
				return nil
			}
			fmt.Printf("position: %d\n", head.Position)
			fmt.Printf("record_hash: %s\n", head.RecordHash)
			fmt.Printf("envelope_hash: %s\n", head.EnvelopeHash)
			fmt.Printf("appended_at: %s\n", head.AppendedAt)
			return nil
		},
	}
}

func chainListCommand() *cli.Command {
	var params struct {
		commonParams
	}
	return &cli.Command{
		Name:    "list",
		Summary: "list every chain entry in order",
		Usage:   "kgen chain list [flags]",
		Flags:   func() *cli.FlagSet { return cli.FlagsFromParams("list", &params) },
		Run: func(args []string) error {
			workspace, err := params.openWorkspace()
			if err != nil {
				return err
			}
			defer workspace.Close()

			entries, err := workspace.Chain.Entries(context.Background())
			if err != nil {
				return err
			}
			for _, entry := range entries {
				fmt.Printf("%4d  %s  %s\n", entry.Position, entry.RecordHash, entry.AppendedAt)
			}
			return nil
		},
	}
}

func chainVerifyCommand() *cli.Command {
	var params struct {
		commonParams
	}
	return &cli.Command{
		Name:    "verify",
		Summary: "re-verify every signature and parent link in the chain",
		Usage:   "kgen chain verify [flags]",
		Flags:   func() *cli.FlagSet { return cli.FlagsFromParams("verify", &params) },
		Run: func(args []string) error {
			workspace, err := params.openWorkspace()
			if err != nil {
				return err
			}
			defer workspace.Close()

			result, err := workspace.Chain.Verify(context.Background())
			if err != nil {
				return err
			}
			if !result.OK {
				return fmt.Errorf("chain broken at position %d after %d verified record(s): %s",
					result.BrokenPosition, result.Checked, result.Reason)
			}
			fmt.Printf("chain intact: %d record(s) verified\n", result.Checked)
			return nil
		},
	}
}
