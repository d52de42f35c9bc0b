// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

// Command kgen is the KGEN core CLI: content-addressed storage,
// atomic file injection, and signed provenance attestations.
package main

import (
	"fmt"
	"os"

	"github.com/kgen-foundation/kgen/cmd/kgen/cli"
)

// toolVersion is stamped into attestation environments.
const toolVersion = "0.1.0"

func main() {
	root := &cli.Command{
		Name:    "kgen",
		Summary: "content-addressed generation with signed provenance",
		Description: "kgen stores content by hash, injects generated content into\n" +
			"existing files atomically, and records every operation as a\n" +
			"signed attestation in a hash-linked provenance chain.",
		Subcommands: []*cli.Command{
			storeCommand(),
			fetchCommand(),
			listCommand(),
			removeCommand(),
			statCommand(),
			injectCommand(),
			recoverCommand(),
			keygenCommand(),
			attestCommand(),
			chainCommand(),
		},
	}

	if err := root.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "kgen: %v\n", err)
		os.Exit(1)
	}
}
