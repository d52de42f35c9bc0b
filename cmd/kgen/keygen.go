// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/hex"
	"fmt"

	"github.com/kgen-foundation/kgen/cmd/kgen/cli"
	"github.com/kgen-foundation/kgen/lib/sign"
)

func keygenCommand() *cli.Command {
	var params struct {
		commonParams
		Force bool `flag:"force,f" desc:"replace an existing keypair"`
	}
	return &cli.Command{
		Name:    "keygen",
		Summary: "generate the attestation signing keypair",
		Usage:   "kgen keygen [flags]",
		Flags:   func() *cli.FlagSet { return cli.FlagsFromParams("keygen", &params) },
		Run: func(args []string) error {
			cfg, err := params.loadConfig()
			if err != nil {
				return err
			}

			if !params.Force {
				if _, _, err := sign.LoadKeypair(cfg.Paths.Keys); err == nil {
					return fmt.Errorf("a keypair already exists in %s (use --force to replace it)",
						cfg.Paths.Keys)
				}
			}

			public, private, err := sign.GenerateKeypair()
			if err != nil {
				return err
			}
			if err := sign.SaveKeypair(cfg.Paths.Keys, public, private); err != nil {
				return err
			}

			fmt.Printf("keypair written to %s\n", cfg.Paths.Keys)
			fmt.Printf("public key: %s\n", hex.EncodeToString(public))
			return nil
		},
	}
}
