// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/kgen-foundation/kgen/cmd/kgen/cli"
	"github.com/kgen-foundation/kgen/lib/attest"
	"github.com/kgen-foundation/kgen/lib/inject"
)

func injectCommand() *cli.Command {
	var params struct {
		commonParams
		Target      string   `flag:"target,t" desc:"file to inject into"`
		Mode        string   `flag:"mode,m" default:"after" desc:"injection mode: after, before, append, prepend, line-at, overwrite"`
		Marker      string   `flag:"marker" desc:"anchor line text for after/before modes"`
		Line        int      `flag:"line" desc:"1-based line number for line-at mode"`
		Payload     string   `flag:"payload,p" desc:"content to insert"`
		PayloadFile string   `flag:"payload-file" desc:"read the payload from this file instead of --payload"`
		SkipIf      string   `flag:"skip-if" desc:"skip predicate: contains:<literal>, var:<name>=<value>, or <name>"`
		Backup      bool     `flag:"backup" desc:"store the target's pre-image before committing"`
		Vars        []string `flag:"var" desc:"predicate variables as name=value (repeatable)"`
	}
	return &cli.Command{
		Name:    "inject",
		Summary: "atomically inject content into a file, with attestation",
		Usage:   "kgen inject [flags] --target <file> --payload <content>",
		Examples: []cli.Example{
			{
				Description: "insert a route registration after its marker",
				Command:     `kgen inject -t src/app.js --marker "// Routes will be injected here" -p "router.use('/user', userRoutes);"`,
			},
			{
				Description: "append unless the file already mentions the export",
				Command:     `kgen inject -t src/index.js -m append -p "export { router };" --skip-if "contains:export { router }"`,
			},
		},
		Flags: func() *cli.FlagSet { return cli.FlagsFromParams("inject", &params) },
		Run: func(args []string) error {
			if params.Target == "" {
				return fmt.Errorf("--target is required")
			}
			payload := params.Payload
			if params.PayloadFile != "" {
				content, err := os.ReadFile(params.PayloadFile)
				if err != nil {
					return fmt.Errorf("reading payload file: %w", err)
				}
				payload = string(content)
			}
			mode, err := inject.ParseMode(params.Mode)
			if err != nil {
				return err
			}
			vars, err := parseVars(params.Vars)
			if err != nil {
				return err
			}

			workspace, err := params.openWorkspace()
			if err != nil {
				return err
			}
			defer workspace.Close()

			directive := &inject.Directive{
				TargetPath: params.Target,
				Mode:       mode,
				Marker:     params.Marker,
				LineNumber: params.Line,
				SkipIf:     params.SkipIf,
				Payload:    payload,
				Backup:     params.Backup || workspace.Config.Injection.Backup,
			}

			workingDirectory, _ := os.Getwd()
			info := attest.CommandInfo{
				Command:          "inject",
				Args:             []string{params.Target},
				Flags:            map[string]string{"mode": string(mode)},
				WorkingDirectory: workingDirectory,
			}

			var result *inject.Result
			outcome, err := workspace.RunAttested(context.Background(), info,
				func(handle *attest.Handle) (int, error) {
					var applyErr error
					result, applyErr = workspace.Engine.Apply(directive, vars)
					if applyErr != nil {
						return 1, applyErr
					}
					if result.Status == inject.StatusCommitted {
						fileInfo, statErr := os.Stat(params.Target)
						if statErr == nil {
							handle.RecordOutput(params.Target, result.FinalHash, fileInfo.Size())
						}
					}
					return 0, nil
				})
			if err != nil {
				return err
			}

			fmt.Printf("status: %s\n", result.Status)
			if result.Status == inject.StatusCommitted {
				fmt.Printf("final_hash: %s\n", result.FinalHash)
			}
			if !result.BackupHash.IsZero() {
				fmt.Printf("backup_hash: %s\n", result.BackupHash)
			}
			if outcome.Position != 0 {
				fmt.Printf("attestation: chain position %d\n", outcome.Position)
			}
			for _, warning := range outcome.Warnings {
				fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
			}
			return nil
		},
	}
}

func recoverCommand() *cli.Command {
	var params struct {
		commonParams
	}
	return &cli.Command{
		Name:    "recover",
		Summary: "remove staging artifacts orphaned by interrupted injections",
		Usage:   "kgen recover [flags] <directory>",
		Flags:   func() *cli.FlagSet { return cli.FlagsFromParams("recover", &params) },
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("exactly one directory is required")
			}
			workspace, err := params.openWorkspace()
			if err != nil {
				return err
			}
			defer workspace.Close()

			removed, err := workspace.Engine.Recover(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("removed %d orphaned staging artifact(s)\n", removed)
			return nil
		},
	}
}

// parseVars turns repeated name=value flags into a variable map.
func parseVars(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("variable %q is not of the form name=value", pair)
		}
		vars[name] = value
	}
	return vars, nil
}
