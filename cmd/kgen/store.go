// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/kgen-foundation/kgen/cmd/kgen/cli"
	"github.com/kgen-foundation/kgen/lib/cas"
)

func storeCommand() *cli.Command {
	var params struct {
		commonParams
	}
	return &cli.Command{
		Name:    "store",
		Summary: "store files in the content-addressed store",
		Usage:   "kgen store [flags] <file>...",
		Examples: []cli.Example{
			{Description: "store a template and print its hash", Command: "kgen store api-routes.tmpl"},
		},
		Flags: func() *cli.FlagSet { return cli.FlagsFromParams("store", &params) },
		Run: func(args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("at least one file is required")
			}
			workspace, err := params.openWorkspace()
			if err != nil {
				return err
			}
			defer workspace.Close()

			for _, path := range args {
				content, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}
				hash, err := workspace.Store.Put(content)
				if err != nil {
					return err
				}
				fmt.Printf("%s  %s\n", hash, path)
			}
			return nil
		},
	}
}

func fetchCommand() *cli.Command {
	var params struct {
		commonParams
		Output string `flag:"output,o" desc:"write the object to this file instead of stdout"`
	}
	return &cli.Command{
		Name:    "fetch",
		Summary: "retrieve an object by hash",
		Usage:   "kgen fetch [flags] <hash>",
		Flags:   func() *cli.FlagSet { return cli.FlagsFromParams("fetch", &params) },
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("exactly one hash is required")
			}
			hash, err := cas.ParseHash(args[0])
			if err != nil {
				return err
			}

			workspace, err := params.openWorkspace()
			if err != nil {
				return err
			}
			defer workspace.Close()

			content, err := workspace.Store.Get(hash)
			if err != nil {
				return err
			}
			if params.Output != "" {
				return os.WriteFile(params.Output, content, 0o644)
			}
			_, err = os.Stdout.Write(content)
			return err
		},
	}
}

func listCommand() *cli.Command {
	var params struct {
		commonParams
		Long bool `flag:"long,l" desc:"include object size and compression"`
	}
	return &cli.Command{
		Name:    "list",
		Summary: "list every object in the store",
		Usage:   "kgen list [flags]",
		Flags:   func() *cli.FlagSet { return cli.FlagsFromParams("list", &params) },
		Run: func(args []string) error {
			workspace, err := params.openWorkspace()
			if err != nil {
				return err
			}
			defer workspace.Close()

			for hash, err := range workspace.Store.List() {
				if err != nil {
					return err
				}
				if !params.Long {
					fmt.Println(hash)
					continue
				}
				info, err := workspace.Store.Stat(hash)
				if err != nil {
					return err
				}
				fmt.Printf("%s  %10d  %s\n", hash, info.Size, info.Compression)
			}
			return nil
		},
	}
}

func removeCommand() *cli.Command {
	var params struct {
		commonParams
	}
	return &cli.Command{
		Name:    "remove",
		Summary: "delete an object from the store",
		Usage:   "kgen remove [flags] <hash>...",
		Flags:   func() *cli.FlagSet { return cli.FlagsFromParams("remove", &params) },
		Run: func(args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("at least one hash is required")
			}
			workspace, err := params.openWorkspace()
			if err != nil {
				return err
			}
			defer workspace.Close()

			for _, arg := range args {
				hash, err := cas.ParseHash(arg)
				if err != nil {
					return err
				}
				if err := workspace.Store.Remove(hash); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func statCommand() *cli.Command {
	var params struct {
		commonParams
	}
	return &cli.Command{
		Name:    "stat",
		Summary: "show an object's stored size, compression, and sealing",
		Usage:   "kgen stat [flags] <hash>",
		Flags:   func() *cli.FlagSet { return cli.FlagsFromParams("stat", &params) },
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("exactly one hash is required")
			}
			hash, err := cas.ParseHash(args[0])
			if err != nil {
				return err
			}

			workspace, err := params.openWorkspace()
			if err != nil {
				return err
			}
			defer workspace.Close()

			info, err := workspace.Store.Stat(hash)
			if err != nil {
				return err
			}
			fmt.Printf("hash:        %s\n", hash)
			fmt.Printf("size:        %d\n", info.Size)
			fmt.Printf("stored_size: %d\n", info.StoredSize)
			fmt.Printf("compression: %s\n", info.Compression)
			fmt.Printf("sealed:      %t\n", info.Sealed)
			return nil
		},
	}
}
