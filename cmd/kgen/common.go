// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/kgen-foundation/kgen/cmd/kgen/cli"
	"github.com/kgen-foundation/kgen/lib/config"
	"github.com/kgen-foundation/kgen/lib/workspace"
)

// commonParams are the flags shared by every subcommand that opens a
// workspace.
type commonParams struct {
	Config  string `flag:"config" desc:"path to the kgen config file (overrides KGEN_CONFIG)"`
	Verbose bool   `flag:"verbose,v" desc:"enable debug logging"`
}

func (p *commonParams) loadConfig() (*config.Config, error) {
	if p.Config != "" {
		return config.LoadFile(p.Config)
	}
	return config.Load()
}

func (p *commonParams) openWorkspace() (*workspace.Workspace, error) {
	cfg, err := p.loadConfig()
	if err != nil {
		return nil, err
	}
	return workspace.Open(workspace.Options{
		Config:      cfg,
		ToolVersion: toolVersion,
		Logger:      cli.NewCommandLogger(p.Verbose),
	})
}
