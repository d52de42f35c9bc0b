// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for KGEN commands.
//
// Configuration is loaded from a single YAML file specified by:
//   - KGEN_CONFIG environment variable, or
//   - --config flag passed to the command
//
// A missing file is not an error when no path was given: KGEN runs
// with defaults rooted in the workspace's .kgen directory. When a
// path IS given, it must load — there are no silent fallbacks, so a
// typo in KGEN_CONFIG cannot quietly change which store a command
// writes to. Environment variables never override file values; the
// only expansion performed is ${HOME}-style path variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigEnv is the environment variable naming the config file.
const ConfigEnv = "KGEN_CONFIG"

// Config is the master configuration for KGEN.
type Config struct {
	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Store configures the content-addressed store.
	Store StoreConfig `yaml:"store"`

	// Attestation configures record building and signing.
	Attestation AttestationConfig `yaml:"attestation"`

	// Injection configures the injection engine.
	Injection InjectionConfig `yaml:"injection"`
}

// PathsConfig configures directory locations. Everything defaults to
// a subpath of Root.
type PathsConfig struct {
	// Root is the base directory for KGEN state.
	Root string `yaml:"root"`

	// Objects is the content-addressed store root.
	Objects string `yaml:"objects"`

	// Keys is where the signing keypair lives.
	Keys string `yaml:"keys"`

	// ChainDatabase is the provenance chain index file.
	ChainDatabase string `yaml:"chain_database"`
}

// StoreConfig configures the content-addressed store.
type StoreConfig struct {
	// Compression selects the on-disk codec: auto, none, lz4, or
	// zstd. Auto probes each object and picks per object.
	Compression string `yaml:"compression"`

	// SealingKeyFile, when set, points at a 32-byte master key and
	// enables at-rest encryption of stored objects.
	SealingKeyFile string `yaml:"sealing_key_file"`
}

// AttestationConfig configures record building and signing.
type AttestationConfig struct {
	// Strict makes a signing failure fail the whole command instead
	// of degrading to a warning on the result.
	Strict bool `yaml:"strict"`
}

// InjectionConfig configures the injection engine.
type InjectionConfig struct {
	// Backup stores every target's pre-image in the store before a
	// commit.
	Backup bool `yaml:"backup"`

	// LockWait bounds the wait for the per-target lock, as a
	// duration string. Default 5s.
	LockWait string `yaml:"lock_wait"`
}

// Default returns the default configuration, rooted at .kgen in the
// current directory.
func Default() *Config {
	return defaultAt(".kgen")
}

func defaultAt(root string) *Config {
	return &Config{
		Paths: PathsConfig{
			Root:          root,
			Objects:       filepath.Join(root, "store"),
			Keys:          filepath.Join(root, "keys"),
			ChainDatabase: filepath.Join(root, "chain.db"),
		},
		Store: StoreConfig{
			Compression: "auto",
		},
		Injection: InjectionConfig{
			LockWait: "5s",
		},
	}
}

// Load loads configuration from the KGEN_CONFIG environment
// variable, or returns the defaults when it is unset.
func Load() (*Config, error) {
	path := os.Getenv(ConfigEnv)
	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, merged
// over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// A file that sets only root gets the dependent paths re-derived
	// from it rather than from the default root.
	defaults := defaultAt(cfg.Paths.Root)
	if cfg.Paths.Objects == "" || cfg.Paths.Objects == Default().Paths.Objects {
		cfg.Paths.Objects = defaults.Paths.Objects
	}
	if cfg.Paths.Keys == "" || cfg.Paths.Keys == Default().Paths.Keys {
		cfg.Paths.Keys = defaults.Paths.Keys
	}
	if cfg.Paths.ChainDatabase == "" || cfg.Paths.ChainDatabase == Default().Paths.ChainDatabase {
		cfg.Paths.ChainDatabase = defaults.Paths.ChainDatabase
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"KGEN_ROOT": c.Paths.Root,
		"HOME":      os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["KGEN_ROOT"] = c.Paths.Root

	c.Paths.Objects = expandVars(c.Paths.Objects, vars)
	c.Paths.Keys = expandVars(c.Paths.Keys, vars)
	c.Paths.ChainDatabase = expandVars(c.Paths.ChainDatabase, vars)
	c.Store.SealingKeyFile = expandVars(c.Store.SealingKeyFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}

	switch c.Store.Compression {
	case "auto", "none", "lz4", "zstd":
	default:
		errs = append(errs, fmt.Errorf("store.compression must be auto, none, lz4, or zstd; got %q",
			c.Store.Compression))
	}

	if c.Injection.LockWait != "" {
		if _, err := time.ParseDuration(c.Injection.LockWait); err != nil {
			errs = append(errs, fmt.Errorf("injection.lock_wait: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LockWait returns the parsed injection lock wait. Validate has
// already rejected unparseable values; an empty value means the
// engine default.
func (c *Config) LockWait() time.Duration {
	if c.Injection.LockWait == "" {
		return 0
	}
	wait, err := time.ParseDuration(c.Injection.LockWait)
	if err != nil {
		return 0
	}
	return wait
}

// EnsurePaths creates all configured directories if they don't
// exist.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Paths.Root,
		c.Paths.Objects,
		filepath.Dir(c.Paths.ChainDatabase),
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	// The key directory is private to the signing identity.
	if c.Paths.Keys != "" {
		if err := os.MkdirAll(c.Paths.Keys, 0700); err != nil {
			return fmt.Errorf("creating %s: %w", c.Paths.Keys, err)
		}
	}

	return nil
}
