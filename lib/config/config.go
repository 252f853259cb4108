// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for branchgate.
type Config struct {
	// Server configures the HTTP listener and the admin socket.
	Server ServerConfig `yaml:"server"`

	// Database configures the rule store.
	Database DatabaseConfig `yaml:"database"`

	// Policy configures commit evaluation.
	Policy PolicyConfig `yaml:"policy"`

	// Commands configures the admin command interpreter.
	Commands CommandsConfig `yaml:"commands"`
}

// ServerConfig configures the network surfaces.
type ServerConfig struct {
	// ListenAddress is the HTTP bind address for webhook and chat
	// callbacks, e.g. ":8085" or "127.0.0.1:8085".
	ListenAddress string `yaml:"listen_address"`

	// SocketPath is the Unix socket for the operator CLI. Empty
	// disables the admin socket.
	SocketPath string `yaml:"socket_path"`
}

// DatabaseConfig configures the SQLite rule store.
type DatabaseConfig struct {
	// Path is the SQLite database file. Created on first open.
	Path string `yaml:"path"`

	// PoolSize is the connection pool size. Zero means the store
	// default.
	PoolSize int `yaml:"pool_size"`

	// IdentifierMatch selects how branch identifiers compare:
	// "sensitive" (default) or "insensitive".
	IdentifierMatch string `yaml:"identifier_match"`
}

// PolicyConfig configures commit evaluation.
type PolicyConfig struct {
	// DenialMode selects denial reporting: "fail-fast" (default)
	// stops at the first denying branch, "aggregate" reports every
	// denying branch in one decision.
	DenialMode string `yaml:"denial_mode"`

	// PreCommitEventType is the webhook event_type that triggers
	// evaluation. Other event types pass through unexamined.
	PreCommitEventType string `yaml:"pre_commit_event_type"`
}

// CommandsConfig configures the admin command interpreter.
type CommandsConfig struct {
	// BotMention is the bot's own mention token, stripped from the
	// start of chat messages before parsing.
	BotMention string `yaml:"bot_mention"`

	// GuardGrantPermanent requires permanent-whitelist membership to
	// grant permanent membership, matching the guard on the other
	// privileged commands.
	GuardGrantPermanent bool `yaml:"guard_grant_permanent"`

	// GrammarFile is an optional JSONC verb table that replaces the
	// built-in verbs.
	GrammarFile string `yaml:"grammar_file"`
}

// Default returns the default configuration. These defaults are used
// as a base before loading the config file; the config file remains
// the source of truth.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddress: "127.0.0.1:8085",
			SocketPath:    "/run/branchgate/admin.sock",
		},
		Database: DatabaseConfig{
			Path:            "branchgate.db",
			PoolSize:        4,
			IdentifierMatch: "sensitive",
		},
		Policy: PolicyConfig{
			DenialMode:         "fail-fast",
			PreCommitEventType: "svn_pre_commit",
		},
		Commands: CommandsConfig{
			GuardGrantPermanent: true,
		},
	}
}

// Load loads configuration from the BRANCHGATE_CONFIG environment
// variable. There are no fallbacks: if the variable is not set, this
// fails.
func Load() (*Config, error) {
	configPath := os.Getenv("BRANCHGATE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("BRANCHGATE_CONFIG environment variable not set; " +
			"set it to the path of your branchgate.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merging it
// over the defaults. Environment variables do not override config
// values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.ListenAddress == "" {
		errs = append(errs, fmt.Errorf("server.listen_address is required"))
	}

	if c.Database.Path == "" {
		errs = append(errs, fmt.Errorf("database.path is required"))
	}
	if c.Database.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("database.pool_size must not be negative"))
	}
	if c.Database.IdentifierMatch != "sensitive" && c.Database.IdentifierMatch != "insensitive" {
		errs = append(errs, fmt.Errorf("database.identifier_match must be \"sensitive\" or \"insensitive\""))
	}

	if c.Policy.DenialMode != "fail-fast" && c.Policy.DenialMode != "aggregate" {
		errs = append(errs, fmt.Errorf("policy.denial_mode must be \"fail-fast\" or \"aggregate\""))
	}
	if c.Policy.PreCommitEventType == "" {
		errs = append(errs, fmt.Errorf("policy.pre_commit_event_type is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// CaseInsensitive reports whether branch identifiers compare
// case-insensitively.
func (c *Config) CaseInsensitive() bool {
	return c.Database.IdentifierMatch == "insensitive"
}

// AggregateDenials reports whether commit evaluation reports every
// denying branch instead of stopping at the first.
func (c *Config) AggregateDenials() bool {
	return c.Policy.DenialMode == "aggregate"
}
