// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.ListenAddress != "127.0.0.1:8085" {
		t.Errorf("expected listen_address=127.0.0.1:8085, got %s", cfg.Server.ListenAddress)
	}

	if cfg.Database.IdentifierMatch != "sensitive" {
		t.Errorf("expected identifier_match=sensitive, got %s", cfg.Database.IdentifierMatch)
	}

	if cfg.Policy.DenialMode != "fail-fast" {
		t.Errorf("expected denial_mode=fail-fast, got %s", cfg.Policy.DenialMode)
	}

	if !cfg.Commands.GuardGrantPermanent {
		t.Error("expected guard_grant_permanent=true by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoad_RequiresBranchgateConfig(t *testing.T) {
	// Save and restore BRANCHGATE_CONFIG.
	origConfig := os.Getenv("BRANCHGATE_CONFIG")
	defer os.Setenv("BRANCHGATE_CONFIG", origConfig)

	os.Unsetenv("BRANCHGATE_CONFIG")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when BRANCHGATE_CONFIG not set, got nil")
	}

	expectedMsg := "BRANCHGATE_CONFIG environment variable not set"
	if !strings.HasPrefix(err.Error(), expectedMsg) {
		t.Errorf("expected error message to start with %q, got %q", expectedMsg, err.Error())
	}
}

func TestLoad_WithBranchgateConfig(t *testing.T) {
	origConfig := os.Getenv("BRANCHGATE_CONFIG")
	defer os.Setenv("BRANCHGATE_CONFIG", origConfig)

	configPath := filepath.Join(t.TempDir(), "branchgate.yaml")
	configContent := `
server:
  listen_address: ":9095"
database:
  path: /test/rules.db
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	os.Setenv("BRANCHGATE_CONFIG", configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.ListenAddress != ":9095" {
		t.Errorf("expected listen_address=:9095, got %s", cfg.Server.ListenAddress)
	}

	if cfg.Database.Path != "/test/rules.db" {
		t.Errorf("expected path=/test/rules.db, got %s", cfg.Database.Path)
	}
}

func TestLoadFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "branchgate.yaml")
	configContent := `
server:
  listen_address: "0.0.0.0:8085"
  socket_path: /custom/admin.sock

database:
  path: /custom/rules.db
  pool_size: 8
  identifier_match: insensitive

policy:
  denial_mode: aggregate
  pre_commit_event_type: svn_pre_commit

commands:
  bot_mention: svnbot
  guard_grant_permanent: false
  grammar_file: /custom/verbs.jsonc
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Server.SocketPath != "/custom/admin.sock" {
		t.Errorf("expected socket_path=/custom/admin.sock, got %s", cfg.Server.SocketPath)
	}
	if cfg.Database.PoolSize != 8 {
		t.Errorf("expected pool_size=8, got %d", cfg.Database.PoolSize)
	}
	if !cfg.CaseInsensitive() {
		t.Error("expected CaseInsensitive()=true")
	}
	if !cfg.AggregateDenials() {
		t.Error("expected AggregateDenials()=true")
	}
	if cfg.Commands.BotMention != "svnbot" {
		t.Errorf("expected bot_mention=svnbot, got %s", cfg.Commands.BotMention)
	}
	if cfg.Commands.GuardGrantPermanent {
		t.Error("expected guard_grant_permanent=false")
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing listen address", func(c *Config) { c.Server.ListenAddress = "" }, "server.listen_address"},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"negative pool size", func(c *Config) { c.Database.PoolSize = -1 }, "database.pool_size"},
		{"bad identifier match", func(c *Config) { c.Database.IdentifierMatch = "fuzzy" }, "database.identifier_match"},
		{"bad denial mode", func(c *Config) { c.Policy.DenialMode = "eventually" }, "policy.denial_mode"},
		{"missing event type", func(c *Config) { c.Policy.PreCommitEventType = "" }, "policy.pre_commit_event_type"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("error %q does not mention %s", err, test.want)
			}
		})
	}
}
