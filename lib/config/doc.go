// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for branchgate
// components.
//
// Configuration is loaded from a single file specified by either the
// BRANCHGATE_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There are no fallbacks, no ~/.config
// discovery, and no automatic file search. This ensures deterministic,
// auditable configuration with no hidden overrides.
//
// Key exports:
//
//   - [Config] -- master struct with Server, Database, Policy, Commands
//   - [Default] -- returns a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other branchgate packages.
package config
