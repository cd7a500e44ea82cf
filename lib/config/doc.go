// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the
// mullion-shell daemon.
//
// Configuration is loaded from a single file specified by either the
// MULLION_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search. This ensures deterministic, auditable
// configuration with no hidden overrides.
//
// Every field has a documented default, so a minimal file only states
// what it changes. Validation reports every problem at once rather
// than stopping at the first.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${XDG_RUNTIME_DIR}, and ${VAR:-default} patterns are
// expanded. No other environment variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with Paths, Transport, Trace, Log
//   - [Default] -- returns a Config with the documented defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other Mullion packages.
package config
