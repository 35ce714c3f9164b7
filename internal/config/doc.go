// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and saves the startup configuration.
//
// The config file is TOML at ~/.config/specterm/config.toml. On top of
// it a named JSONC profile may be overlaid (--profile), then SPECTERM_*
// environment variables. The free-form [options] table seeds the
// runtime option variables once the interfaces have registered them;
// unknown names or bad values warn and startup continues.
package config
