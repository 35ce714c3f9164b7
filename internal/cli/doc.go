// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli runs the program without the TUI: a liner-based REPL
// with history and tab completion, batch script execution, and plain
// terminal output for session messages. Commands work exactly as in
// the TUI; only the cursor-dependent hotkey features are unavailable.
package cli
