// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helpers for the specterm application.
//
// This package contains the small pieces everything else leans on: width
// aware string handling for terminal output, table rendering for result
// listings, value formatting, path expansion, and crash-safe file writes.
//
// # Key Functions
//
// Display:
//   - TruncateWidth, PadWidth: terminal-cell aware string layout
//   - Table: aligned, sortable result tables
//   - FormatCount, FormatFloat: value rendering for result columns
//
// Files:
//   - AtomicWriteFile: crash-safe file writing with fsync
//   - ExpandUser: "~" expansion for user-supplied paths
package util
