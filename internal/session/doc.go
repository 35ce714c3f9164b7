// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session ties the analysis state together: the spectrum
// collection, the shared work fit, stored fits, calibrations, and the
// fit journal.
//
// A Session is the single mutation point for all of that state.
// Commands and hotkeys call Session methods; the Session reports
// through its Messenger and asks its Window for redraws, so the same
// code drives both the TUI and the plain REPL.
//
// # Key Types
//
//   - Session: spectrum collection plus work-fit state
//   - Messenger: sink for user-facing messages, warnings, and errors
//   - Window: display hook for redraws and viewport focus
//
// # Usage
//
// Create a session over an option registry:
//
//	sess := session.New(opts, msg)
//	defer sess.Close()
//
// Load a spectrum and run a fit between the current markers:
//
//	id := sess.Add(spec)
//	sess.SetMarker("peak", 1173.2)
//	sess.ExecuteFit(true)
package session
