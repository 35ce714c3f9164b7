// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands implements the command-line surface: a registry of
// named commands arranged in a path tree, a tokenizer and dispatcher,
// and tab completion.
//
// Command names are matched per path segment, and every segment may be
// abbreviated to any unambiguous prefix ("sp g" runs "spectrum get").
// When an abbreviation matches several commands the one with the
// strictly lowest Level wins, so typing a bare "fit" reaches
// "fit execute" rather than an ambiguity error.
//
// Handlers receive a Context holding the session and its services, and
// an Invocation holding parsed flags and positionals. A handler error
// is reported prefixed with the command path; an AbortError is shown
// verbatim.
package commands
