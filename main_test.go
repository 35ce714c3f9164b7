// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/specterm/internal/options"
	"github.com/jeranaias/specterm/internal/ui/styles"
)

func TestDisplayOptionsRegistered(t *testing.T) {
	opts := options.NewRegistry()
	theme := styles.NewTheme("dark")
	registerDisplayOptions(opts, theme, nil)

	for _, name := range []string{
		"table.format", "fit.list.sort_key", "ui.theme", "spec.update.watch",
	} {
		_, err := opts.Get(name)
		assert.NoError(t, err, name)
	}
}

func TestThemeOptionRestyles(t *testing.T) {
	opts := options.NewRegistry()
	theme := styles.NewTheme("dark")
	registerDisplayOptions(opts, theme, nil)

	require.NoError(t, opts.Set("ui.theme", "mono"))
	assert.Equal(t, "mono", theme.Name)

	require.Error(t, opts.Set("ui.theme", "solarized"))
	assert.Equal(t, "mono", theme.Name)
}

func TestWatchOptionWithoutWatcher(t *testing.T) {
	opts := options.NewRegistry()
	registerDisplayOptions(opts, styles.NewTheme("dark"), nil)

	// No watcher attached: the toggle still parses and stores.
	require.NoError(t, opts.Set("spec.update.watch", "on"))
	v, err := opts.Bool("spec.update.watch")
	require.NoError(t, err)
	assert.True(t, v)
}
