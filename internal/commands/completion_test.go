// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionTexts(cs []Completion) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Text
	}
	return out
}

func TestCompleteTopLevelSegments(t *testing.T) {
	ctx, _ := testContext(t)
	got := completionTexts(ctx.Registry.Complete(ctx, "spec"))
	assert.Equal(t, []string{"spectrum"}, got)
}

func TestCompleteSubcommands(t *testing.T) {
	ctx, _ := testContext(t)
	got := completionTexts(ctx.Registry.Complete(ctx, "spectrum a"))
	assert.Equal(t, []string{"activate"}, got)

	// An abbreviated earlier segment still walks the tree.
	got = completionTexts(ctx.Registry.Complete(ctx, "cal p "))
	assert.Contains(t, got, "set")
	assert.Contains(t, got, "unset")
}

func TestCompleteOptionNames(t *testing.T) {
	ctx, _ := testContext(t)
	got := completionTexts(ctx.Registry.Complete(ctx, "config set fit.back"))
	assert.Equal(t, []string{"fit.background.degree"}, got)
}

func TestCompletePeakModels(t *testing.T) {
	ctx, _ := testContext(t)
	got := completionTexts(ctx.Registry.Complete(ctx, "fit function peak activate "))
	assert.Equal(t, []string{"gauss", "step"}, got)
}

func TestCompleteFiles(t *testing.T) {
	ctx, _ := testContext(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "co60.txt"), []byte("1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cs137.txt"), []byte("1\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "runs"), 0o755))

	prefix := filepath.Join(dir, "c")
	got := completionTexts(ctx.Registry.Complete(ctx, "spectrum get "+prefix))
	assert.Equal(t, []string{
		filepath.Join(dir, "co60.txt"),
		filepath.Join(dir, "cs137.txt"),
	}, got)

	got = completionTexts(ctx.Registry.Complete(ctx, "spectrum get "+dir+string(filepath.Separator)))
	assert.Contains(t, got, filepath.Join(dir, "runs")+string(filepath.Separator))
}

func TestCompleteNothingForUnknown(t *testing.T) {
	ctx, _ := testContext(t)
	assert.Empty(t, ctx.Registry.Complete(ctx, "bogus sub"))
}
