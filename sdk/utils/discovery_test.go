// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func relPaths(files []LocalFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.RelativePath)
	}
	sort.Strings(out)
	return out
}

func TestDiscoverFiles_AbsoluteDirectory(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "capture")
	writeTree(t, root, map[string]string{
		"cam/0.jpg":     "abc",
		"cam/1.jpg":     "de",
		"lidar/0.bin":   "f",
		"tmp/scratch.x": "g",
		"notes.txt":     "",
	})

	files, err := DiscoverFiles([]string{root}, []string{"capture/tmp/**"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"capture/cam/0.jpg",
		"capture/cam/1.jpg",
		"capture/lidar/0.bin",
		"capture/notes.txt",
	}, relPaths(files))

	for _, f := range files {
		if f.RelativePath == "capture/cam/0.jpg" {
			assert.Equal(t, int64(3), f.Size)
		}
		if f.RelativePath == "capture/notes.txt" {
			assert.Equal(t, int64(0), f.Size)
		}
	}
}

func TestDiscoverFiles_RelativeInputKeepsDirectories(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"data/run1/a.bin": "x"})
	t.Chdir(dir)

	files, err := DiscoverFiles([]string{"data/run1/a.bin"}, nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "data/run1/a.bin", files[0].RelativePath)

	files, err = DiscoverFiles([]string{"."}, []string{"**/*.tmp"})
	require.NoError(t, err)
	assert.Equal(t, []string{"data/run1/a.bin"}, relPaths(files))
}

func TestDiscoverFiles_Errors(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a/x.bin": "1", "b/x.bin": "2"})

	_, err := DiscoverFiles([]string{filepath.Join(dir, "missing")}, nil)
	require.Error(t, err)

	_, err = DiscoverFiles([]string{filepath.Join(dir, "a", "x.bin"), filepath.Join(dir, "b", "x.bin")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "same path")

	_, err = DiscoverFiles([]string{dir}, []string{"[unclosed"})
	require.Error(t, err)
}
