// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// LocalFile is a regular file found under one of the upload inputs.
type LocalFile struct {
	Path         string // as opened on disk
	RelativePath string // slash separated, directories retained
	Size         int64
}

// DiscoverFiles expands files and directories into regular files. A relative
// input keeps its directories in RelativePath; anything else is rooted at its
// base name. Exclude patterns use doublestar syntax and match RelativePath.
func DiscoverFiles(inputs, exclude []string) ([]LocalFile, error) {
	for _, p := range exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}

	var (
		out  []LocalFile
		seen = map[string]string{}
	)
	add := func(f LocalFile) error {
		if excluded(f.RelativePath, exclude) {
			return nil
		}
		if prev, ok := seen[f.RelativePath]; ok {
			return fmt.Errorf("%s and %s map to the same path %q", prev, f.Path, f.RelativePath)
		}
		seen[f.RelativePath] = f.Path
		out = append(out, f)
		return nil
	}

	for _, input := range inputs {
		st, err := os.Stat(input)
		if err != nil {
			return nil, fmt.Errorf("cannot access input: %w", err)
		}
		root := rootName(input)

		if !st.IsDir() {
			if !st.Mode().IsRegular() {
				return nil, fmt.Errorf("%s is not a regular file", input)
			}
			if err := add(LocalFile{Path: input, RelativePath: root, Size: st.Size()}); err != nil {
				return nil, err
			}
			continue
		}

		err = filepath.WalkDir(input, func(p string, d fs.DirEntry, werr error) error {
			if werr != nil {
				return werr
			}
			if !d.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(input, p)
			if err != nil {
				return err
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			return add(LocalFile{
				Path:         p,
				RelativePath: path.Join(root, filepath.ToSlash(rel)),
				Size:         info.Size(),
			})
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", input, err)
		}
	}
	return out, nil
}

func rootName(input string) string {
	clean := filepath.ToSlash(filepath.Clean(input))
	if !filepath.IsAbs(input) && clean != "." && clean != ".." && !strings.HasPrefix(clean, "../") {
		return clean
	}
	switch base := filepath.Base(filepath.Clean(input)); base {
	case ".", "..", string(filepath.Separator):
		return ""
	default:
		return base
	}
}

func excluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
