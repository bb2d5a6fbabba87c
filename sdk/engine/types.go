// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"encoding/hex"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// SizeUnknown marks a download item whose size is taken from the store.
const SizeUnknown int64 = -1

type Direction int

const (
	Upload Direction = iota
	Download
)

func (d Direction) String() string {
	switch d {
	case Upload:
		return "upload"
	case Download:
		return "download"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// TransferItem is one file of a batch. RelativePath identifies the item in
// progress events and results; LocalPath and Key locate it on each side.
type TransferItem struct {
	RelativePath string
	SizeBytes    int64
	Direction    Direction

	LocalPath string
	Key       string
}

func (it TransferItem) ID() string { return it.RelativePath }

// Validate rejects absolute paths, paths escaping their root and invalid UTF-8.
func (it TransferItem) Validate() error {
	p := it.RelativePath
	switch {
	case p == "":
		return fmt.Errorf("%w: empty relative path", ErrInvalidItem)
	case !utf8.ValidString(p):
		return fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidItem, p)
	case path.IsAbs(p) || filepath.IsAbs(p) || strings.HasPrefix(p, `\`):
		return fmt.Errorf("%w: %q is absolute", ErrInvalidItem, p)
	}
	clean := path.Clean(filepath.ToSlash(p))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %q escapes its root", ErrInvalidItem, p)
	}
	if it.SizeBytes < 0 && !(it.SizeBytes == SizeUnknown && it.Direction == Download) {
		return fmt.Errorf("%w: %q has negative size %d", ErrInvalidItem, p, it.SizeBytes)
	}
	if it.LocalPath == "" || it.Key == "" {
		return fmt.Errorf("%w: %q has no local path or key", ErrInvalidItem, p)
	}
	return nil
}

// Span is the byte range of one chunk.
type Span struct {
	Index  int
	Offset int64
	Length int64
}

func (s Span) End() int64 { return s.Offset + s.Length }

// Chunk is a span with its bytes; it lives only inside a pipeline.
type Chunk struct {
	Span
	Payload []byte
}

type ChunkResult struct {
	Index            int
	BytesTransferred int64
	PartID           string
}

type FileResult struct {
	Item       TransferItem
	Seq        int
	TotalBytes int64
	Checksum   []byte
	PartIDs    []string
	Multipart  bool
	Err        error
	Took       time.Duration
}

func (r FileResult) OK() bool { return r.Err == nil }

func (r FileResult) ChecksumHex() string { return hex.EncodeToString(r.Checksum) }

// BatchResult holds file results in completion order.
type BatchResult struct {
	Results         []FileResult
	FirstFatalError error
}

// Sorted returns a copy of the results in input order.
func (b BatchResult) Sorted() []FileResult {
	out := slices.Clone(b.Results)
	slices.SortStableFunc(out, func(a, c FileResult) int { return a.Seq - c.Seq })
	return out
}

func (b BatchResult) Succeeded() []FileResult {
	var out []FileResult
	for _, r := range b.Sorted() {
		if r.OK() {
			out = append(out, r)
		}
	}
	return out
}

func (b BatchResult) Failed() []FileResult {
	var out []FileResult
	for _, r := range b.Sorted() {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

func (b BatchResult) TotalBytes() int64 {
	var n int64
	for _, r := range b.Results {
		if r.OK() {
			n += r.TotalBytes
		}
	}
	return n
}
