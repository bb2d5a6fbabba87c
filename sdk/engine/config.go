// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultChunkSize           int64 = 16 * 1024 * 1024
	DefaultMaxConcurrentFiles        = 4
	DefaultMaxConcurrentChunks       = 10

	// DefaultMaxObjectSize is the single-object ceiling of the storage
	// provider (4.88 TB). The engine only reports it.
	DefaultMaxObjectSize int64 = 4_880_000_000_000

	// MaxParts is the multipart part count limit of S3-compatible stores.
	MaxParts = 10000
)

// Config holds the engine bounds.
type Config struct {
	// ChunkSize is the fixed chunk length in bytes.
	// Default: 16 MiB
	ChunkSize int64

	// MaxConcurrentFiles bounds files in flight (N).
	// Default: 4
	MaxConcurrentFiles int

	// MaxConcurrentChunks bounds chunks in flight per file (K).
	// Default: 10
	MaxConcurrentChunks int

	// KeepIncompleteUploads skips the best-effort abort of a multipart
	// session whose file failed. The zero value aborts.
	KeepIncompleteUploads bool
}

func DefaultConfig() Config {
	return Config{
		ChunkSize:           DefaultChunkSize,
		MaxConcurrentFiles:  DefaultMaxConcurrentFiles,
		MaxConcurrentChunks: DefaultMaxConcurrentChunks,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkSize > math.MaxInt32 {
		errs = append(errs, fmt.Errorf("chunk size %d exceeds %d", c.ChunkSize, math.MaxInt32))
	}
	if c.MaxConcurrentFiles <= 0 {
		errs = append(errs, fmt.Errorf("max concurrent files must be positive, got %d", c.MaxConcurrentFiles))
	}
	if c.MaxConcurrentChunks <= 0 {
		errs = append(errs, fmt.Errorf("max concurrent chunks must be positive, got %d", c.MaxConcurrentChunks))
	}
	return errors.Join(errs...)
}

// MemoryCeiling is the most chunk bytes the engine can hold at once.
func (c Config) MemoryCeiling() int64 {
	return int64(c.MaxConcurrentFiles) * int64(c.MaxConcurrentChunks) * c.ChunkSize
}
