// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is matched by a TransportError carrying a 404 status.
	ErrNotFound = errors.New("object not found")

	// ErrInvalidItem is returned for items rejected before admission.
	ErrInvalidItem = errors.New("invalid transfer item")
)

// IoError is a local read or write failure.
type IoError struct {
	Op   string
	Path string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// SizeMismatchError reports that the bytes observed differ from the size
// recorded when the item was created.
type SizeMismatchError struct {
	Path     string
	Expected int64
	Actual   int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch for %s: expected %d bytes, found %d", e.Path, e.Expected, e.Actual)
}

// TransportError is a failed remote call. Status is the HTTP status when the
// store returned one, zero on connection failures.
type TransportError struct {
	Op      string
	Key     string
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: %d %s - %s", e.Op, e.Key, e.Status, http.StatusText(e.Status), msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Key, msg)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// CommitError is a rejected multipart finalize.
type CommitError struct {
	Key string
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit multipart upload %s: %v", e.Key, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// ChunkError tags the chunk whose operation failed.
type ChunkError struct {
	Index int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// FailedChunk returns the index of the chunk that failed, if err carries one.
func FailedChunk(err error) (int, bool) {
	var ce *ChunkError
	if errors.As(err, &ce) {
		return ce.Index, true
	}
	return 0, false
}
