// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"crypto/md5"
	"errors"
	"fmt"
	"hash"
	"io"
	"sync"
)

// PlanChunks splits [0, size) into contiguous spans of chunkSize bytes.
// Only the last span may be shorter. A zero size yields no spans.
func PlanChunks(size, chunkSize int64) []Span {
	if size <= 0 || chunkSize <= 0 {
		return nil
	}
	count := (size + chunkSize - 1) / chunkSize
	spans := make([]Span, 0, count)
	for i := int64(0); i < count; i++ {
		off := i * chunkSize
		spans = append(spans, Span{
			Index:  int(i),
			Offset: off,
			Length: min(chunkSize, size-off),
		})
	}
	return spans
}

// ChunkReader walks a source in chunk order. It never buffers on its own:
// callers pass the buffer each chunk is read into.
type ChunkReader struct {
	src   io.ReaderAt
	path  string
	size  int64
	spans []Span
	pos   int
}

func NewChunkReader(src io.ReaderAt, path string, size, chunkSize int64) *ChunkReader {
	return &ChunkReader{
		src:   src,
		path:  path,
		size:  size,
		spans: PlanChunks(size, chunkSize),
	}
}

func (r *ChunkReader) Count() int { return len(r.spans) }

func (r *ChunkReader) Spans() []Span { return r.spans }

func (r *ChunkReader) Size() int64 { return r.size }

// Next returns the next span, or false once the source is exhausted.
func (r *ChunkReader) Next() (Span, bool) {
	if r.pos >= len(r.spans) {
		return Span{}, false
	}
	s := r.spans[r.pos]
	r.pos++
	return s, true
}

// Reset restarts the sequence from chunk 0.
func (r *ChunkReader) Reset() { r.pos = 0 }

// Read fills buf with the bytes of span using a positioned read.
func (r *ChunkReader) Read(span Span, buf []byte) (Chunk, error) {
	if int64(len(buf)) < span.Length {
		return Chunk{}, fmt.Errorf("chunk %d: buffer of %d bytes cannot hold %d", span.Index, len(buf), span.Length)
	}
	if r.src == nil {
		return Chunk{}, &IoError{Op: "read", Path: r.path, Err: errors.New("source not open")}
	}
	payload := buf[:span.Length]
	n, err := r.src.ReadAt(payload, span.Offset)
	if int64(n) == span.Length {
		return Chunk{Span: span, Payload: payload}, nil
	}
	if errors.Is(err, io.EOF) {
		return Chunk{}, &SizeMismatchError{Path: r.path, Expected: r.size, Actual: span.Offset + int64(n)}
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return Chunk{}, &IoError{Op: "read", Path: r.path, Err: err}
}

// CheckEOF fails when the source holds bytes past the recorded size.
func (r *ChunkReader) CheckEOF() error {
	var extra [1]byte
	n, err := r.src.ReadAt(extra[:], r.size)
	if n > 0 {
		return &SizeMismatchError{Path: r.path, Expected: r.size, Actual: r.size + int64(n)}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return &IoError{Op: "read", Path: r.path, Err: err}
	}
	return nil
}

/* -------------------- ordered digest -------------------- */

// Digest folds chunk bytes into an MD5 in index order whatever order chunks
// complete in. A payload handed in for the chunk at the fold cursor is
// hashed directly; any other completion is only marked, and its range is
// read back from src once every earlier chunk has been folded.
type Digest struct {
	mu       sync.Mutex
	h        hash.Hash
	spans    []Span
	done     []bool
	next     int
	draining bool
	err      error

	src  io.ReaderAt
	path string
	pool *BufferPool
}

func NewDigest(spans []Span, src io.ReaderAt, path string, pool *BufferPool) *Digest {
	return &Digest{
		h:     md5.New(),
		spans: spans,
		done:  make([]bool, len(spans)),
		src:   src,
		path:  path,
		pool:  pool,
	}
}

// Complete marks chunk index finished. payload may be nil.
func (d *Digest) Complete(index int, payload []byte) error {
	d.mu.Lock()
	if index < 0 || index >= len(d.spans) {
		d.mu.Unlock()
		return fmt.Errorf("digest: chunk %d out of range [0, %d)", index, len(d.spans))
	}
	if d.done[index] {
		d.mu.Unlock()
		return fmt.Errorf("digest: chunk %d completed twice", index)
	}
	d.done[index] = true
	if d.err != nil {
		err := d.err
		d.mu.Unlock()
		return err
	}
	if d.draining {
		d.mu.Unlock()
		return nil
	}
	if index == d.next && int64(len(payload)) == d.spans[index].Length {
		d.h.Write(payload)
		d.next++
	}
	d.draining = true
	d.mu.Unlock()

	return d.drain()
}

func (d *Digest) drain() error {
	var buf []byte
	defer func() {
		if buf != nil {
			d.pool.Put(buf)
		}
	}()

	for {
		d.mu.Lock()
		if d.err != nil || d.next >= len(d.spans) || !d.done[d.next] {
			d.draining = false
			err := d.err
			d.mu.Unlock()
			return err
		}
		span := d.spans[d.next]
		d.mu.Unlock()

		if buf == nil {
			buf = d.pool.Get()
		}
		err := d.readBack(span, buf)

		d.mu.Lock()
		if err != nil {
			d.err = err
		} else {
			d.h.Write(buf[:span.Length])
			d.next++
		}
		d.mu.Unlock()
	}
}

func (d *Digest) readBack(span Span, buf []byte) error {
	if d.src == nil {
		return &IoError{Op: "read back", Path: d.path, Err: errors.New("no source to fold from")}
	}
	if int64(len(buf)) < span.Length {
		return fmt.Errorf("digest: buffer of %d bytes cannot hold chunk %d", len(buf), span.Index)
	}
	n, err := d.src.ReadAt(buf[:span.Length], span.Offset)
	if int64(n) == span.Length {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return &IoError{Op: "read back", Path: d.path, Err: err}
}

// Sum returns the digest once every chunk has been folded.
func (d *Digest) Sum() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	if d.next < len(d.spans) {
		return nil, fmt.Errorf("digest: %d of %d chunks folded", d.next, len(d.spans))
	}
	return d.h.Sum(nil), nil
}
