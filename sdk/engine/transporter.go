// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"io"
)

// ObjectStore is the remote side of a transfer. Part numbers seen by the
// store are chunk index + 1. Implementations return *TransportError for
// remote failures and honour ctx cancellation.
type ObjectStore interface {
	InitiateMultipartUpload(ctx context.Context, key string) (string, error)
	UploadPart(ctx context.Context, key, session string, index int, payload []byte) (string, error)
	CommitMultipartUpload(ctx context.Context, key, session string, partIDs []string) error
	AbortMultipartUpload(ctx context.Context, key, session string) error
	PutObject(ctx context.Context, key string, payload []byte) error
	HeadObject(ctx context.Context, key string) (int64, error)
	GetObjectRange(ctx context.Context, key string, offset, length int64, dst io.Writer) (int64, error)
}

// ChunkTransporter runs one network operation per call. Re-issuing a call
// with the same chunk writes the same part or the same byte range again.
type ChunkTransporter struct {
	store    ObjectStore
	progress ProgressSink
}

func NewChunkTransporter(store ObjectStore, progress ProgressSink) *ChunkTransporter {
	if progress == nil {
		progress = discardProgress{}
	}
	return &ChunkTransporter{store: store, progress: progress}
}

// UploadChunk sends chunk as part index+1 of session.
func (t *ChunkTransporter) UploadChunk(ctx context.Context, item TransferItem, session string, chunk Chunk) (ChunkResult, error) {
	partID, err := t.store.UploadPart(ctx, item.Key, session, chunk.Index, chunk.Payload)
	if err != nil {
		return ChunkResult{}, asTransportError("upload part", item.Key, err)
	}
	n := int64(len(chunk.Payload))
	t.progress.Add(item.ID(), n)
	return ChunkResult{Index: chunk.Index, BytesTransferred: n, PartID: partID}, nil
}

// PutSingle uploads the whole object in one request. payload may be empty.
func (t *ChunkTransporter) PutSingle(ctx context.Context, item TransferItem, payload []byte) (ChunkResult, error) {
	if err := t.store.PutObject(ctx, item.Key, payload); err != nil {
		return ChunkResult{}, asTransportError("put object", item.Key, err)
	}
	n := int64(len(payload))
	if n > 0 {
		t.progress.Add(item.ID(), n)
	}
	return ChunkResult{Index: 0, BytesTransferred: n}, nil
}

// DownloadChunk streams span into sink at span.Offset.
func (t *ChunkTransporter) DownloadChunk(ctx context.Context, item TransferItem, span Span, sink io.WriterAt) (ChunkResult, error) {
	w := &sinkWriter{w: io.NewOffsetWriter(sink, span.Offset), limit: span.Length}
	n, err := t.store.GetObjectRange(ctx, item.Key, span.Offset, span.Length, w)
	if w.err != nil {
		return ChunkResult{}, &IoError{Op: "write", Path: item.LocalPath, Err: w.err}
	}
	if err != nil {
		return ChunkResult{}, asTransportError("get range", item.Key, err)
	}
	if n != span.Length || w.written != span.Length {
		return ChunkResult{}, &SizeMismatchError{Path: item.Key, Expected: span.End(), Actual: span.Offset + w.written}
	}
	t.progress.Add(item.ID(), n)
	return ChunkResult{Index: span.Index, BytesTransferred: n}, nil
}

// sinkWriter keeps local write failures apart from remote ones and refuses
// bytes past the span so a misbehaving store cannot overwrite a neighbour.
type sinkWriter struct {
	w       io.Writer
	limit   int64
	written int64
	err     error
}

func (s *sinkWriter) Write(p []byte) (int, error) {
	if s.written+int64(len(p)) > s.limit {
		return 0, errors.New("range longer than requested")
	}
	n, err := s.w.Write(p)
	s.written += int64(n)
	if err != nil {
		s.err = err
	}
	return n, err
}

func asTransportError(op, key string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	var ioe *IoError
	if errors.As(err, &ioe) {
		return err
	}
	var sm *SizeMismatchError
	if errors.As(err, &sm) {
		return err
	}
	return &TransportError{Op: op, Key: key, Message: err.Error(), Err: err}
}
