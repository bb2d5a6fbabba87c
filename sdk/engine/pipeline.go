// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const partSuffix = ".part"

// Pipeline transfers one file at a time with at most MaxConcurrentChunks
// chunk operations in flight for it.
type Pipeline struct {
	store       ObjectStore
	transporter *ChunkTransporter
	progress    ProgressSink
	pool        *BufferPool
	cfg         Config
	logger      log.Logger
}

func NewPipeline(store ObjectStore, cfg Config, progress ProgressSink, pool *BufferPool, logger log.Logger) *Pipeline {
	if progress == nil {
		progress = discardProgress{}
	}
	if pool == nil {
		pool = NewBufferPool(int(cfg.ChunkSize))
	}
	if logger == nil {
		logger = log.NewLogger()
	}
	return &Pipeline{
		store:       store,
		transporter: NewChunkTransporter(store, progress),
		progress:    progress,
		pool:        pool,
		cfg:         cfg,
		logger:      logger,
	}
}

// Run transfers item and always returns a result; Err is set on failure.
func (p *Pipeline) Run(ctx context.Context, item TransferItem) FileResult {
	start := time.Now()
	var res FileResult
	switch item.Direction {
	case Upload:
		res = p.upload(ctx, item)
	case Download:
		res = p.download(ctx, item)
	default:
		res = FileResult{Err: fmt.Errorf("%w: unknown direction %s", ErrInvalidItem, item.Direction)}
	}
	res.Item = item
	res.Took = time.Since(start)

	if obs, ok := p.progress.(ItemObserver); ok {
		obs.ItemFinished(item.ID(), res.Err)
	}
	if res.Err != nil {
		if idx, ok := FailedChunk(res.Err); ok {
			p.logger.Errorf("Failed to %s %s (chunk %d): %s", item.Direction, item.RelativePath, idx, res.Err)
		} else {
			p.logger.Errorf("Failed to %s %s: %s", item.Direction, item.RelativePath, res.Err)
		}
	} else {
		p.logger.Debugf("%s %s done in %s (%d bytes, md5 %s)", item.Direction, item.RelativePath,
			res.Took.Truncate(time.Millisecond), res.TotalBytes, res.ChecksumHex())
	}
	return res
}

func (p *Pipeline) started(item TransferItem, size int64) {
	if obs, ok := p.progress.(ItemObserver); ok {
		obs.ItemStarted(item.ID(), size)
	}
}

/* -------------------- UPLOAD -------------------- */

func (p *Pipeline) upload(ctx context.Context, item TransferItem) FileResult {
	f, err := os.Open(item.LocalPath)
	if err != nil {
		return FileResult{Err: &IoError{Op: "open", Path: item.LocalPath, Err: err}}
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return FileResult{Err: &IoError{Op: "stat", Path: item.LocalPath, Err: err}}
	}
	size := st.Size()
	if item.SizeBytes != SizeUnknown && size != item.SizeBytes {
		return FileResult{Err: &SizeMismatchError{Path: item.LocalPath, Expected: item.SizeBytes, Actual: size}}
	}
	p.started(item, size)

	reader := NewChunkReader(f, item.LocalPath, size, p.cfg.ChunkSize)
	digest := NewDigest(reader.Spans(), f, item.LocalPath, p.pool)

	if reader.Count() <= 1 {
		return p.uploadSingle(ctx, item, reader, digest)
	}
	return p.uploadMultipart(ctx, item, reader, digest)
}

func (p *Pipeline) uploadSingle(ctx context.Context, item TransferItem, reader *ChunkReader, digest *Digest) FileResult {
	var payload []byte
	if span, ok := reader.Next(); ok {
		buf := p.pool.Get()
		defer p.pool.Put(buf)
		chunk, err := reader.Read(span, buf)
		if err != nil {
			return FileResult{Err: err}
		}
		if err := digest.Complete(span.Index, chunk.Payload); err != nil {
			return FileResult{Err: err}
		}
		payload = chunk.Payload
	}
	if err := reader.CheckEOF(); err != nil {
		return FileResult{Err: err}
	}

	res, err := p.transporter.PutSingle(ctx, item, payload)
	if err != nil {
		return FileResult{Err: err}
	}
	sum, err := digest.Sum()
	if err != nil {
		return FileResult{Err: err}
	}
	return FileResult{TotalBytes: res.BytesTransferred, Checksum: sum}
}

func (p *Pipeline) uploadMultipart(ctx context.Context, item TransferItem, reader *ChunkReader, digest *Digest) FileResult {
	session, err := p.store.InitiateMultipartUpload(ctx, item.Key)
	if err != nil {
		return FileResult{Err: asTransportError("initiate multipart upload", item.Key, err), Multipart: true}
	}
	p.logger.Debugf("Multipart upload of %s started: %d parts", item.Key, reader.Count())

	parts := make([]string, reader.Count())
	sem := semaphore.NewWeighted(int64(p.cfg.MaxConcurrentChunks))
	g, gctx := errgroup.WithContext(ctx)

	// Chunks are read here in index order, each after its slot is acquired:
	// at most K buffers are live and the digest folds without read-back.
	for {
		span, ok := reader.Next()
		if !ok {
			if err := reader.CheckEOF(); err != nil {
				g.Go(func() error { return err })
			}
			break
		}
		if err := sem.Acquire(gctx, 1); err != nil {
			g.Go(func() error { return err })
			break
		}
		buf := p.pool.Get()
		chunk, err := reader.Read(span, buf)
		if err == nil {
			err = digest.Complete(span.Index, chunk.Payload)
		}
		if err != nil {
			p.pool.Put(buf)
			sem.Release(1)
			g.Go(func() error { return &ChunkError{Index: span.Index, Err: err} })
			break
		}

		g.Go(func() error {
			defer sem.Release(1)
			defer p.pool.Put(buf)
			res, err := p.transporter.UploadChunk(gctx, item, session, chunk)
			if err != nil {
				return &ChunkError{Index: chunk.Index, Err: err}
			}
			parts[chunk.Index] = res.PartID
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if gerr := ctx.Err(); gerr != nil && errors.Is(err, context.Canceled) {
			err = gerr
		}
		p.abort(ctx, item, session)
		return FileResult{Err: err, Multipart: true}
	}

	if err := p.store.CommitMultipartUpload(ctx, item.Key, session, parts); err != nil {
		p.abort(ctx, item, session)
		return FileResult{Err: &CommitError{Key: item.Key, Err: err}, Multipart: true}
	}

	sum, err := digest.Sum()
	if err != nil {
		return FileResult{Err: err, Multipart: true}
	}
	return FileResult{TotalBytes: reader.Size(), Checksum: sum, PartIDs: parts, Multipart: true}
}

// abort runs detached from ctx so a cancelled batch still releases the session.
func (p *Pipeline) abort(ctx context.Context, item TransferItem, session string) {
	if p.cfg.KeepIncompleteUploads {
		p.logger.Warnf("Leaving incomplete multipart upload %s for %s", session, item.Key)
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := p.store.AbortMultipartUpload(actx, item.Key, session); err != nil {
		p.logger.Warnf("Failed to abort multipart upload of %s: %s", item.Key, err)
	}
}

/* -------------------- DOWNLOAD -------------------- */

func (p *Pipeline) download(ctx context.Context, item TransferItem) FileResult {
	size, err := p.store.HeadObject(ctx, item.Key)
	if err != nil {
		return FileResult{Err: asTransportError("head object", item.Key, err)}
	}
	if item.SizeBytes != SizeUnknown && size != item.SizeBytes {
		return FileResult{Err: &SizeMismatchError{Path: item.Key, Expected: item.SizeBytes, Actual: size}}
	}
	p.started(item, size)

	if err := os.MkdirAll(filepath.Dir(item.LocalPath), 0o755); err != nil {
		return FileResult{Err: &IoError{Op: "mkdir", Path: filepath.Dir(item.LocalPath), Err: err}}
	}
	tmp := item.LocalPath + partSuffix
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return FileResult{Err: &IoError{Op: "create", Path: tmp, Err: err}}
	}

	res := p.fetch(ctx, item, f, size)

	if res.Err == nil {
		if err := f.Sync(); err != nil {
			res = FileResult{Err: &IoError{Op: "sync", Path: tmp, Err: err}}
		}
	}
	if err := f.Close(); err != nil && res.Err == nil {
		res = FileResult{Err: &IoError{Op: "close", Path: tmp, Err: err}}
	}
	if res.Err != nil {
		_ = os.Remove(tmp)
		return res
	}
	if err := os.Rename(tmp, item.LocalPath); err != nil {
		_ = os.Remove(tmp)
		return FileResult{Err: &IoError{Op: "rename", Path: item.LocalPath, Err: err}}
	}
	return res
}

func (p *Pipeline) fetch(ctx context.Context, item TransferItem, f *os.File, size int64) FileResult {
	if err := f.Truncate(size); err != nil {
		return FileResult{Err: &IoError{Op: "truncate", Path: f.Name(), Err: err}}
	}
	spans := PlanChunks(size, p.cfg.ChunkSize)
	if len(spans) == 0 {
		return FileResult{TotalBytes: 0, Checksum: md5.New().Sum(nil)}
	}

	digest := NewDigest(spans, f, f.Name(), p.pool)
	sem := semaphore.NewWeighted(int64(p.cfg.MaxConcurrentChunks))
	g, gctx := errgroup.WithContext(ctx)

	for _, span := range spans {
		if err := sem.Acquire(gctx, 1); err != nil {
			g.Go(func() error { return err })
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			if _, err := p.transporter.DownloadChunk(gctx, item, span, f); err != nil {
				return &ChunkError{Index: span.Index, Err: err}
			}
			return digest.Complete(span.Index, nil)
		})
	}

	if err := g.Wait(); err != nil {
		if cerr := ctx.Err(); cerr != nil && errors.Is(err, context.Canceled) {
			err = cerr
		}
		return FileResult{Err: err}
	}
	sum, err := digest.Sum()
	if err != nil {
		return FileResult{Err: err}
	}
	return FileResult{TotalBytes: size, Checksum: sum}
}
