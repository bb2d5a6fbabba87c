// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package engine moves files between the local filesystem and an object
// store in fixed-size chunks.
//
// Two independent bounds keep memory flat: the Scheduler admits at most
// MaxConcurrentFiles files, and each file's Pipeline keeps at most
// MaxConcurrentChunks chunk operations in flight. Chunk buffers are only
// allocated inside a chunk slot, so the engine never holds more than
// Config.MemoryCeiling bytes of file data.
package engine

import (
	"context"
	"fmt"

	"github.com/bitrise-io/go-utils/v2/log"
)

type Engine struct {
	cfg       Config
	pipeline  *Pipeline
	scheduler *Scheduler
	logger    log.Logger
}

type Option func(*options)

type options struct {
	logger   log.Logger
	progress ProgressSink
}

func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithProgress sets the sink for byte counts. When it also implements
// ItemObserver it is told when each file starts and finishes.
func WithProgress(p ProgressSink) Option {
	return func(o *options) { o.progress = p }
}

func New(store ObjectStore, cfg Config, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("engine: nil object store")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewLogger()
	}

	pool := NewBufferPool(int(cfg.ChunkSize))
	pipeline := NewPipeline(store, cfg, o.progress, pool, o.logger)
	return &Engine{
		cfg:       cfg,
		pipeline:  pipeline,
		scheduler: NewScheduler(pipeline, cfg.MaxConcurrentFiles, o.logger),
		logger:    o.logger,
	}, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Run transfers items and returns once all of them reached an outcome.
func (e *Engine) Run(ctx context.Context, items []TransferItem) BatchResult {
	e.logger.Debugf("Transferring %d files (files=%d chunks/file=%d chunk=%d ceiling=%d bytes)",
		len(items), e.cfg.MaxConcurrentFiles, e.cfg.MaxConcurrentChunks, e.cfg.ChunkSize, e.cfg.MemoryCeiling())
	return e.scheduler.Run(ctx, items)
}

// Transfer runs a single item through the pipeline.
func (e *Engine) Transfer(ctx context.Context, item TransferItem) FileResult {
	if err := item.Validate(); err != nil {
		return FileResult{Item: item, Err: err}
	}
	return e.pipeline.Run(ctx, item)
}
