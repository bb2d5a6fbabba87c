// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"sync"

	"github.com/bitrise-io/go-utils/v2/log"
	"golang.org/x/sync/errgroup"
)

// Runner transfers a single item. *Pipeline is the production Runner.
type Runner interface {
	Run(ctx context.Context, item TransferItem) FileResult
}

// Scheduler admits files FIFO with at most MaxConcurrentFiles in flight.
// A failing file never cancels its siblings.
type Scheduler struct {
	runner   Runner
	maxFiles int
	logger   log.Logger
}

func NewScheduler(runner Runner, maxFiles int, logger log.Logger) *Scheduler {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxConcurrentFiles
	}
	if logger == nil {
		logger = log.NewLogger()
	}
	return &Scheduler{runner: runner, maxFiles: maxFiles, logger: logger}
}

// Run blocks until every admitted item reached a terminal outcome. Results
// are recorded in completion order; Seq keeps each item's input position.
func (s *Scheduler) Run(ctx context.Context, items []TransferItem) BatchResult {
	var (
		mu    sync.Mutex
		batch = BatchResult{Results: make([]FileResult, 0, len(items))}
	)
	record := func(r FileResult) {
		mu.Lock()
		defer mu.Unlock()
		batch.Results = append(batch.Results, r)
		if r.Err != nil && batch.FirstFatalError == nil {
			batch.FirstFatalError = r.Err
		}
	}

	// plain Group: no shared context, so one file's failure stays local
	var g errgroup.Group
	g.SetLimit(s.maxFiles)

	for i, item := range items {
		if err := item.Validate(); err != nil {
			s.logger.Warnf("Skipping %q: %s", item.RelativePath, err)
			record(FileResult{Item: item, Seq: i, Err: err})
			continue
		}
		g.Go(func() error {
			res := s.runner.Run(ctx, item)
			res.Item = item
			res.Seq = i
			record(res)
			return nil
		})
	}
	_ = g.Wait()

	return batch
}
