// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/engine"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/services/datasets"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/utils"
)

// Upload runs, in order:
// - discovery of the input files
// - rejection of files the store cannot hold
// - dataset creation (when DatasetID is empty)
// - chunked upload of every file to <prefix>/<dataset id>/<relative path>
// - registration of the files that made it
func (s *TransferService) Upload(ctx context.Context, req UploadRequest) (*UploadReport, error) {
	if len(req.Inputs) == 0 {
		return nil, errors.New("missing required input file or directory")
	}

	files, err := utils.DiscoverFiles(req.Inputs, req.Exclude)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	// 1) files the store would refuse never reach the engine
	var (
		admitted []utils.LocalFile
		seqs     []int
		rejected []engine.FileResult
	)
	for i, f := range files {
		if err := s.checkLimits(f.Size); err != nil {
			s.logger.Warnf("Skipping %s: %s", f.RelativePath, err)
			rejected = append(rejected, engine.FileResult{
				Item: engine.TransferItem{RelativePath: f.RelativePath, SizeBytes: f.Size, Direction: engine.Upload, LocalPath: f.Path},
				Seq:  i,
				Err:  fmt.Errorf("%s: %w", f.RelativePath, err),
			})
			continue
		}
		admitted = append(admitted, f)
		seqs = append(seqs, i)
	}
	if len(admitted) == 0 {
		return &UploadReport{Batch: mergeRejected(engine.BatchResult{}, rejected)}, ErrNoFiles
	}

	// 2) dataset
	datasetID := req.DatasetID
	if datasetID == "" {
		ds, err := s.datasets.CreateDataset(ctx, datasets.CreateRequest{
			Metadata: req.Metadata,
			FilePath: req.MetadataFile,
		})
		if err != nil {
			return nil, err
		}
		datasetID = ds.ID
		s.logger.Donef("Created new dataset with ID: %s", datasetID)
	} else if _, err := s.datasets.GetDataset(ctx, datasetID); err != nil {
		return nil, err
	}

	// 3) transfer
	prefix := s.prefix(req.Prefix)
	items := make([]engine.TransferItem, len(admitted))
	for i, f := range admitted {
		items[i] = engine.TransferItem{
			RelativePath: f.RelativePath,
			SizeBytes:    f.Size,
			Direction:    engine.Upload,
			LocalPath:    f.Path,
			Key:          utils.ObjectKey(prefix, datasetID, f.RelativePath),
		}
		if req.Progress != nil {
			req.Progress.Expect(items[i].ID(), f.Size)
		}
	}

	e, err := s.newEngine(req.Progress)
	if err != nil {
		return nil, err
	}
	batch := e.Run(ctx, items)
	for i := range batch.Results {
		batch.Results[i].Seq = seqs[batch.Results[i].Seq]
	}

	// 4) register only what was committed
	report := &UploadReport{DatasetID: datasetID}
	for i := range batch.Results {
		res := &batch.Results[i]
		if !res.OK() {
			continue
		}
		rec, err := s.datasets.RegisterFile(ctx, datasets.FileRecord{
			DatasetID: datasetID,
			URL:       s.objectURL(res.Item.Key),
			Filesize:  res.TotalBytes,
			Version:   1,
			Checksum:  res.ChecksumHex(),
			Metadata: map[string]any{
				"multipart": res.Multipart,
				"parts":     len(res.PartIDs),
			},
		})
		if err != nil {
			s.logger.Errorf("Uploaded %s but failed to register it: %s", res.Item.RelativePath, err)
			res.Err = fmt.Errorf("uploaded but not registered: %w", err)
			if batch.FirstFatalError == nil {
				batch.FirstFatalError = res.Err
			}
			continue
		}
		report.Registered = append(report.Registered, rec)
	}

	report.Batch = mergeRejected(batch, rejected)
	return report, nil
}

func (s *TransferService) checkLimits(size int64) error {
	if limit := s.cfg.ObjectSizeLimit(); size > limit {
		return fmt.Errorf("%w (%d > %d bytes)", ErrTooLarge, size, limit)
	}
	chunk := s.cfg.Engine().ChunkSize
	if parts := (size + chunk - 1) / chunk; parts > engine.MaxParts {
		return fmt.Errorf("%w (%d parts of %d bytes, max %d)", ErrTooManyParts, parts, chunk, engine.MaxParts)
	}
	return nil
}

func mergeRejected(batch engine.BatchResult, rejected []engine.FileResult) engine.BatchResult {
	if len(rejected) == 0 {
		return batch
	}
	batch.Results = append(batch.Results, rejected...)
	if batch.FirstFatalError == nil {
		batch.FirstFatalError = rejected[0].Err
	}
	return batch
}
