// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/engine"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/services/datasets"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/utils"
)

var (
	// ErrChecksumMismatch is reported when a downloaded file does not hash to
	// the registered checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrDuplicateTarget is reported for a record whose local path is already
	// claimed by another object of the same download.
	ErrDuplicateTarget = errors.New("local path claimed by another object")
)

// Download fetches the registered files of a dataset into
// <Destination>/<relative path>. Existing files are only replaced when
// Overwrite is set or Confirm agrees.
func (s *TransferService) Download(ctx context.Context, req DownloadRequest) (*DownloadReport, error) {
	if req.DatasetID == "" {
		return nil, errors.New("dataset id is required")
	}
	dest := req.Destination
	if dest == "" {
		dest = "."
	}

	records, err := s.datasets.ListFiles(ctx, datasets.FileQuery{DatasetID: req.DatasetID, Prefixes: req.Prefixes})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: dataset %s has no matching files", ErrNoFiles, req.DatasetID)
	}

	report := &DownloadReport{DatasetID: req.DatasetID}
	var (
		items     []engine.TransferItem
		checksums []string
		invalid   []engine.FileResult
		targets   = map[string]string{} // local path -> key
	)
	for _, rec := range records {
		item, err := s.downloadItem(rec, dest)
		if err != nil {
			s.logger.Warnf("Skipping %s: %s", rec.URL, err)
			invalid = append(invalid, engine.FileResult{
				Item: engine.TransferItem{RelativePath: rec.URL, Direction: engine.Download},
				Err:  err,
			})
			continue
		}

		// each local path gets at most one pipeline
		if key, dup := targets[item.LocalPath]; dup {
			if key == item.Key {
				s.logger.Warnf("Skipping duplicate record of %s", rec.URL)
				continue
			}
			err := fmt.Errorf("%w: %s is the target of %s and %s", ErrDuplicateTarget, item.LocalPath, key, item.Key)
			s.logger.Warnf("Skipping %s: %s", rec.URL, err)
			invalid = append(invalid, engine.FileResult{Item: item, Err: err})
			continue
		}
		targets[item.LocalPath] = item.Key

		if _, statErr := os.Stat(item.LocalPath); statErr == nil && !req.Overwrite {
			ok := false
			if req.Confirm != nil {
				if ok, err = req.Confirm(item.LocalPath); err != nil {
					return nil, err
				}
			}
			if !ok {
				s.logger.Printf("Skipping existing %s", item.LocalPath)
				report.Skipped = append(report.Skipped, item.LocalPath)
				continue
			}
		}

		items = append(items, item)
		checksums = append(checksums, rec.Checksum)
		if req.Progress != nil {
			req.Progress.Expect(item.ID(), item.SizeBytes)
		}
	}

	if len(items) == 0 {
		report.Batch = mergeRejected(engine.BatchResult{}, invalid)
		return report, nil
	}

	e, err := s.newEngine(req.Progress)
	if err != nil {
		return nil, err
	}
	batch := e.Run(ctx, items)

	for i := range batch.Results {
		res := &batch.Results[i]
		want := checksums[res.Seq]
		if !res.OK() || want == "" || want == res.ChecksumHex() {
			continue
		}
		res.Err = fmt.Errorf("%w for %s: registered %s, got %s", ErrChecksumMismatch, res.Item.RelativePath, want, res.ChecksumHex())
		s.logger.Errorf("%s", res.Err)
		if batch.FirstFatalError == nil {
			batch.FirstFatalError = res.Err
		}
	}

	n := len(items)
	for i := range invalid {
		invalid[i].Seq = n + i
	}
	report.Batch = mergeRejected(batch, invalid)
	return report, nil
}

func (s *TransferService) downloadItem(rec datasets.FileRecord, dest string) (engine.TransferItem, error) {
	rel, err := rec.RelativePath()
	if err != nil {
		return engine.TransferItem{}, err
	}
	pp, err := utils.ParsePath(rec.URL)
	if err != nil {
		return engine.TransferItem{}, err
	}
	if s.bucket != "" && pp.Bucket != s.bucket {
		return engine.TransferItem{}, fmt.Errorf("%s is stored in bucket %s, configured bucket is %s", rel, pp.Bucket, s.bucket)
	}
	item := engine.TransferItem{
		RelativePath: rel,
		SizeBytes:    rec.Filesize,
		Direction:    engine.Download,
		LocalPath:    filepath.Join(dest, filepath.FromSlash(rel)),
		Key:          pp.Key,
	}
	if err := item.Validate(); err != nil {
		return engine.TransferItem{}, err
	}
	return item, nil
}
