// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/docker/go-units"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/engine"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/utils"
)

// newProgress builds the aggregator and the renderer picked by --progress.
func newProgress(w io.Writer, operation string, totalBytes int64, files int) (*engine.ProgressAggregator, error) {
	p := engine.NewProgressAggregator()
	switch strings.ToLower(flags.Progress) {
	case "bar", "":
		p.Attach(utils.NewBarRenderer(w, operation, totalBytes, files))
	case "line":
		p.Attach(utils.NewLineRenderer(w, operation))
	case "none":
	default:
		return nil, fmt.Errorf("unknown progress output %q: use bar, line or none", flags.Progress)
	}
	return p, nil
}

// fileSummary is the machine readable form of one FileResult.
type fileSummary struct {
	Path     string `json:"path"`
	Key      string `json:"key,omitempty"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum,omitempty"`
	Parts    int    `json:"parts,omitempty"`
	Error    string `json:"error,omitempty"`
}

type batchSummary struct {
	DatasetID string        `json:"dataset_id"`
	Files     []fileSummary `json:"files"`
	Skipped   []string      `json:"skipped,omitempty"`
	Failed    int           `json:"failed"`
	Bytes     int64         `json:"bytes"`
}

func summarize(datasetID string, batch engine.BatchResult, skipped []string) batchSummary {
	s := batchSummary{DatasetID: datasetID, Skipped: skipped, Bytes: batch.TotalBytes()}
	for _, r := range batch.Sorted() {
		fs := fileSummary{Path: r.Item.RelativePath, Key: r.Item.Key, Size: r.TotalBytes, Parts: len(r.PartIDs)}
		if r.OK() {
			fs.Checksum = r.ChecksumHex()
		} else {
			fs.Size = r.Item.SizeBytes
			fs.Error = r.Err.Error()
			s.Failed++
		}
		s.Files = append(s.Files, fs)
	}
	return s
}

// printBatch writes the outcome and returns errReported when any file failed.
func printBatch(w io.Writer, verb string, s batchSummary, format string) error {
	if utils.TranslateFormat(format) != "short" {
		if err := utils.Render(w, s, format); err != nil {
			return err
		}
	} else {
		for _, f := range s.Files {
			if f.Error != "" {
				fmt.Fprintf(w, "FAILED  %s: %s\n", f.Path, f.Error)
			}
		}
		for _, p := range s.Skipped {
			fmt.Fprintf(w, "SKIPPED %s\n", p)
		}
		ok := len(s.Files) - s.Failed
		fmt.Fprintf(w, "%s %d files (%s) for dataset %s\n", verb, ok, units.BytesSize(float64(s.Bytes)), s.DatasetID)
	}

	if s.Failed > 0 {
		logger.Errorf("%d of %d files failed", s.Failed, len(s.Files))
		return errReported
	}
	return nil
}
