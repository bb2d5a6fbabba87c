// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"errors"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/engine"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/services/datasets"
)

var (
	ErrTooLarge     = errors.New("file exceeds the object size limit")
	ErrTooManyParts = errors.New("file needs more parts than the store accepts")
	ErrNoFiles      = errors.New("no files to transfer")
)

// -------- Upload --------

type UploadRequest struct {
	Inputs  []string // local files or directories (obbligatorio)
	Exclude []string // doublestar patterns on the relative path

	// DatasetID appends to an existing dataset; empty creates a new one.
	DatasetID    string
	Metadata     map[string]any
	MetadataFile string

	// Prefix overrides the configured key prefix.
	Prefix string

	Progress *engine.ProgressAggregator
}

type UploadReport struct {
	DatasetID  string
	Batch      engine.BatchResult
	Registered []datasets.FileRecord
}

// -------- Download --------

// ConfirmFunc is asked before an existing local file is overwritten.
type ConfirmFunc func(localPath string) (bool, error)

type DownloadRequest struct {
	DatasetID   string
	Prefixes    []string
	Destination string
	Overwrite   bool
	Confirm     ConfirmFunc

	Progress *engine.ProgressAggregator
}

type DownloadReport struct {
	DatasetID string
	Batch     engine.BatchResult
	Skipped   []string
}
