// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/config"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/engine"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/services/datasets"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/utils"
)

// Store is an object store that can also enumerate keys.
type Store interface {
	engine.ObjectStore
	config.ObjectLister
}

type TransferService struct {
	datasets *datasets.DatasetService
	store    Store
	bucket   string
	cfg      config.TransferConfig
	logger   log.Logger
}

func NewTransferService(ctx context.Context, conf config.Config, logger log.Logger) (*TransferService, error) {
	if logger == nil {
		logger = log.NewLogger()
	}
	if err := conf.Transfer.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transfer config: %w", err)
	}

	ds, err := datasets.NewDatasetService(ctx, conf, logger)
	if err != nil {
		return nil, err
	}

	var store Store
	switch strings.ToLower(conf.Transfer.Provider) {
	case config.ProviderMinio:
		store, err = config.NewMinioClient(conf.S3)
	default:
		store, err = config.NewS3Client(ctx, conf.S3)
	}
	if err != nil {
		return nil, fmt.Errorf("S3 init failed: %w", err)
	}

	return NewTransferServiceWith(ds, store, conf.S3.Bucket, conf.Transfer, logger), nil
}

// NewTransferServiceWith wires already built collaborators.
func NewTransferServiceWith(ds *datasets.DatasetService, store Store, bucket string, cfg config.TransferConfig, logger log.Logger) *TransferService {
	if logger == nil {
		logger = log.NewLogger()
	}
	return &TransferService{datasets: ds, store: store, bucket: bucket, cfg: cfg, logger: logger}
}

func (s *TransferService) Datasets() *datasets.DatasetService { return s.datasets }

func (s *TransferService) newEngine(progress *engine.ProgressAggregator) (*engine.Engine, error) {
	opts := []engine.Option{engine.WithLogger(s.logger)}
	if progress != nil {
		opts = append(opts, engine.WithProgress(progress))
	}
	return engine.New(s.store, s.cfg.Engine(), opts...)
}

func (s *TransferService) objectURL(key string) string {
	return utils.ParsedPath{Scheme: "s3", Bucket: s.bucket, Key: key}.String()
}

func (s *TransferService) prefix(override string) string {
	if override != "" {
		return strings.Trim(override, "/")
	}
	return strings.Trim(s.cfg.Prefix, "/")
}

// ListObjects enumerates what the store holds for a dataset, registered or not.
func (s *TransferService) ListObjects(ctx context.Context, datasetID, prefix string) ([]config.S3File, error) {
	if datasetID == "" {
		return nil, fmt.Errorf("dataset id is required")
	}
	return s.store.ListFilesAll(ctx, utils.ObjectKey(s.prefix(prefix), datasetID, "")+"/")
}
