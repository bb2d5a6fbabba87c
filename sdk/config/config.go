// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/docker/go-units"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/engine"
)

const (
	ProviderAWS   = "aws"
	ProviderMinio = "minio"
)

// Config passed to the SDK (no viper/INI here)
type Config struct {
	Core     CoreConfig
	S3       S3Config
	Transfer TransferConfig
}

// CoreConfig locates the dataset metadata API.
type CoreConfig struct {
	BaseURL     string
	AccessToken string
	Timeout     int // seconds, 0 means 30
	RetryMax    int
}

type S3Config struct {
	AccessKey   string
	SecretKey   string
	AccessToken string
	Region      string
	EndpointURL string
	Bucket      string
}

type TransferConfig struct {
	Provider            string
	Prefix              string
	ChunkSize           int64
	MaxConcurrentFiles  int
	MaxConcurrentChunks int
	MaxObjectSize       int64
	// KeepIncompleteUploads leaves failed multipart sessions in the bucket.
	// The zero value aborts them.
	KeepIncompleteUploads bool
}

func DefaultTransferConfig() TransferConfig {
	d := engine.DefaultConfig()
	return TransferConfig{
		Provider:            ProviderAWS,
		ChunkSize:           d.ChunkSize,
		MaxConcurrentFiles:  d.MaxConcurrentFiles,
		MaxConcurrentChunks: d.MaxConcurrentChunks,
		MaxObjectSize:       engine.DefaultMaxObjectSize,
	}
}

// Engine maps the transfer settings onto the engine bounds, filling zero
// values with defaults.
func (t TransferConfig) Engine() engine.Config {
	cfg := engine.DefaultConfig()
	if t.ChunkSize > 0 {
		cfg.ChunkSize = t.ChunkSize
	}
	if t.MaxConcurrentFiles > 0 {
		cfg.MaxConcurrentFiles = t.MaxConcurrentFiles
	}
	if t.MaxConcurrentChunks > 0 {
		cfg.MaxConcurrentChunks = t.MaxConcurrentChunks
	}
	cfg.KeepIncompleteUploads = t.KeepIncompleteUploads
	return cfg
}

func (t TransferConfig) ObjectSizeLimit() int64 {
	if t.MaxObjectSize > 0 {
		return t.MaxObjectSize
	}
	return engine.DefaultMaxObjectSize
}

func (t TransferConfig) Validate() error {
	var errs []error
	switch strings.ToLower(t.Provider) {
	case "", ProviderAWS, ProviderMinio:
	default:
		errs = append(errs, fmt.Errorf("unknown storage provider %q", t.Provider))
	}
	if t.MaxObjectSize < 0 {
		errs = append(errs, fmt.Errorf("max object size must not be negative"))
	}
	if err := t.Engine().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseSize accepts "16MiB", "16mb", "16777216".
func ParseSize(s string) (int64, error) {
	n, err := units.RAMInBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("size %q must be positive", s)
	}
	return n, nil
}
