// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package datasets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bitrise-io/go-utils/v2/log"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/config"
)

type DatasetService struct {
	http   config.CoreHTTP
	logger log.Logger
}

func NewDatasetService(_ context.Context, conf config.Config, logger log.Logger) (*DatasetService, error) {
	if conf.Core.BaseURL == "" {
		return nil, errors.New("invalid core config: missing endpoint")
	}
	if logger == nil {
		logger = log.NewLogger()
	}
	return &DatasetService{
		http:   config.NewHTTPCore(nil, conf.Core, logger),
		logger: logger,
	}, nil
}

// NewDatasetServiceWithHTTP is used when the caller owns the HTTP client.
func NewDatasetServiceWithHTTP(httpc config.CoreHTTP, logger log.Logger) *DatasetService {
	if logger == nil {
		logger = log.NewLogger()
	}
	return &DatasetService{http: httpc, logger: logger}
}

// representation asks the API to echo the stored rows.
var representation = map[string]string{"Prefer": "return=representation"}

// decodeList parses the list the API returns for every read and write.
func decodeList[T any](body []byte) ([]T, error) {
	var out []T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("malformed response from dataset API: %w: %s", err, truncate(body, 200))
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
