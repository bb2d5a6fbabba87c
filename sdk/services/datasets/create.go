// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package datasets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
	"sigs.k8s.io/yaml"
)

type CreateRequest struct {
	// ID is generated when empty.
	ID       string
	Metadata map[string]any
	// FilePath points to a YAML or JSON metadata document merged under Metadata.
	FilePath string
}

func (s *DatasetService) CreateDataset(ctx context.Context, req CreateRequest) (Dataset, error) {
	metadata := map[string]any{}
	if req.FilePath != "" {
		data, err := os.ReadFile(req.FilePath)
		if err != nil {
			return Dataset{}, fmt.Errorf("failed to read metadata file: %w", err)
		}
		jsonBytes, err := yaml.YAMLToJSON(data)
		if err != nil {
			return Dataset{}, fmt.Errorf("yaml to json failed: %w", err)
		}
		if err := json.Unmarshal(jsonBytes, &metadata); err != nil {
			return Dataset{}, fmt.Errorf("metadata file must hold a mapping: %w", err)
		}
	}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return Dataset{}, fmt.Errorf("invalid dataset id %q: %w", id, err)
	}

	body, err := json.Marshal(map[string]any{
		"dataset_id": id,
		"metadata":   metadata,
	})
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to marshal: %w", err)
	}

	url := s.http.BuildURL(datasetsResource, nil)
	resp, _, err := s.http.Do(ctx, http.MethodPost, url, body, representation)
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to create dataset: %w", err)
	}
	created, err := decodeList[Dataset](resp)
	if err != nil {
		return Dataset{}, err
	}
	if len(created) == 0 {
		return Dataset{}, errors.New("dataset API returned no info for the new dataset")
	}
	s.logger.Debugf("Created dataset %s", created[0].ID)
	return created[0], nil
}
