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
	"net/url"
	"strings"
)

// RegisterFile records an uploaded object against its dataset.
func (s *DatasetService) RegisterFile(ctx context.Context, rec FileRecord) (FileRecord, error) {
	if rec.DatasetID == "" || rec.URL == "" {
		return FileRecord{}, errors.New("dataset id and url are required")
	}
	if rec.Version == 0 {
		rec.Version = 1
	}
	if rec.Metadata == nil {
		rec.Metadata = map[string]any{}
	}

	body, err := json.Marshal(map[string]any{
		"dataset_id": rec.DatasetID,
		"url":        rec.URL,
		"filesize":   rec.Filesize,
		"version":    rec.Version,
		"metadata":   rec.Metadata,
		"checksum":   rec.Checksum,
	})
	if err != nil {
		return FileRecord{}, fmt.Errorf("failed to marshal: %w", err)
	}

	resp, _, err := s.http.Do(ctx, http.MethodPost, s.http.BuildURL(filesResource, nil), body, representation)
	if err != nil {
		return FileRecord{}, fmt.Errorf("failed to register %s: %w", rec.URL, err)
	}
	stored, err := decodeList[FileRecord](resp)
	if err != nil {
		return FileRecord{}, err
	}
	if len(stored) == 0 {
		return rec, nil
	}
	return stored[0], nil
}

func (s *DatasetService) ListFiles(ctx context.Context, q FileQuery) ([]FileRecord, error) {
	if q.DatasetID == "" {
		return nil, errors.New("dataset id is required")
	}
	params := url.Values{}
	params.Set("dataset_id", "eq."+q.DatasetID)
	params.Set("order", "url.asc")

	body, _, err := s.http.Do(ctx, http.MethodGet, s.http.BuildURL(filesResource, params), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list files of %s: %w", q.DatasetID, err)
	}
	records, err := decodeList[FileRecord](body)
	if err != nil {
		return nil, err
	}
	if len(q.Prefixes) == 0 {
		return records, nil
	}

	out := records[:0]
	for _, r := range records {
		rel, err := r.RelativePath()
		if err != nil {
			s.logger.Warnf("Skipping %s: %s", r.URL, err)
			continue
		}
		if hasAnyPrefix(rel, q.Prefixes) {
			out = append(out, r)
		}
	}
	return out, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, strings.TrimPrefix(p, "/")) {
			return true
		}
	}
	return false
}
