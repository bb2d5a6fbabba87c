// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package datasets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

func (q DatasetQuery) params() (url.Values, error) {
	if q.Before != nil && q.After != nil && q.Before.Before(*q.After) {
		return nil, errors.New("before date must not precede after date")
	}
	if q.Limit < 0 || q.Offset < 0 {
		return nil, errors.New("limit and offset must not be negative")
	}

	params := url.Values{}
	if q.ID != "" {
		params.Set("dataset_id", "eq."+q.ID)
	}
	if q.Before != nil {
		params.Add("created_date", "lt."+q.Before.Format(DateLayout))
	}
	if q.After != nil {
		params.Add("created_date", "gte."+q.After.Format(DateLayout))
	}
	if q.Creator != "" {
		params.Set("creator_role", "eq."+q.Creator)
	}
	if q.Order != "" {
		params.Set("order", q.Order.databaseField())
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	return params, nil
}

func (s *DatasetService) ListDatasets(ctx context.Context, q DatasetQuery) ([]Dataset, error) {
	params, err := q.params()
	if err != nil {
		return nil, err
	}
	body, _, err := s.http.Do(ctx, http.MethodGet, s.http.BuildURL(datasetsResource, params), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return decodeList[Dataset](body)
}

// GetDataset returns ErrDatasetNotFound when no row matches.
func (s *DatasetService) GetDataset(ctx context.Context, id string) (Dataset, error) {
	if id == "" {
		return Dataset{}, errors.New("dataset id is required")
	}
	found, err := s.ListDatasets(ctx, DatasetQuery{ID: id, Limit: 1})
	if err != nil {
		return Dataset{}, err
	}
	if len(found) == 0 {
		return Dataset{}, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	return found[0], nil
}

var ErrDatasetNotFound = errors.New("dataset not found")
