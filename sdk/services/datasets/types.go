// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package datasets

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	datasetsResource = "datasets"
	filesResource    = "files"

	// DateLayout is the day granularity used by the created_date filters.
	DateLayout = "2006-01-02"
)

type Dataset struct {
	ID          string         `json:"dataset_id"`
	CreatedDate string         `json:"created_date,omitempty"`
	CreatorRole string         `json:"creator_role,omitempty"`
	AccessRole  string         `json:"access_role,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// FileRecord is one registered object of a dataset.
type FileRecord struct {
	DatasetID   string         `json:"dataset_id"`
	CreatedDate string         `json:"created_date,omitempty"`
	URL         string         `json:"url"`
	Filesize    int64          `json:"filesize"`
	Version     int            `json:"version"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Checksum    string         `json:"checksum,omitempty"`
}

// RelativePath returns the unescaped object path after the dataset id segment.
func (f FileRecord) RelativePath() (string, error) {
	if f.DatasetID == "" {
		return "", fmt.Errorf("file record %q has no dataset id", f.URL)
	}
	u, err := url.Parse(f.URL)
	if err != nil {
		return "", fmt.Errorf("invalid file url %q: %w", f.URL, err)
	}
	marker := "/" + f.DatasetID + "/"
	i := strings.Index(u.Path, marker)
	if i < 0 {
		return "", fmt.Errorf("url %q does not contain dataset %s", f.URL, f.DatasetID)
	}
	rel := u.Path[i+len(marker):]
	if rel == "" {
		return "", fmt.Errorf("url %q has no path after dataset %s", f.URL, f.DatasetID)
	}
	return rel, nil
}

// Ordering is a single sort key accepted by ListDatasets.
type Ordering string

const (
	CreatedDateAsc  Ordering = "created_date.asc"
	CreatedDateDesc Ordering = "created_date.desc"
	CreatorAsc      Ordering = "creator.asc"
	CreatorDesc     Ordering = "creator.desc"
)

var Orderings = []Ordering{CreatedDateAsc, CreatedDateDesc, CreatorAsc, CreatorDesc}

func ParseOrdering(s string) (Ordering, error) {
	for _, o := range Orderings {
		if strings.EqualFold(s, string(o)) {
			return o, nil
		}
	}
	return "", fmt.Errorf("unsupported order %q", s)
}

// databaseField maps the user facing name to the column it sorts by.
func (o Ordering) databaseField() string {
	switch o {
	case CreatorAsc:
		return "creator_role.asc"
	case CreatorDesc:
		return "creator_role.desc"
	default:
		return string(o)
	}
}

type DatasetQuery struct {
	ID      string
	Before  *time.Time
	After   *time.Time
	Creator string
	Order   Ordering
	Limit   int
	Offset  int
}

type FileQuery struct {
	DatasetID string
	// Prefixes keeps only files whose relative path starts with one of them.
	Prefixes []string
}
