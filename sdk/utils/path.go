// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

type ParsedPath struct {
	Scheme string
	Bucket string
	Key    string
}

// String escapes the key, so '#', '?' and '%' in file names survive ParsePath.
func (p ParsedPath) String() string {
	return (&url.URL{Scheme: p.Scheme, Host: p.Bucket, Path: "/" + p.Key}).String()
}

// ParsePath splits an object URL such as s3://bucket/prefix/id/file.bin.
// The returned key is unescaped.
func ParsePath(raw string) (ParsedPath, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ParsedPath{}, fmt.Errorf("invalid object url %q: %w", raw, err)
	}
	if u.Scheme != "s3" {
		return ParsedPath{}, fmt.Errorf("unsupported scheme %q in %s, only s3 is supported", u.Scheme, raw)
	}
	if u.Host == "" {
		return ParsedPath{}, errors.New("object url has no bucket: " + raw)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		return ParsedPath{}, fmt.Errorf("object url %s does not name an object", raw)
	}
	return ParsedPath{Scheme: u.Scheme, Bucket: u.Host, Key: key}, nil
}

// ObjectKey builds <prefix>/<datasetID>/<relative path>; prefix is optional.
func ObjectKey(prefix, datasetID, rel string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return path.Join(datasetID, rel)
	}
	return path.Join(prefix, datasetID, rel)
}
