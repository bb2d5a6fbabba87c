// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
)

type CoreHTTP interface {
	BuildURL(resource string, params url.Values) string
	Do(ctx context.Context, method, url string, data []byte, headers map[string]string) ([]byte, int, error)
}

type httpCore struct {
	httpClient *retryablehttp.Client
	coreConfig CoreConfig
}

// NewHTTPCore builds the metadata client. Only these REST calls are retried;
// object transfers never go through it.
func NewHTTPCore(httpClient *retryablehttp.Client, coreConfig CoreConfig, logger log.Logger) CoreHTTP {
	if httpClient == nil {
		if logger == nil {
			logger = log.NewLogger()
		}
		httpClient = retryhttp.NewClient(logger)
		timeout := time.Duration(coreConfig.Timeout) * time.Second
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient.HTTPClient.Timeout = timeout
		if coreConfig.RetryMax > 0 {
			httpClient.RetryMax = coreConfig.RetryMax
		}
	}
	return &httpCore{httpClient: httpClient, coreConfig: coreConfig}
}

func (httpCore *httpCore) BuildURL(resource string, params url.Values) string {
	base := strings.TrimSuffix(httpCore.coreConfig.BaseURL, "/") + "/" + strings.TrimPrefix(resource, "/")
	if q := params.Encode(); q != "" {
		base += "?" + q
	}
	return base
}

func (httpCore *httpCore) Do(ctx context.Context, method, url string, data []byte, headers map[string]string) ([]byte, int, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, 0, err
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	// If access token is set, add Authorization header
	if tok := httpCore.coreConfig.AccessToken; tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpCore.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	b, rerr := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var m map[string]any
		if json.Unmarshal(b, &m) == nil {
			if msg, ok := m["message"].(string); ok && msg != "" {
				return b, resp.StatusCode, fmt.Errorf("core responded with: %s - %s", resp.Status, msg)
			}
		}
		return b, resp.StatusCode, fmt.Errorf("core responded with: %s", resp.Status)
	}
	return b, resp.StatusCode, rerr
}
