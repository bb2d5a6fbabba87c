// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/config"
)

func TestHTTPCore_BuildURL(t *testing.T) {
	core := config.NewHTTPCore(nil, config.CoreConfig{BaseURL: "http://core.local/api/"}, nil)
	assert.Equal(t, "http://core.local/api/datasets", core.BuildURL("/datasets", nil))

	params := url.Values{}
	params.Set("dataset_id", "eq.abc")
	assert.Equal(t, "http://core.local/api/files?dataset_id=eq.abc", core.BuildURL("files", params))
}

func TestHTTPCore_Do(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"a":1}`, string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"ok":true}]`))
	}))
	defer srv.Close()

	core := config.NewHTTPCore(nil, config.CoreConfig{BaseURL: srv.URL, AccessToken: "secret"}, nil)
	body, status, err := core.Do(context.Background(), http.MethodPost, core.BuildURL("datasets", nil),
		[]byte(`{"a":1}`), map[string]string{"Prefer": "return=representation"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, `[{"ok":true}]`, string(body))
}

func TestHTTPCore_ErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"duplicate key"}`))
	}))
	defer srv.Close()

	core := config.NewHTTPCore(nil, config.CoreConfig{BaseURL: srv.URL}, nil)
	_, status, err := core.Do(context.Background(), http.MethodPost, core.BuildURL("datasets", nil), []byte(`{}`), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "core responded with: 409 Conflict - duplicate key", err.Error())
}
