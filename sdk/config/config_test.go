// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/config"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/engine"
)

func TestParseSize(t *testing.T) {
	cases := map[string]int64{
		"16MiB":    16 << 20,
		"16mb":     16 << 20,
		"16777216": 16 << 20,
		" 1GiB ":   1 << 30,
		"512k":     512 << 10,
	}
	for in, want := range cases {
		got, err := config.ParseSize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "abc", "0", "-5MiB"} {
		_, err := config.ParseSize(bad)
		assert.Error(t, err, bad)
	}
}

func TestTransferConfig_EngineDefaults(t *testing.T) {
	cfg := config.TransferConfig{}.Engine()
	assert.Equal(t, engine.DefaultConfig(), cfg)
	assert.False(t, cfg.KeepIncompleteUploads, "a zero config must abort failed multipart sessions")

	kept := config.TransferConfig{KeepIncompleteUploads: true}.Engine()
	assert.True(t, kept.KeepIncompleteUploads)

	cfg = config.TransferConfig{ChunkSize: 8 << 20, MaxConcurrentFiles: 2, MaxConcurrentChunks: 3}.Engine()
	assert.Equal(t, int64(8<<20), cfg.ChunkSize)
	assert.Equal(t, 2, cfg.MaxConcurrentFiles)
	assert.Equal(t, 3, cfg.MaxConcurrentChunks)
	assert.False(t, cfg.KeepIncompleteUploads)
	assert.Equal(t, int64(2*3*8<<20), cfg.MemoryCeiling())
}

func TestTransferConfig_Validate(t *testing.T) {
	require.NoError(t, config.DefaultTransferConfig().Validate())

	bad := config.DefaultTransferConfig()
	bad.Provider = "ftp"
	bad.MaxObjectSize = -1
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown storage provider "ftp"`)
	assert.Contains(t, err.Error(), "max object size")
}

func TestTransferConfig_ObjectSizeLimit(t *testing.T) {
	assert.Equal(t, engine.DefaultMaxObjectSize, config.TransferConfig{}.ObjectSizeLimit())
	assert.Equal(t, int64(1024), config.TransferConfig{MaxObjectSize: 1024}.ObjectSizeLimit())
}
