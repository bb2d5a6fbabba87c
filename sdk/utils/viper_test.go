// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/config"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/engine"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestRegisterIniCfgWithViper_BootstrapFromEnv(t *testing.T) {
	resetViper(t)
	iniPath := filepath.Join(t.TempDir(), "bolster.ini")
	t.Setenv("BOLSTER_INI", iniPath)
	t.Setenv("CORE_ENDPOINT", "http://core.local")
	t.Setenv("BOLSTER_S3_BUCKET", "datasets")
	t.Setenv("S3_BUCKET", "")
	t.Setenv("ACCESS_TOKEN", "tok-123456")

	require.NoError(t, RegisterIniCfgWithViper(nil))
	assert.Equal(t, "http://core.local", viper.GetString(CoreEndpoint))
	assert.Equal(t, "datasets", viper.GetString(S3Bucket))
	assert.Equal(t, "default", viper.GetString(CurrentEnvironment))

	f, err := ini.Load(iniPath)
	require.NoError(t, err)
	assert.Equal(t, "http://core.local", f.Section("default").Key(CoreEndpoint).String())
	assert.Equal(t, "16MiB", f.Section("default").Key(ChunkSize).String())
	assert.Equal(t, "default", f.Section("DEFAULT").Key(CurrentEnvironment).String())
}

func TestRegisterIniCfgWithViper_LoadsSection(t *testing.T) {
	resetViper(t)
	iniPath := filepath.Join(t.TempDir(), "bolster.ini")
	t.Setenv("BOLSTER_INI", iniPath)

	f := ini.Empty()
	f.Section("DEFAULT").Key(CurrentEnvironment).SetValue("staging")
	f.Section("DEFAULT").Key(StorageProvider).SetValue("aws")
	f.Section("staging").Key(CoreEndpoint).SetValue("http://staging")
	f.Section("staging").Key(StorageProvider).SetValue("minio")
	f.Section("prod").Key(CoreEndpoint).SetValue("http://prod")
	require.NoError(t, f.SaveTo(iniPath))

	require.NoError(t, RegisterIniCfgWithViper(nil))
	assert.Equal(t, "http://staging", viper.GetString(CoreEndpoint))
	assert.Equal(t, "minio", viper.GetString(StorageProvider))

	viper.Reset()
	require.NoError(t, RegisterIniCfgWithViper(nil, "prod"))
	assert.Equal(t, "http://prod", viper.GetString(CoreEndpoint))
	assert.Equal(t, "aws", viper.GetString(StorageProvider))
}

func TestBuildConfig(t *testing.T) {
	resetViper(t)
	BindEnvFromStruct("")
	viper.Set(CoreEndpoint, "http://core.local")
	viper.Set(S3Bucket, "datasets")
	viper.Set(ChunkSize, "8MiB")
	viper.Set(MaxConcurrentFiles, "2")
	viper.Set(StoragePrefix, "/raw/")

	conf, err := BuildConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://core.local", conf.Core.BaseURL)
	assert.Equal(t, 30, conf.Core.Timeout)
	assert.Equal(t, "datasets", conf.S3.Bucket)
	assert.Equal(t, config.ProviderAWS, conf.Transfer.Provider)
	assert.Equal(t, "raw", conf.Transfer.Prefix)
	assert.Equal(t, int64(8<<20), conf.Transfer.ChunkSize)
	assert.Equal(t, 2, conf.Transfer.MaxConcurrentFiles)
	assert.Equal(t, engine.DefaultMaxConcurrentChunks, conf.Transfer.MaxConcurrentChunks)
	assert.False(t, conf.Transfer.KeepIncompleteUploads)
	assert.Equal(t, engine.DefaultMaxObjectSize, conf.Transfer.ObjectSizeLimit())
}

func TestBuildConfig_KeepIncompleteUploads(t *testing.T) {
	resetViper(t)
	BindEnvFromStruct("")
	viper.Set(AbortIncompleteUploads, "false")

	conf, err := BuildConfig()
	require.NoError(t, err)
	assert.True(t, conf.Transfer.KeepIncompleteUploads)
	assert.True(t, conf.Transfer.Engine().KeepIncompleteUploads)
}

func TestBuildConfig_Invalid(t *testing.T) {
	resetViper(t)
	BindEnvFromStruct("")
	viper.Set(ChunkSize, "lots")
	viper.Set(StorageProvider, "ftp")

	_, err := BuildConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), ChunkSize)
	assert.Contains(t, err.Error(), "ftp")
}

func TestEntriesMasksSecrets(t *testing.T) {
	resetViper(t)
	viper.Set(CoreAccessToken, "abcdefgh")
	viper.Set(S3Bucket, "datasets")

	byKey := map[string]Entry{}
	for _, e := range Entries() {
		byKey[e.Key] = e
	}
	assert.Equal(t, "ab****gh", byKey[CoreAccessToken].Value)
	assert.Equal(t, "ACCESS_TOKEN", byKey[CoreAccessToken].Env)
	assert.Equal(t, "datasets", byKey[S3Bucket].Value)
}

func TestSetValue(t *testing.T) {
	resetViper(t)
	iniPath := filepath.Join(t.TempDir(), "bolster.ini")
	t.Setenv("BOLSTER_INI", iniPath)

	require.Error(t, SetValue("no_such_key", "x"))
	require.NoError(t, SetValue(S3Bucket, "datasets"))

	f, err := ini.Load(iniPath)
	require.NoError(t, err)
	assert.Equal(t, "datasets", f.Section("default").Key(S3Bucket).String())
}
