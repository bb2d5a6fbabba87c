// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/config"
)

// EnvDumpPrefix: BOLSTER_FOO is mirrored to FOO when FOO is unset
const EnvDumpPrefix = "BOLSTER"

// Settings holds all logical keys. Tags:
// - vkey: Viper key
// - env: canonical env name (UPPER_SNAKE). If empty, derived from vkey
// - persist: "true" to write the key into the INI
// - default: optional default to set if key is unset
// - secret: "true" if sensitive, masked by Entries
// - bind: "false" to NOT bind from env (we still can set defaults)
type Settings struct {
	CoreEndpoint    string `vkey:"core_endpoint"   env:"CORE_ENDPOINT"   persist:"true"`
	CoreAccessToken string `vkey:"access_token"    env:"ACCESS_TOKEN"    persist:"true" secret:"true"`
	CoreTimeout     string `vkey:"core_timeout"    env:"CORE_TIMEOUT"    persist:"true" default:"30"`
	CoreRetryMax    string `vkey:"core_retry_max"  env:"CORE_RETRY_MAX"  persist:"true" default:"4"`

	AwsAccessKeyID     string `vkey:"aws_access_key_id"     env:"AWS_ACCESS_KEY_ID"     persist:"true" secret:"true"`
	AwsSecretAccessKey string `vkey:"aws_secret_access_key" env:"AWS_SECRET_ACCESS_KEY" persist:"true" secret:"true"`
	AwsSessionToken    string `vkey:"aws_session_token"     env:"AWS_SESSION_TOKEN"     persist:"true" secret:"true"`
	AwsRegion          string `vkey:"aws_region"            env:"AWS_REGION"            persist:"true"`
	AwsEndpointURL     string `vkey:"aws_endpoint_url"      env:"AWS_ENDPOINT_URL"      persist:"true"`
	S3Bucket           string `vkey:"s3_bucket"             env:"S3_BUCKET"             persist:"true"`

	StorageProvider        string `vkey:"storage_provider"         env:"STORAGE_PROVIDER"         persist:"true" default:"aws"`
	StoragePrefix          string `vkey:"prefix"                   env:"STORAGE_PREFIX"           persist:"true"`
	ChunkSize              string `vkey:"chunk_size"               env:"CHUNK_SIZE"               persist:"true" default:"16MiB"`
	MaxConcurrentFiles     string `vkey:"max_concurrent_files"     env:"MAX_CONCURRENT_FILES"     persist:"true" default:"4"`
	MaxConcurrentChunks    string `vkey:"max_concurrent_chunks"    env:"MAX_CONCURRENT_CHUNKS"    persist:"true" default:"10"`
	MaxObjectSize          string `vkey:"max_object_size"          env:"MAX_OBJECT_SIZE"          persist:"true"`
	AbortIncompleteUploads string `vkey:"abort_incomplete_uploads" env:"ABORT_INCOMPLETE_UPLOADS" persist:"true" default:"true"`

	IniSource          string `vkey:"ini_source"          env:"INI_SOURCE"          persist:"true"`
	UpdatedEnvironment string `vkey:"updated_environment" env:"UPDATED_ENVIRONMENT" persist:"true" bind:"false"`
	CurrentEnvironment string `vkey:"current_environment" env:"CURRENT_ENVIRONMENT" persist:"false"`
}

// resolveEnvName: --env > "default"
func resolveEnvName(optionalEnv ...string) string {
	if len(optionalEnv) > 0 && optionalEnv[0] != "" && strings.ToLower(optionalEnv[0]) != "null" {
		return optionalEnv[0]
	}
	return "default"
}

// mirror PREFIX_FOO -> FOO (optional)
func mirrorPrefix(prefix string) {
	if prefix == "" {
		return
	}
	upPrefix := strings.ToUpper(prefix) + "_"
	for _, e := range os.Environ() {
		name, val, ok := strings.Cut(e, "=")
		if !ok || !strings.HasPrefix(name, upPrefix) {
			continue
		}
		unpref := strings.TrimPrefix(name, upPrefix)
		if os.Getenv(unpref) == "" {
			_ = os.Setenv(unpref, val)
		}
	}
}

// settingsFields walks the tagged fields of Settings.
func settingsFields(fn func(f reflect.StructField, key string)) {
	rt := reflect.TypeOf(Settings{})
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if key := f.Tag.Get("vkey"); key != "" {
			fn(f, key)
		}
	}
}

func envNameOf(f reflect.StructField, key string) string {
	if env := f.Tag.Get("env"); env != "" {
		return env
	}
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Bind env for all fields of Settings using struct tags.
func BindEnvFromStruct(prefix string) {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	mirrorPrefix(prefix)

	settingsFields(func(f reflect.StructField, key string) {
		if f.Tag.Get("bind") != "false" {
			_ = viper.BindEnv(key, envNameOf(f, key))
		}
		if def := f.Tag.Get("default"); def != "" && !viper.IsSet(key) {
			viper.SetDefault(key, def)
		}
	})
}

func writePersisted(sec *ini.Section) {
	settingsFields(func(f reflect.StructField, key string) {
		if f.Tag.Get("persist") != "true" {
			return
		}
		if val := viper.GetString(key); val != "" {
			sec.Key(key).SetValue(val)
		}
	})
}

// Write a new INI with only fields marked persist:"true".
func WriteIniFromStruct(iniPath, envName string) error {
	cfg := ini.Empty()
	cfg.Section("DEFAULT").Key(CurrentEnvironment).SetValue(envName)
	writePersisted(cfg.Section(envName))
	return cfg.SaveTo(iniPath)
}

// Update or create INI section from current Viper values (persist:"true" only).
func UpdateIniFromStruct(iniPath, envName string) error {
	cfg, err := ini.Load(iniPath)
	if err != nil {
		return WriteIniFromStruct(iniPath, envName)
	}
	sec := cfg.Section(envName)
	writePersisted(sec)

	if !cfg.Section("DEFAULT").HasKey(CurrentEnvironment) {
		cfg.Section("DEFAULT").Key(CurrentEnvironment).SetValue(envName)
	}
	sec.Key(UpdatedEnvKey).SetValue(time.Now().UTC().Format(time.RFC3339))
	return cfg.SaveTo(iniPath)
}

// Load [DEFAULT] + [env] into Viper (TOML in-memory). ENV can still override on Get().
func loadIniSectionIntoViper(cfg *ini.File, env string, logger log.Logger) error {
	def := cfg.Section("DEFAULT")
	selected := def
	if env != "" && cfg.HasSection(env) {
		selected = cfg.Section(env)
		logger.Debugf("Using env: [%s]", env)
	} else if env == "" || strings.EqualFold(env, "DEFAULT") {
		logger.Debugf("Using env: [DEFAULT]")
	} else {
		logger.Warnf("Env %s not found, falling back to [DEFAULT]", env)
	}

	merged := make(map[string]string)
	for _, k := range def.Keys() {
		merged[k.Name()] = k.Value()
	}
	if selected != def {
		for _, k := range selected.Keys() {
			merged[k.Name()] = k.Value()
		}
	}

	var buf bytes.Buffer
	for k, v := range merged {
		vSafe := strings.ReplaceAll(strings.ReplaceAll(v, `\`, `\\`), `"`, `\"`)
		_, _ = fmt.Fprintf(&buf, "%s = \"%s\"\n", k, vSafe)
	}
	viper.SetConfigType("toml")
	return viper.ReadConfig(&buf)
}

// RegisterIniCfgWithViper:
// 1) bind ENV from struct (live)
// 2) load INI or lazy-bootstraps it from env (writes only target env)
// 3) load active section into Viper and set current_environment
func RegisterIniCfgWithViper(logger log.Logger, optionalEnv ...string) error {
	if logger == nil {
		logger = log.NewLogger()
	}
	iniPath := getIniPath()

	BindEnvFromStruct(EnvDumpPrefix)

	cfg, err := ini.Load(iniPath)
	if err != nil {
		logger.Debugf("INI not found; reading configuration from env variables")
		envName, bootErr := bootstrapFromEnv(iniPath, optionalEnv...)
		if bootErr != nil {
			logger.Debugf("Bootstrap skipped: %v", bootErr)
			if envName == "" {
				envName = resolveEnvName(optionalEnv...)
			}
			viper.Set(CurrentEnvironment, envName)
			return nil
		}
		cfg, err = ini.Load(iniPath)
		if err != nil {
			logger.Warnf("INI written but cannot reload: %v (ENV-only mode)", err)
			return nil
		}
	}

	// active env: --env > DEFAULT.current_environment > default
	env := resolveEnvName(optionalEnv...)
	if env == "default" {
		if v := cfg.Section("DEFAULT").Key(CurrentEnvironment).String(); v != "" {
			env = v
		}
	}

	if err := loadIniSectionIntoViper(cfg, env, logger); err != nil {
		return fmt.Errorf("failed to load INI into viper: %w", err)
	}
	viper.Set(CurrentEnvironment, env)
	return nil
}

// Bootstrap (when INI is missing): read all variables from OS envs using Settings.
// - honors `bind:"false"` (skip ENV read for that key)
// - applies `default:"..."` only if key is unset
func bootstrapFromEnv(iniPath string, optionalEnv ...string) (string, error) {
	settingsFields(func(f reflect.StructField, vkey string) {
		if !strings.EqualFold(f.Tag.Get("bind"), "false") {
			if val, ok := os.LookupEnv(envNameOf(f, vkey)); ok {
				viper.Set(vkey, val)
				return
			}
		}
		if def := f.Tag.Get("default"); def != "" && !viper.IsSet(vkey) {
			viper.SetDefault(vkey, def)
		}
	})

	if viper.GetString(CoreEndpoint) == "" {
		return "", fmt.Errorf("missing %s: set it in env or run 'bolster config set'", CoreEndpoint)
	}

	envName := resolveEnvName(optionalEnv...)
	viper.Set(CurrentEnvironment, envName)
	viper.Set(IniSource, "env")

	if err := WriteIniFromStruct(iniPath, envName); err != nil {
		return "", fmt.Errorf("write ini failed: %w", err)
	}
	if _, err := ini.Load(iniPath); err != nil {
		return "", fmt.Errorf("ini written but cannot reload: %w", err)
	}
	return envName, nil
}

// BuildConfig turns the current Viper state into SDK configuration.
func BuildConfig() (config.Config, error) {
	var errs []error

	transfer := config.DefaultTransferConfig()
	transfer.Provider = strings.ToLower(viper.GetString(StorageProvider))
	transfer.Prefix = strings.Trim(viper.GetString(StoragePrefix), "/")
	transfer.MaxConcurrentFiles = viper.GetInt(MaxConcurrentFiles)
	transfer.MaxConcurrentChunks = viper.GetInt(MaxConcurrentChunks)
	transfer.KeepIncompleteUploads = !viper.GetBool(AbortIncompleteUploads)

	if s := viper.GetString(ChunkSize); s != "" {
		n, err := config.ParseSize(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ChunkSize, err))
		}
		transfer.ChunkSize = n
	}
	if s := viper.GetString(MaxObjectSize); s != "" {
		n, err := config.ParseSize(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", MaxObjectSize, err))
		}
		transfer.MaxObjectSize = n
	}
	if err := transfer.Validate(); err != nil {
		errs = append(errs, err)
	}

	conf := config.Config{
		Core: config.CoreConfig{
			BaseURL:     viper.GetString(CoreEndpoint),
			AccessToken: viper.GetString(CoreAccessToken),
			Timeout:     viper.GetInt(CoreTimeout),
			RetryMax:    viper.GetInt(CoreRetryMax),
		},
		S3: config.S3Config{
			AccessKey:   viper.GetString(AwsAccessKeyID),
			SecretKey:   viper.GetString(AwsSecretAccessKey),
			AccessToken: viper.GetString(AwsSessionToken),
			Region:      viper.GetString(AwsRegion),
			EndpointURL: viper.GetString(AwsEndpointURL),
			Bucket:      viper.GetString(S3Bucket),
		},
		Transfer: transfer,
	}
	return conf, errors.Join(errs...)
}

// Entry is one configuration key as shown to the user.
type Entry struct {
	Key   string `json:"key"   yaml:"key"`
	Env   string `json:"env"   yaml:"env"`
	Value string `json:"value" yaml:"value"`
}

// Entries lists every known key with secrets masked.
func Entries() []Entry {
	var out []Entry
	settingsFields(func(f reflect.StructField, key string) {
		val := viper.GetString(key)
		if f.Tag.Get("secret") == "true" && val != "" {
			val = mask(val)
		}
		out = append(out, Entry{Key: key, Env: envNameOf(f, key), Value: val})
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// SetValue stores a known key in the active INI section.
func SetValue(key, value string) error {
	known := false
	settingsFields(func(f reflect.StructField, k string) {
		if k == key && f.Tag.Get("persist") == "true" {
			known = true
		}
	})
	if !known {
		return fmt.Errorf("unknown configuration key %q", key)
	}
	viper.Set(key, value)
	return UpdateIniFromStruct(getIniPath(), resolveEnvName(viper.GetString(CurrentEnvironment)))
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
