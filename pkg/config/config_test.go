package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestDefaultConfig verifies that the default configuration is set correctly
func TestDefaultConfig(t *testing.T) {
	cfg := newDefault()

	assert.Equal(t, DefaultServicePort, cfg.Server.Port)
	assert.Equal(t, "http://localhost:3000", cfg.Server.PublicURL)
	assert.Equal(t, "uploads", cfg.Bucket.Name)
	assert.Equal(t, "jd-tier-list-images", cfg.Bucket.LegacyName)
	assert.Equal(t, "test", cfg.Bucket.LegacyObjectKey)
	assert.Empty(t, cfg.Store.DataDir)
	assert.Equal(t, int64(DefaultMaxObjectSize), cfg.Store.MaxObjectSize)
	assert.Empty(t, cfg.Sentry.DSN)

	// defaults must be usable as is
	assert.NoError(t, cfg.Validate())
}

// TestValidate tests the configuration validation function
func TestValidate(t *testing.T) {
	cfg := newDefault()

	invalidCfg := *cfg
	invalidCfg.Server.Port = 0
	assert.Error(t, invalidCfg.Validate())

	invalidCfg = *cfg
	invalidCfg.Server.Port = 70000
	assert.Error(t, invalidCfg.Validate())

	invalidCfg = *cfg
	invalidCfg.Server.PublicURL = "not a url"
	assert.Error(t, invalidCfg.Validate())

	invalidCfg = *cfg
	invalidCfg.Server.PublicURL = "ftp://example.com"
	assert.Error(t, invalidCfg.Validate())

	invalidCfg = *cfg
	invalidCfg.Server.LogLevel = "loud"
	assert.Error(t, invalidCfg.Validate())

	invalidCfg = *cfg
	invalidCfg.Bucket.Name = ""
	err := invalidCfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bucket.Name is required")
	assert.Contains(t, err.Error(), "--bucket")

	invalidCfg = *cfg
	invalidCfg.Bucket.SecretAccessKey = ""
	assert.Error(t, invalidCfg.Validate())

	invalidCfg = *cfg
	invalidCfg.Store.MaxObjectSize = 0
	assert.Error(t, invalidCfg.Validate())

	invalidCfg = *cfg
	invalidCfg.Sentry.DSN = "nope"
	assert.Error(t, invalidCfg.Validate())

	invalidCfg = *cfg
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte{}, 0644))
	invalidCfg.Store.DataDir = file
	assert.Error(t, invalidCfg.Validate())

	// all problems are reported together
	invalidCfg = *cfg
	invalidCfg.Server.Port = 0
	invalidCfg.Bucket.Name = ""
	invalidCfg.Bucket.LegacyName = ""
	err = invalidCfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Server.Port")
	assert.Contains(t, err.Error(), "Bucket.Name")
	assert.Contains(t, err.Error(), "Bucket.LegacyName")

	validCfg := *cfg
	validCfg.Store.DataDir = t.TempDir()
	validCfg.Sentry.DSN = "https://key@sentry.example.com/1"
	assert.NoError(t, validCfg.Validate())
}

// TestFromCLI tests that CLI flags are correctly applied to the configuration
func TestFromCLI(t *testing.T) {
	cfg := newDefault()
	fromCLI(cli.NewContext(nil, flag.NewFlagSet("test", flag.ContinueOnError), nil), cfg)
	assert.Equal(t, newDefault(), cfg)

	flagSet := flag.NewFlagSet("test", flag.ContinueOnError)
	flagSet.Int("port", 0, "")
	flagSet.String("public-url", "", "")
	flagSet.String("log-level", "", "")
	flagSet.String("bucket", "", "")
	flagSet.String("region", "", "")
	flagSet.String("access-key-id", "", "")
	flagSet.String("secret-access-key", "", "")
	flagSet.String("legacy-bucket", "", "")
	flagSet.String("legacy-object-key", "", "")
	flagSet.String("data-dir", "", "")
	flagSet.Int64("max-object-size", 0, "")
	flagSet.String("sentry-dsn", "", "")
	flagSet.String("sentry-environment", "", "")

	err := flagSet.Parse([]string{
		"--port", "8080",
		"--public-url", "https://example.com",
		"--log-level", "debug",
		"--bucket", "images",
		"--region", "eu-west-2",
		"--access-key-id", "id",
		"--secret-access-key", "secret",
		"--legacy-bucket", "old-images",
		"--legacy-object-key", "avatar.png",
		"--data-dir", "/data/dir",
		"--max-object-size", "1024",
		"--sentry-dsn", "https://key@sentry.example.com/1",
		"--sentry-environment", "staging",
	})
	require.NoError(t, err)

	cfg = newDefault()
	fromCLI(cli.NewContext(nil, flagSet, nil), cfg)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://example.com", cfg.Server.PublicURL)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "images", cfg.Bucket.Name)
	assert.Equal(t, "eu-west-2", cfg.Bucket.Region)
	assert.Equal(t, "id", cfg.Bucket.AccessKeyID)
	assert.Equal(t, "secret", cfg.Bucket.SecretAccessKey)
	assert.Equal(t, "old-images", cfg.Bucket.LegacyName)
	assert.Equal(t, "avatar.png", cfg.Bucket.LegacyObjectKey)
	assert.Equal(t, "/data/dir", cfg.Store.DataDir)
	assert.Equal(t, int64(1024), cfg.Store.MaxObjectSize)
	assert.Equal(t, "https://key@sentry.example.com/1", cfg.Sentry.DSN)
	assert.Equal(t, "staging", cfg.Sentry.Environment)
}

func writeConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestLoad tests loading configuration from a file
func TestLoad(t *testing.T) {
	configPath := writeConfigFile(t, `
[server]
port = 9090
public_url = "https://config-file.example.com"

[bucket]
name = "config-images"
legacy_object_key = "config.png"

[store]
data_dir = "/config/data"
max_object_size = 2048
`)

	cfg, err := load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://config-file.example.com", cfg.Server.PublicURL)
	assert.Equal(t, "config-images", cfg.Bucket.Name)
	assert.Equal(t, "config.png", cfg.Bucket.LegacyObjectKey)
	assert.Equal(t, "/config/data", cfg.Store.DataDir)
	assert.Equal(t, int64(2048), cfg.Store.MaxObjectSize)

	// unspecified values keep their defaults
	assert.Equal(t, "jd-tier-list-images", cfg.Bucket.LegacyName)
	assert.Equal(t, "us-east-1", cfg.Bucket.Region)

	t.Run("without a file", func(t *testing.T) {
		cfg, err := load("")
		require.NoError(t, err)
		assert.Equal(t, newDefault(), cfg)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := load(filepath.Join(t.TempDir(), "missing.toml"))
		assert.Error(t, err)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := load(t.TempDir())
		assert.Error(t, err)
	})
}

// TestConfigPrecedence tests that configuration values are loaded with the correct precedence:
// CLI flags > Environment variables > Config file > Defaults
func TestConfigPrecedence(t *testing.T) {
	configPath := writeConfigFile(t, `
[server]
port = 9090
public_url = "https://config-file.example.com"

[bucket]
name = "config-images"
region = "config-region"
`)

	t.Setenv("UPLOADURL_PORT", "8080")
	t.Setenv("UPLOADURL_PUBLIC_URL", "https://env-var.example.com")

	flagSet := flag.NewFlagSet("test", flag.ContinueOnError)
	flagSet.String("config", "", "")
	flagSet.Int("port", 0, "")
	err := flagSet.Parse([]string{
		"--config", configPath,
		"--port", "7070",
	})
	require.NoError(t, err)

	cfg, err := LoadConfig(cli.NewContext(nil, flagSet, nil))
	require.NoError(t, err)

	// flag
	assert.Equal(t, 7070, cfg.Server.Port)
	// env
	assert.Equal(t, "https://env-var.example.com", cfg.Server.PublicURL)
	// file
	assert.Equal(t, "config-images", cfg.Bucket.Name)
	assert.Equal(t, "config-region", cfg.Bucket.Region)
	// default
	assert.Equal(t, "test", cfg.Bucket.LegacyObjectKey)
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Setenv("UPLOADURL_PORT", "0")

	flagSet := flag.NewFlagSet("test", flag.ContinueOnError)
	flagSet.String("config", "", "")
	require.NoError(t, flagSet.Parse(nil))

	_, err := LoadConfig(cli.NewContext(nil, flagSet, nil))
	require.Error(t, err)
}
