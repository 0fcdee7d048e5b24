package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
)

const DefaultServicePort = 3000

// DefaultMaxObjectSize is the default limit for objects uploaded to the local
// object store, in bytes.
const DefaultMaxObjectSize = 64 << 20

// ServerConfig contains the HTTP server settings
type ServerConfig struct {
	Port      int    `toml:"port" json:"port" mapstructure:"port" validate:"min=1,max=65535" flag:"port"`
	PublicURL string `toml:"public_url" json:"public_url" mapstructure:"public_url" validate:"required,url" flag:"public-url"`
	LogLevel  string `toml:"log_level" json:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error dpanic panic fatal" flag:"log-level"`
}

// BucketConfig contains the settings for the buckets upload URLs are signed for
type BucketConfig struct {
	Name            string `toml:"name" json:"name" mapstructure:"name" validate:"required" flag:"bucket"`
	Region          string `toml:"region" json:"region" mapstructure:"region" validate:"required" flag:"region"`
	AccessKeyID     string `toml:"access_key_id" json:"access_key_id" mapstructure:"access_key_id" validate:"required" flag:"access-key-id"`
	SecretAccessKey string `toml:"secret_access_key" json:"secret_access_key" mapstructure:"secret_access_key" validate:"required" flag:"secret-access-key"`
	LegacyName      string `toml:"legacy_name" json:"legacy_name" mapstructure:"legacy_name" validate:"required" flag:"legacy-bucket"`
	LegacyObjectKey string `toml:"legacy_object_key" json:"legacy_object_key" mapstructure:"legacy_object_key" validate:"required" flag:"legacy-object-key"`
}

// StoreConfig contains the settings for the local object store
type StoreConfig struct {
	// DataDir persists objects in LevelDB when set, otherwise they are held
	// in memory.
	DataDir       string `toml:"data_dir" json:"data_dir" mapstructure:"data_dir" flag:"data-dir"`
	MaxObjectSize int64  `toml:"max_object_size" json:"max_object_size" mapstructure:"max_object_size" validate:"min=1" flag:"max-object-size"`
}

// SentryConfig contains the error reporting settings
type SentryConfig struct {
	DSN         string `toml:"dsn" json:"dsn" mapstructure:"dsn" validate:"omitempty,url" flag:"sentry-dsn"`
	Environment string `toml:"environment" json:"environment" mapstructure:"environment" flag:"sentry-environment"`
}

// Local represents the full configuration for a locally run upload URL
// service
type Local struct {
	Server ServerConfig `toml:"server" json:"server" mapstructure:"server"`
	Bucket BucketConfig `toml:"bucket" json:"bucket" mapstructure:"bucket"`
	Store  StoreConfig  `toml:"store" json:"store" mapstructure:"store"`
	Sentry SentryConfig `toml:"sentry" json:"sentry" mapstructure:"sentry"`
}

// LoadConfig handles the entire configuration loading process with the
// precedence flags > environment variables > config file > defaults, then
// validates the result.
func LoadConfig(cCtx *cli.Context) (*Local, error) {
	cfg, err := load(cCtx.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Apply CLI flag overrides
	fromCLI(cCtx, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate performs validation on the configuration values and returns any errors.
func (cfg *Local) Validate() error {
	var errs error
	if err := validateConfig(cfg); err != nil {
		errs = multierror.Append(errs, err)
	}

	if cfg.Server.PublicURL != "" {
		u, err := url.Parse(cfg.Server.PublicURL)
		if err == nil && u.Scheme != "http" && u.Scheme != "https" {
			errs = multierror.Append(errs, fmt.Errorf("public URL must use http or https: %s", cfg.Server.PublicURL))
		}
		if err == nil && u.RawQuery != "" {
			errs = multierror.Append(errs, errors.New("public URL must not have a query"))
		}
	}

	if cfg.Store.DataDir != "" {
		if stat, err := os.Stat(cfg.Store.DataDir); err == nil && !stat.IsDir() {
			errs = multierror.Append(errs, fmt.Errorf("data directory path is not a directory: %s", cfg.Store.DataDir))
		}
	}

	return errs
}

// load reads the configuration from the config file at path, if any, and the
// environment. Fields not specified keep their default values.
func load(path string) (*Local, error) {
	v, err := setupViperWithDefaults()
	if err != nil {
		return nil, err
	}

	if path != "" {
		if stat, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file path does not exist: %s", path)
			}
			return nil, fmt.Errorf("failed to read config file at path %s: %w", path, err)
		} else if stat.IsDir() {
			return nil, fmt.Errorf("config file path points to a directory: %s", path)
		}

		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := new(Local)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// newDefault creates a new configuration with pure default values.
func newDefault() *Local {
	return &Local{
		Server: ServerConfig{
			Port:      DefaultServicePort,
			PublicURL: fmt.Sprintf("http://localhost:%d", DefaultServicePort),
			LogLevel:  "info",
		},
		Bucket: BucketConfig{
			Name:            "uploads",
			Region:          "us-east-1",
			AccessKeyID:     "uploadurl",
			SecretAccessKey: "uploadurl-secret",
			LegacyName:      "jd-tier-list-images",
			LegacyObjectKey: "test",
		},
		Store: StoreConfig{
			MaxObjectSize: DefaultMaxObjectSize,
		},
	}
}

// fromCLI loads configuration values from CLI flags
func fromCLI(ctx *cli.Context, cfg *Local) {
	// Server settings
	if ctx.IsSet("port") {
		cfg.Server.Port = ctx.Int("port")
	}
	if ctx.IsSet("public-url") {
		cfg.Server.PublicURL = ctx.String("public-url")
	}
	if ctx.IsSet("log-level") {
		cfg.Server.LogLevel = ctx.String("log-level")
	}

	// Bucket settings
	if ctx.IsSet("bucket") {
		cfg.Bucket.Name = ctx.String("bucket")
	}
	if ctx.IsSet("region") {
		cfg.Bucket.Region = ctx.String("region")
	}
	if ctx.IsSet("access-key-id") {
		cfg.Bucket.AccessKeyID = ctx.String("access-key-id")
	}
	if ctx.IsSet("secret-access-key") {
		cfg.Bucket.SecretAccessKey = ctx.String("secret-access-key")
	}
	if ctx.IsSet("legacy-bucket") {
		cfg.Bucket.LegacyName = ctx.String("legacy-bucket")
	}
	if ctx.IsSet("legacy-object-key") {
		cfg.Bucket.LegacyObjectKey = ctx.String("legacy-object-key")
	}

	// Store settings
	if ctx.IsSet("data-dir") {
		cfg.Store.DataDir = ctx.String("data-dir")
	}
	if ctx.IsSet("max-object-size") {
		cfg.Store.MaxObjectSize = ctx.Int64("max-object-size")
	}

	// Sentry settings
	if ctx.IsSet("sentry-dsn") {
		cfg.Sentry.DSN = ctx.String("sentry-dsn")
	}
	if ctx.IsSet("sentry-environment") {
		cfg.Sentry.Environment = ctx.String("sentry-environment")
	}
}

// setupViperWithDefaults creates a new Viper instance with default values and environment bindings
func setupViperWithDefaults() (*viper.Viper, error) {
	v := viper.New()

	envMappings := map[string]string{
		// Server
		"server.port":       "PORT",
		"server.public_url": "PUBLIC_URL",
		"server.log_level":  "LOG_LEVEL",

		// Bucket
		"bucket.name":              "BUCKET_NAME",
		"bucket.region":            "BUCKET_REGION",
		"bucket.access_key_id":     "BUCKET_ACCESS_KEY_ID",
		"bucket.secret_access_key": "BUCKET_SECRET_ACCESS_KEY",
		"bucket.legacy_name":       "LEGACY_BUCKET_NAME",
		"bucket.legacy_object_key": "LEGACY_OBJECT_KEY",

		// Store
		"store.data_dir":        "DATA_DIR",
		"store.max_object_size": "MAX_OBJECT_SIZE",

		// Sentry
		"sentry.dsn":         "SENTRY_DSN",
		"sentry.environment": "SENTRY_ENVIRONMENT",
	}

	for key, envVar := range envMappings {
		if err := v.BindEnv(key, "UPLOADURL_"+envVar); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable %s: %w", key, err)
		}
	}

	defaultCfg := newDefault()

	v.SetDefault("server.port", defaultCfg.Server.Port)
	v.SetDefault("server.public_url", defaultCfg.Server.PublicURL)
	v.SetDefault("server.log_level", defaultCfg.Server.LogLevel)
	v.SetDefault("bucket.name", defaultCfg.Bucket.Name)
	v.SetDefault("bucket.region", defaultCfg.Bucket.Region)
	v.SetDefault("bucket.access_key_id", defaultCfg.Bucket.AccessKeyID)
	v.SetDefault("bucket.secret_access_key", defaultCfg.Bucket.SecretAccessKey)
	v.SetDefault("bucket.legacy_name", defaultCfg.Bucket.LegacyName)
	v.SetDefault("bucket.legacy_object_key", defaultCfg.Bucket.LegacyObjectKey)
	v.SetDefault("store.data_dir", defaultCfg.Store.DataDir)
	v.SetDefault("store.max_object_size", defaultCfg.Store.MaxObjectSize)
	v.SetDefault("sentry.dsn", defaultCfg.Sentry.DSN)
	v.SetDefault("sentry.environment", defaultCfg.Sentry.Environment)

	return v, nil
}
