// Package config resolves s3snap settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"

	"github.com/gnitoahc/go-dotenv"
	"github.com/spf13/viper"

	"s3snap/pkg/s3store"
	"s3snap/pkg/sqlite"
)

const (
	DriverS3     = "s3"
	DriverSQLite = "sqlite"

	// DefaultBucket is the bucket scanned when none is configured.
	DefaultBucket = "dailysupplysnapshot"

	envPrefix = "S3SNAP"
)

type Config struct {
	Driver   string
	Bucket   string
	LogLevel string
	// MaxKeys bounds the single listing page; 0 keeps the backend default.
	MaxKeys int32
	S3      s3store.Config
	SQLite  sqlite.Config
}

// Load reads envFile (if it exists) into the process environment and then
// resolves S3SNAP_* variables over the built-in defaults.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			dotenv.Load(envFile)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("DRIVER", DriverS3)
	v.SetDefault("BUCKET", DefaultBucket)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_KEYS", 0)
	v.SetDefault("REGION", "")
	v.SetDefault("ENDPOINT", "")
	v.SetDefault("ACCESS_KEY", "")
	v.SetDefault("SECRET_ACCESS_KEY", "")
	v.SetDefault("SESSION_TOKEN", "")
	v.SetDefault("PATH_STYLE", false)
	v.SetDefault("PART_SIZE", 0)
	v.SetDefault("SQLITE_SOURCE", "file:s3snap.db?cache=shared")
	v.SetDefault("SQLITE_OVERWRITE", true)

	cfg := Config{
		Driver:   v.GetString("DRIVER"),
		Bucket:   v.GetString("BUCKET"),
		LogLevel: v.GetString("LOG_LEVEL"),
		MaxKeys:  v.GetInt32("MAX_KEYS"),
		S3: s3store.Config{
			Region:           v.GetString("REGION"),
			EndpointOverride: v.GetString("ENDPOINT"),
			AccessKey:        v.GetString("ACCESS_KEY"),
			SecretAccessKey:  v.GetString("SECRET_ACCESS_KEY"),
			SessionToken:     v.GetString("SESSION_TOKEN"),
			UsePathStyle:     v.GetBool("PATH_STYLE"),
			PartSize:         v.GetInt64("PART_SIZE"),
		},
		SQLite: sqlite.Config{
			Source:         v.GetString("SQLITE_SOURCE"),
			AllowOverwrite: v.GetBool("SQLITE_OVERWRITE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverS3, DriverSQLite:
	default:
		return fmt.Errorf("config: unknown driver %q (want %q or %q)", c.Driver, DriverS3, DriverSQLite)
	}
	if c.MaxKeys < 0 {
		return fmt.Errorf("config: %s_MAX_KEYS must not be negative", envPrefix)
	}
	if c.S3.PartSize < 0 {
		return fmt.Errorf("config: %s_PART_SIZE must not be negative", envPrefix)
	}
	return nil
}
