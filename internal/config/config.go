// Package config builds the per-invocation configuration for the photo wall
// from the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrMissing is wrapped by MissingError so callers can use errors.Is.
var ErrMissing = errors.New("missing configuration")

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Storage drivers.
const (
	StorageMinio = "minio"
	StorageS3    = "s3"
)

// DefaultFolder is the logical folder every photo is stored under.
const DefaultFolder = "christmas-photowall"

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Config is built once per invocation and handed to the backend constructors.
type Config struct {
	DBDriver    string
	DatabaseURL string
	SQLitePath  string

	Storage StorageConfig

	MaxUploadBytes int64
}

// StorageConfig describes the object store photos are pushed to.
type StorageConfig struct {
	Driver        string
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Folder        string
	PublicBaseURL string
}

// MissingError lists required variables that were not set.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return "missing configuration: " + strings.Join(e.Keys, ", ")
}

func (e *MissingError) Unwrap() error { return ErrMissing }

// FromEnv reads the process environment.
func FromEnv() (Config, error) {
	return Load(os.LookupEnv)
}

// Load builds a Config from lookup. Absent credentials are not an error here;
// use MissingForUpload / MissingForListing to check what a handler needs.
// Load only fails on values that are present but malformed.
func Load(lookup LookupFunc) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := Config{
		DBDriver:    strings.ToLower(get("PHOTOWALL_DB_DRIVER", DriverPostgres)),
		DatabaseURL: get("DATABASE_URL", ""),
		SQLitePath:  get("PHOTOWALL_SQLITE_PATH", ""),
		Storage: StorageConfig{
			Driver:        strings.ToLower(get("PHOTOWALL_STORAGE_DRIVER", StorageMinio)),
			Endpoint:      get("PHOTOWALL_STORAGE_ENDPOINT", ""),
			Region:        get("PHOTOWALL_STORAGE_REGION", "us-east-1"),
			AccessKey:     get("PHOTOWALL_STORAGE_ACCESS_KEY", ""),
			SecretKey:     get("PHOTOWALL_STORAGE_SECRET_KEY", ""),
			Bucket:        get("PHOTOWALL_STORAGE_BUCKET", ""),
			Folder:        strings.Trim(get("PHOTOWALL_STORAGE_FOLDER", DefaultFolder), "/"),
			PublicBaseURL: strings.TrimRight(get("PHOTOWALL_PUBLIC_BASE_URL", ""), "/"),
		},
	}

	switch cfg.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return Config{}, fmt.Errorf("unknown PHOTOWALL_DB_DRIVER %q", cfg.DBDriver)
	}

	switch cfg.Storage.Driver {
	case StorageMinio, StorageS3:
	default:
		return Config{}, fmt.Errorf("unknown PHOTOWALL_STORAGE_DRIVER %q", cfg.Storage.Driver)
	}

	if raw := get("PHOTOWALL_MAX_UPLOAD_BYTES", ""); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("PHOTOWALL_MAX_UPLOAD_BYTES: %w", err)
		}
		cfg.MaxUploadBytes = n
	}

	return cfg, nil
}

// MissingForListing reports what the listing handler needs but does not have.
func (c Config) MissingForListing() error {
	return missing(c.databaseKeys())
}

// MissingForUpload reports what the upload handler needs but does not have.
func (c Config) MissingForUpload() error {
	keys := c.storageKeys()
	keys = append(keys, c.databaseKeys()...)
	return missing(keys)
}

// MissingForStorage reports absent storage credentials only.
func (c Config) MissingForStorage() error {
	return missing(c.storageKeys())
}

func (c Config) databaseKeys() []string {
	switch c.DBDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return []string{"PHOTOWALL_SQLITE_PATH"}
		}
	default:
		if c.DatabaseURL == "" {
			return []string{"DATABASE_URL"}
		}
	}
	return nil
}

func (c Config) storageKeys() []string {
	var keys []string
	s := c.Storage
	if s.Driver == StorageMinio && s.Endpoint == "" {
		keys = append(keys, "PHOTOWALL_STORAGE_ENDPOINT")
	}
	if s.AccessKey == "" {
		keys = append(keys, "PHOTOWALL_STORAGE_ACCESS_KEY")
	}
	if s.SecretKey == "" {
		keys = append(keys, "PHOTOWALL_STORAGE_SECRET_KEY")
	}
	if s.Bucket == "" {
		keys = append(keys, "PHOTOWALL_STORAGE_BUCKET")
	}
	return keys
}

func missing(keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return &MissingError{Keys: keys}
}
