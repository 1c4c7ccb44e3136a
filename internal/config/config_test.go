package config

import (
	"errors"
	"strings"
	"testing"
)

func mapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func fullEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":                 "postgres://u:p@localhost:5432/photos?sslmode=disable",
		"PHOTOWALL_STORAGE_ENDPOINT":   "http://minio:9000",
		"PHOTOWALL_STORAGE_ACCESS_KEY": "minio",
		"PHOTOWALL_STORAGE_SECRET_KEY": "minio123",
		"PHOTOWALL_STORAGE_BUCKET":     "photos",
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DBDriver != DriverPostgres {
		t.Errorf("DBDriver = %q, want %q", cfg.DBDriver, DriverPostgres)
	}
	if cfg.Storage.Driver != StorageMinio {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, StorageMinio)
	}
	if cfg.Storage.Folder != DefaultFolder {
		t.Errorf("Storage.Folder = %q, want %q", cfg.Storage.Folder, DefaultFolder)
	}
	if cfg.Storage.Region != "us-east-1" {
		t.Errorf("Storage.Region = %q", cfg.Storage.Region)
	}
	if cfg.MaxUploadBytes != 0 {
		t.Errorf("MaxUploadBytes = %d, want 0", cfg.MaxUploadBytes)
	}
}

func TestLoad_TrimsFolderAndBaseURL(t *testing.T) {
	env := fullEnv()
	env["PHOTOWALL_STORAGE_FOLDER"] = "/party/"
	env["PHOTOWALL_PUBLIC_BASE_URL"] = "https://cdn.example.com/"

	cfg, err := Load(mapLookup(env))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.Folder != "party" {
		t.Errorf("Folder = %q, want %q", cfg.Storage.Folder, "party")
	}
	if cfg.Storage.PublicBaseURL != "https://cdn.example.com" {
		t.Errorf("PublicBaseURL = %q", cfg.Storage.PublicBaseURL)
	}
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad db driver", "PHOTOWALL_DB_DRIVER", "mysql"},
		{"bad storage driver", "PHOTOWALL_STORAGE_DRIVER", "gcs"},
		{"bad max upload", "PHOTOWALL_MAX_UPLOAD_BYTES", "lots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := fullEnv()
			env[tt.key] = tt.val
			if _, err := Load(mapLookup(env)); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.val)
			}
		})
	}
}

func TestMissingForUpload(t *testing.T) {
	tests := []struct {
		name     string
		unset    []string
		set      map[string]string
		wantKeys []string
	}{
		{
			name: "complete",
		},
		{
			name:     "no storage credentials",
			unset:    []string{"PHOTOWALL_STORAGE_ACCESS_KEY", "PHOTOWALL_STORAGE_SECRET_KEY"},
			wantKeys: []string{"PHOTOWALL_STORAGE_ACCESS_KEY", "PHOTOWALL_STORAGE_SECRET_KEY"},
		},
		{
			name:     "no database",
			unset:    []string{"DATABASE_URL"},
			wantKeys: []string{"DATABASE_URL"},
		},
		{
			name:  "s3 without endpoint is fine",
			unset: []string{"PHOTOWALL_STORAGE_ENDPOINT"},
			set:   map[string]string{"PHOTOWALL_STORAGE_DRIVER": "s3"},
		},
		{
			name:     "minio without endpoint",
			unset:    []string{"PHOTOWALL_STORAGE_ENDPOINT"},
			wantKeys: []string{"PHOTOWALL_STORAGE_ENDPOINT"},
		},
		{
			name:     "sqlite without path",
			set:      map[string]string{"PHOTOWALL_DB_DRIVER": "sqlite"},
			wantKeys: []string{"PHOTOWALL_SQLITE_PATH"},
		},
		{
			name:     "blank values count as missing",
			set:      map[string]string{"PHOTOWALL_STORAGE_BUCKET": "   "},
			wantKeys: []string{"PHOTOWALL_STORAGE_BUCKET"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := fullEnv()
			for _, k := range tt.unset {
				delete(env, k)
			}
			for k, v := range tt.set {
				env[k] = v
			}

			cfg, err := Load(mapLookup(env))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}

			err = cfg.MissingForUpload()
			if len(tt.wantKeys) == 0 {
				if err != nil {
					t.Fatalf("expected no missing keys, got %v", err)
				}
				return
			}

			if !errors.Is(err, ErrMissing) {
				t.Fatalf("expected ErrMissing, got %v", err)
			}
			var merr *MissingError
			if !errors.As(err, &merr) {
				t.Fatalf("expected *MissingError, got %T", err)
			}
			if strings.Join(merr.Keys, ",") != strings.Join(tt.wantKeys, ",") {
				t.Errorf("missing keys = %v, want %v", merr.Keys, tt.wantKeys)
			}
			for _, k := range tt.wantKeys {
				if !strings.Contains(err.Error(), k) {
					t.Errorf("error %q does not name %s", err.Error(), k)
				}
			}
		})
	}
}

func TestMissingForListing_IgnoresStorage(t *testing.T) {
	cfg, err := Load(mapLookup(map[string]string{
		"DATABASE_URL": "postgres://localhost/photos",
	}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.MissingForListing(); err != nil {
		t.Errorf("listing should only need the database, got %v", err)
	}
	if err := cfg.MissingForStorage(); err == nil {
		t.Error("expected storage keys to be reported missing")
	}
}
