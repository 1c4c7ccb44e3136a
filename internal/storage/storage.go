// Package storage pushes photo payloads to an S3-compatible object store and
// hands back the URL the object can be fetched from.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/8848connie/drawing-room/internal/config"
)

// Object is one payload to store.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// MediaStore is what the upload pipeline needs.
type MediaStore interface {
	// Put stores obj and returns its durable URL.
	Put(ctx context.Context, obj Object) (string, error)
	// Check verifies the bucket is reachable.
	Check(ctx context.Context) error
}

// Inventory adds the listing and removal the reconcile job needs.
type Inventory interface {
	MediaStore
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Remove(ctx context.Context, key string) error
	URL(key string) string
}

// New builds the backend named by cfg.Driver. It does not touch the network.
func New(cfg config.StorageConfig) (Inventory, error) {
	switch cfg.Driver {
	case config.StorageMinio, "":
		return NewMinioStore(cfg)
	case config.StorageS3:
		return NewS3Store(cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// publicURL joins base and key, or returns "" when base is unset.
func publicURL(base, key string) string {
	if base == "" {
		return ""
	}
	return base + "/" + key
}
