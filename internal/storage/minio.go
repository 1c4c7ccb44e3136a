package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/8848connie/drawing-room/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore stores photos in a MinIO (or any S3-compatible) bucket.
type MinioStore struct {
	client   *minio.Client
	bucket   string
	endpoint string
	secure   bool
	baseURL  string
}

func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	// Accept either "minio:9000" or "http://minio:9000" / "https://minio:9000".
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		secure = (u.Scheme == "https")
		return u.Host, secure, nil
	}

	// No scheme provided, treat as host:port (insecure by default for local MinIO).
	return raw, false, nil
}

// NewMinioStore creates the client. minio.New does no network I/O.
func NewMinioStore(cfg config.StorageConfig) (*MinioStore, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio configuration incomplete")
	}

	endpoint, secure, err := normaliseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	return &MinioStore{
		client:   client,
		bucket:   cfg.Bucket,
		endpoint: endpoint,
		secure:   secure,
		baseURL:  cfg.PublicBaseURL,
	}, nil
}

// Put uploads obj with its size known up front.
func (m *MinioStore) Put(ctx context.Context, obj Object) (string, error) {
	_, err := m.client.PutObject(
		ctx,
		m.bucket,
		obj.Key,
		bytes.NewReader(obj.Data),
		int64(len(obj.Data)),
		minio.PutObjectOptions{ContentType: obj.ContentType},
	)
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", obj.Key, err)
	}
	return m.URL(obj.Key), nil
}

// URL is the public base URL when configured, else the path-style bucket URL.
func (m *MinioStore) URL(key string) string {
	if u := publicURL(m.baseURL, key); u != "" {
		return u
	}
	scheme := "http"
	if m.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, m.endpoint, m.bucket, key)
}

// Check makes sure the bucket exists.
func (m *MinioStore) Check(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("minio bucket does not exist: %s", m.bucket)
	}
	return nil
}

// List returns every object under prefix. Returning early cancels the
// listing goroutine so it does not block on the unread channel.
func (m *MinioStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var out []ObjectInfo
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		out = append(out, ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}
	return out, nil
}

// Remove deletes one object.
func (m *MinioStore) Remove(ctx context.Context, key string) error {
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}
