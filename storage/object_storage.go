package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	gcs "cloud.google.com/go/storage"
)

// GCSStorage implements ObjectStorage on a Google Cloud Storage bucket.
type GCSStorage struct {
	bucket     *gcs.BucketHandle
	bucketName string
	publicBase string
}

// NewGCSStorage connects to the named bucket. publicBase overrides the
// default public URL prefix (useful behind a CDN); empty means the standard
// storage.googleapis.com address.
func NewGCSStorage(ctx context.Context, bucketName, publicBase string) (*GCSStorage, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs: new client: %w", err)
	}
	return &GCSStorage{
		bucket:     client.Bucket(bucketName),
		bucketName: bucketName,
		publicBase: strings.TrimSuffix(publicBase, "/"),
	}, nil
}

// Upload writes data to the object at path. The write is only durable once
// the writer is closed, so a close error is an upload failure.
func (g *GCSStorage) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	w := g.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs: write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs: finalize %s: %w", path, err)
	}
	return nil
}

func (g *GCSStorage) PublicURL(path string) string {
	if g.publicBase != "" {
		return g.publicBase + "/" + path
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucketName, path)
}

// MemoryObjectStorage is an in-memory ObjectStorage for tests.
type MemoryObjectStorage struct {
	mu      sync.Mutex
	base    string
	Objects map[string][]byte

	// FailPaths simulates upload failures for paths containing any listed substring.
	FailPaths []string
}

// NewMemoryObjectStorage creates an empty in-memory store serving objects
// under the given public base URL.
func NewMemoryObjectStorage(base string) *MemoryObjectStorage {
	return &MemoryObjectStorage{
		base:    strings.TrimSuffix(base, "/"),
		Objects: make(map[string][]byte),
	}
}

func (m *MemoryObjectStorage) Upload(_ context.Context, path string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, frag := range m.FailPaths {
		if strings.Contains(path, frag) {
			return fmt.Errorf("memory storage: simulated upload failure for %s", path)
		}
	}
	m.Objects[path] = bytes.Clone(data)
	return nil
}

func (m *MemoryObjectStorage) PublicURL(path string) string {
	return m.base + "/" + path
}
