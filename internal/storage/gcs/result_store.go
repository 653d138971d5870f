// Package gcs stores result documents in Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/jumpit-harvester/internal/crawler"
)

const defaultContentType = "application/json"

// Config captures the bucket and object naming.
type Config struct {
	Bucket      string
	Prefix      string
	Filename    string
	ContentType string
	// Location is the timezone the date partition is computed in. Defaults to UTC.
	Location *time.Location
}

type nower interface {
	Now() time.Time
}

// ResultStore uploads each batch under a date-partitioned key.
type ResultStore struct {
	client *storage.Client
	cfg    Config
	clock  nower
}

// New creates a GCS-backed result store.
func New(client *storage.Client, cfg Config, clock nower) (*ResultStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if cfg.Filename == "" {
		cfg.Filename = "jumpit"
	}
	if cfg.ContentType == "" {
		cfg.ContentType = defaultContentType
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ResultStore{client: client, cfg: cfg, clock: clock}, nil
}

// ObjectKey returns <prefix>/year=YYYY/month=MM/day=DD/<filename>.json for the day of t.
func ObjectKey(prefix, filename string, t time.Time) string {
	name := strings.TrimSuffix(filename, ".json") + ".json"
	partition := fmt.Sprintf("year=%04d/month=%02d/day=%02d", t.Year(), int(t.Month()), t.Day())
	return path.Join(strings.Trim(prefix, "/"), partition, name)
}

// SaveResults streams the document to the bucket and returns its gs:// location.
func (s *ResultStore) SaveResults(ctx context.Context, records []crawler.Record) (crawler.Location, error) {
	key := ObjectKey(s.cfg.Prefix, s.cfg.Filename, s.clock.Now().In(s.cfg.Location))
	writer := s.client.Bucket(s.cfg.Bucket).Object(key).NewWriter(ctx)
	writer.ContentType = s.cfg.ContentType
	if err := crawler.EncodeDocument(writer, records); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return crawler.Location{}, fmt.Errorf("upload object: %w (close writer: %v)", err, closeErr)
		}
		return crawler.Location{}, fmt.Errorf("upload object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return crawler.Location{}, fmt.Errorf("close writer: %w", err)
	}
	return crawler.Location{
		URI:    fmt.Sprintf("gs://%s/%s", s.cfg.Bucket, key),
		Bucket: s.cfg.Bucket,
		Object: key,
	}, nil
}

// ObjectReader opens objects for the loader.
type ObjectReader struct {
	client *storage.Client
}

// NewObjectReader wraps client.
func NewObjectReader(client *storage.Client) (*ObjectReader, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	return &ObjectReader{client: client}, nil
}

// OpenObject returns a reader over bucket/key. The caller closes it.
func (r *ObjectReader) OpenObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	reader, err := r.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", bucket, key, err)
	}
	return reader, nil
}
