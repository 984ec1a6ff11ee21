// Package gcs archives raw article pages in Google Cloud Storage.
package gcs

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
}

// BlobStore uploads gzip-compressed pages. Objects are stored with
// Content-Encoding gzip so GCS serves them decompressed to plain clients.
type BlobStore struct {
	bucket *storage.BucketHandle
	name   string
}

// NewClient opens a storage client using application default credentials.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*storage.Client, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return client, nil
}

// New creates a GCS-backed blob store. The client stays owned by the caller.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, errors.New("gcs: storage client is required")
	}
	name := strings.TrimSpace(cfg.Bucket)
	if name == "" {
		return nil, errors.New("gcs: bucket name is required")
	}
	return &BlobStore{bucket: client.Bucket(name), name: name}, nil
}

// PutObject uploads r under path and returns its gs:// URI. Archive paths
// are unique per fetch, so an existing object is never overwritten.
func (s *BlobStore) PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error) {
	name := objectName(path)
	if name == "" {
		return "", errors.New("gcs: object path is required")
	}

	// Canceling the writer context aborts a partial upload.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.bucket.Object(name).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	w.ContentEncoding = "gzip"
	w.Metadata = map[string]string{"archived-by": "article-summaries"}

	gz := gzip.NewWriter(w)
	if _, err := io.Copy(gz, r); err != nil {
		cancel()
		_ = w.Close()
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	if err := gz.Close(); err != nil {
		cancel()
		_ = w.Close()
		return "", fmt.Errorf("compress %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize %s: %w", name, err)
	}
	return URI(s.name, name), nil
}

// URI formats the gs:// location of an object.
func URI(bucket, path string) string {
	return "gs://" + bucket + "/" + objectName(path)
}

func objectName(path string) string {
	return strings.TrimLeft(strings.TrimSpace(path), "/")
}
