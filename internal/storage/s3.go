package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/speedwagon-io/flexlab/internal/config"
)

var ErrNotConfigured = errors.New("object storage is not configured")

// ObjectStore fetches simulation result files from an S3 compatible bucket.
type ObjectStore struct {
	Endpoint string
	Bucket   string
	Client   *minio.Client
}

func NewObjectStore(cfg *config.StorageConfig) (*ObjectStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return &ObjectStore{
		Endpoint: cfg.Endpoint,
		Bucket:   cfg.Bucket,
		Client:   client,
	}, nil
}

// Fetch opens key for reading. The caller closes the returned reader.
func (s *ObjectStore) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	if s == nil || s.Client == nil {
		return nil, ErrNotConfigured
	}

	obj, err := s.Client.GetObject(ctx, s.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3 get object: %w", err)
	}

	// GetObject is lazy; Stat surfaces a missing key here rather than on first read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("s3 stat object %s: %w", key, err)
	}

	return obj, nil
}
