package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/ignite/lead-finder/internal/config"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("object not found")

// ObjectInfo describes one listed object.
type ObjectInfo struct {
	Key          string
	LastModified time.Time
}

// BlobStore is the object store contract used for results and history.
// Implementations are bound to one bucket or root directory.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// ParseBucketURL splits "s3://bucket/base/prefix/" (or a bare bucket name)
// into the bucket and a base prefix that ends with "/" when non-empty.
func ParseBucketURL(raw string) (bucket, prefix string) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "s3://")
	bucket, prefix, _ = strings.Cut(s, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return bucket, prefix
}

// New builds the configured BlobStore and returns it with the base prefix
// all history keys are placed under.
func New(cfg config.StorageConfig, awsCfg aws.Config) (BlobStore, string, error) {
	switch cfg.Type {
	case "s3":
		bucket, prefix := ParseBucketURL(cfg.S3Bucket)
		if bucket == "" {
			return nil, "", errors.New("storage.s3_bucket is required for s3 storage")
		}
		return NewS3Store(awsCfg, bucket), prefix, nil
	case "local":
		store, err := NewLocalStore(cfg.LocalPath)
		if err != nil {
			return nil, "", err
		}
		return store, "", nil
	default:
		return nil, "", fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
