// Package storage publishes finished artifacts to an object store.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/gosimple/slug"

	"github.com/ytget/media-downloader/internal/logging"
)

// DefaultHostKey is used when the source URL has no usable host
const DefaultHostKey = "unknown"

// ObjectStore stores objects by bucket and key
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key string, data io.ReadSeeker) error
}

// S3ObjectStore is an ObjectStore backed by S3
type S3ObjectStore struct {
	Client *s3.S3
}

// PutObject implements ObjectStore
func (s *S3ObjectStore) PutObject(ctx context.Context, bucket, key string, data io.ReadSeeker) error {
	_, err := s.Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   data,
	})
	return err
}

// Uploader copies local files into a bucket under a per-source prefix
type Uploader struct {
	Store  ObjectStore
	Bucket string
	Prefix string
}

// ObjectKey returns "<prefix>/<slug(host)>/<base name of localPath>"
func (u *Uploader) ObjectKey(sourceURL, localPath string) string {
	host := DefaultHostKey
	if parsed, err := url.Parse(sourceURL); err == nil && parsed.Hostname() != "" {
		host = slug.Make(strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www."))
	}
	return path.Join(strings.Trim(u.Prefix, "/"), host, filepath.Base(localPath))
}

// Upload stores localPath and returns its object key
func (u *Uploader) Upload(ctx context.Context, sourceURL, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	key := u.ObjectKey(sourceURL, localPath)
	if err := u.Store.PutObject(ctx, u.Bucket, key, f); err != nil {
		return "", fmt.Errorf("uploading %s to s3://%s/%s: %w", localPath, u.Bucket, key, err)
	}

	logging.FromContext(ctx).Info("uploaded artifact", "bucket", u.Bucket, "key", key)
	return key, nil
}
