package export

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/fleetcore-io/fleetcore/pkg/options"
)

// S3Sink uploads exports to a bucket.
type S3Sink struct {
	client *minio.Client
	bucket string
	prefix string
	log    logr.Logger
	now    func() time.Time
	newID  func() string
}

func NewS3Sink(opts *options.S3Options, log logr.Logger) (*S3Sink, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via flag
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure:    opts.UseSSL,
		Region:    opts.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &S3Sink{
		client: client,
		bucket: opts.BucketName,
		prefix: opts.KeyPrefix,
		log:    log,
		now:    time.Now,
		newID:  func() string { return uuid.NewString()[:8] },
	}, nil
}

// CheckBucket creates the bucket when it does not exist yet.
func (s *S3Sink) CheckBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		s.log.Info("Bucket does not exist, creating", "bucket", s.bucket)
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// Put uploads data under a unique key derived from name and returns an
// s3:// location.
func (s *S3Sink) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := s.CheckBucket(ctx); err != nil {
		return "", err
	}

	key := ObjectKey(s.prefix, name, s.now(), s.newID())
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/csv; charset=utf-8",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	s.log.V(1).Info("Export uploaded", "bucket", s.bucket, "key", key, "size", len(data))
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// PresignedURL returns a temporary download link for an uploaded export.
func (s *S3Sink) PresignedURL(ctx context.Context, location string, expiry time.Duration) (string, error) {
	key := strings.TrimPrefix(location, fmt.Sprintf("s3://%s/", s.bucket))
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned url: %w", err)
	}
	return u.String(), nil
}

// ObjectKey builds "<prefix><base>-<utc time>-<id><ext>" from an export
// file name, so repeated exports never overwrite each other.
func ObjectKey(prefix, name string, at time.Time, id string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s%s-%s-%s%s", prefix, stem, at.UTC().Format("20060102T150405Z"), id, ext)
}
