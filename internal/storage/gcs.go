package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStorage stores report files in a Google Cloud Storage bucket.
type GCSStorage struct {
	client         *storage.Client
	bucket         *storage.BucketHandle
	serviceAccount string
}

// NewGCSStorage opens a client with the configured credentials file or, when
// unset, application default credentials.
func NewGCSStorage(ctx context.Context, cfg *GCSConfig) (*GCSStorage, error) {
	if cfg == nil || cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs config missing")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs new client: %w", err)
	}
	return &GCSStorage{
		client:         client,
		bucket:         client.Bucket(cfg.Bucket),
		serviceAccount: cfg.ServiceAccount,
	}, nil
}

func (s *GCSStorage) UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, reader); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

func (s *GCSStorage) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetPresignedURL returns a V4 signed GET URL. Without an explicit service
// account the client signs with the credentials it was built from.
func (s *GCSStorage) GetPresignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(expires),
	}
	if s.serviceAccount != "" {
		opts.GoogleAccessID = s.serviceAccount
	}
	return s.bucket.SignedURL(key, opts)
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}
