package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"mediavault/internal/config"
	domain "mediavault/internal/domain/media"
)

const (
	minioBackend  = "minio"
	minioPartSize = 16 << 20
)

// MinIOStorage keeps blobs in a MinIO bucket and streams uploads as multipart
// objects of unknown length.
type MinIOStorage struct {
	bucket string
	client *minio.Client
	gen    TokenGenerator
	log    zerolog.Logger
}

func NewMinIOStorage(ctx context.Context, cfg *config.Config, gen TokenGenerator, log zerolog.Logger) (*MinIOStorage, error) {
	logger := log.With().Str("component", "minio-storage").Logger()

	endpoint, secure, err := normaliseEndpoint(cfg.MinIOEndpoint)
	if err != nil {
		return nil, fmt.Errorf("minio endpoint: %w", err)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinIOBucket)
	if err != nil {
		return nil, fmt.Errorf("check minio bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("minio bucket does not exist: %s", cfg.MinIOBucket)
	}

	logger.Info().Str("endpoint", endpoint).Str("bucket", cfg.MinIOBucket).Msg("minio storage initialized")

	return &MinIOStorage{
		bucket: cfg.MinIOBucket,
		client: client,
		gen:    gen,
		log:    logger,
	}, nil
}

// normaliseEndpoint accepts either "minio:9000" or "http(s)://minio:9000".
func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}
	if !strings.Contains(raw, "://") {
		return raw, false, nil
	}

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
	return u.Host, u.Scheme == "https", nil
}

func (m *MinIOStorage) Put(ctx context.Context, body io.Reader, originalName string) (blob domain.StoredBlob, err error) {
	start := time.Now()
	defer func() { recordBlobOperation(minioBackend, "put", start, err) }()

	name := newStoredName(m.gen, originalName)
	exists, err := m.exists(ctx, name)
	if err != nil {
		return domain.StoredBlob{}, err
	}
	if exists {
		return domain.StoredBlob{}, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}

	info, err := m.client.PutObject(ctx, m.bucket, name, body, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
		PartSize:    minioPartSize,
	})
	if err != nil {
		return domain.StoredBlob{}, fmt.Errorf("put object: %w", err)
	}
	return domain.StoredBlob{Name: name, Size: info.Size}, nil
}

func (m *MinIOStorage) Delete(ctx context.Context, storedName string) (removed bool, err error) {
	start := time.Now()
	defer func() { recordBlobOperation(minioBackend, "delete", start, err) }()

	if err := validateStoredName(storedName); err != nil {
		return false, err
	}
	exists, err := m.exists(ctx, storedName)
	if err != nil || !exists {
		return false, err
	}
	if err := m.client.RemoveObject(ctx, m.bucket, storedName, minio.RemoveObjectOptions{}); err != nil {
		return false, fmt.Errorf("remove object: %w", err)
	}
	return true, nil
}

func (m *MinIOStorage) Resolve(ctx context.Context, storedName string) (io.ReadCloser, error) {
	if err := validateStoredName(storedName); err != nil {
		return nil, err
	}
	obj, err := m.client.GetObject(ctx, m.bucket, storedName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if isMinIONotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrBlobNotFound, storedName)
		}
		return nil, fmt.Errorf("stat object: %w", err)
	}
	return obj, nil
}

func (m *MinIOStorage) Health(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("minio bucket does not exist: %s", m.bucket)
	}
	return nil
}

func (m *MinIOStorage) exists(ctx context.Context, key string) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isMinIONotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat object: %w", err)
}

func isMinIONotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
