package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"mediavault/internal/config"
	domain "mediavault/internal/domain/media"
)

const s3Backend = "s3"

// S3Storage keeps blobs in an S3-compatible bucket.
type S3Storage struct {
	bucket   string
	spoolDir string
	client   *s3.Client
	gen      TokenGenerator
	log      zerolog.Logger
}

func NewS3Storage(ctx context.Context, cfg *config.Config, gen TokenGenerator, log zerolog.Logger) (*S3Storage, error) {
	logger := log.With().Str("component", "s3-storage").Logger()

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKeyID != "" && cfg.S3SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretKey, "")))
	}
	if cfg.S3Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           cfg.S3Endpoint,
				PartitionID:   "aws",
				SigningRegion: cfg.S3Region,
			}, nil
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	logger.Info().Str("bucket", cfg.S3Bucket).Str("endpoint", cfg.S3Endpoint).Msg("s3 storage initialized")

	return &S3Storage{
		bucket:   cfg.S3Bucket,
		spoolDir: cfg.S3SpoolDir,
		client:   client,
		gen:      gen,
		log:      logger,
	}, nil
}

// Put spools the body to a temp file so the object is sent with an exact
// Content-Length, then uploads it. The temp file is always removed.
func (s *S3Storage) Put(ctx context.Context, body io.Reader, originalName string) (blob domain.StoredBlob, err error) {
	start := time.Now()
	defer func() { recordBlobOperation(s3Backend, "put", start, err) }()

	name := newStoredName(s.gen, originalName)
	exists, err := s.exists(ctx, name)
	if err != nil {
		return domain.StoredBlob{}, err
	}
	if exists {
		return domain.StoredBlob{}, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}

	spool, err := os.CreateTemp(s.spoolDir, "s3-upload-*")
	if err != nil {
		return domain.StoredBlob{}, fmt.Errorf("create spool file: %w", err)
	}
	defer func() {
		_ = spool.Close()
		_ = os.Remove(spool.Name())
	}()

	written, err := io.Copy(spool, body)
	if err != nil {
		return domain.StoredBlob{}, fmt.Errorf("spool blob: %w", err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return domain.StoredBlob{}, fmt.Errorf("rewind spool file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.StoredBlob{}, err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(name),
		Body:          spool,
		ContentLength: aws.Int64(written),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return domain.StoredBlob{}, fmt.Errorf("put object: %w", err)
	}

	return domain.StoredBlob{Name: name, Size: written}, nil
}

// Delete removes an object, reporting false when it was already absent.
func (s *S3Storage) Delete(ctx context.Context, storedName string) (removed bool, err error) {
	start := time.Now()
	defer func() { recordBlobOperation(s3Backend, "delete", start, err) }()

	if err := validateStoredName(storedName); err != nil {
		return false, err
	}
	exists, err := s.exists(ctx, storedName)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storedName),
	}); err != nil {
		return false, fmt.Errorf("delete object: %w", err)
	}
	return true, nil
}

func (s *S3Storage) Resolve(ctx context.Context, storedName string) (io.ReadCloser, error) {
	if err := validateStoredName(storedName); err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storedName),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrBlobNotFound, storedName)
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	return out.Body, nil
}

// Health performs a simple HeadBucket request.
func (s *S3Storage) Health(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

func (s *S3Storage) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isS3NotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("head object: %w", err)
}

func isS3NotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}
