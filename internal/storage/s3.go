package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jhart/medialens/internal/config"
	"github.com/jhart/medialens/internal/domain"
)

// S3Archive implements MediaArchive against S3-compatible object storage.
type S3Archive struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3Archive creates a media archive client.
// Parameters:
//   - cfg: archive configuration (endpoint, credentials, bucket).
//
// Returns:
//   - *S3Archive: initialized archive client.
//   - error: non-nil if the AWS configuration cannot be built.
func NewS3Archive(cfg *config.ArchiveConfig) (*S3Archive, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(cfg.Endpoint, cfg.UseSSL))
			// Path-style addressing works with MinIO and other
			// S3-compatible services
			o.UsePathStyle = true
		}
	})

	return &S3Archive{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
	}, nil
}

// endpointURL builds a scheme-qualified endpoint from a bare host.
func endpointURL(endpoint string, useSSL bool) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}

	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, endpoint)
}

// EnsureBucket creates the archive bucket if it does not exist.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//
// Returns:
//   - error: non-nil if the bucket cannot be created.
func (a *S3Archive) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create archive bucket %s: %w", a.bucket, err)
	}
	return nil
}

// Put archives one original media file.
func (a *S3Archive) Put(ctx context.Context, mediaType domain.MediaType, filename string, reader io.Reader, size int64, contentType string) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(objectKey(mediaType, filename)),
		Body:          reader,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", filename, err)
	}
	return nil
}

// Open streams an archived original back.
func (a *S3Archive) Open(ctx context.Context, mediaType domain.MediaType, filename string) (io.ReadCloser, error) {
	result, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(objectKey(mediaType, filename)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open archived %s: %w", filename, err)
	}
	return result.Body, nil
}

// Exists checks whether an original has been archived.
func (a *S3Archive) Exists(ctx context.Context, mediaType domain.MediaType, filename string) (bool, error) {
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(objectKey(mediaType, filename)),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, fmt.Errorf("failed to check archived %s: %w", filename, err)
	}
	return true, nil
}

// Remove deletes an archived original.
func (a *S3Archive) Remove(ctx context.Context, mediaType domain.MediaType, filename string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(objectKey(mediaType, filename)),
	})
	if err != nil {
		return fmt.Errorf("failed to remove archived %s: %w", filename, err)
	}
	return nil
}

// URL returns the public URL of an archived original. Empty when no
// public URL prefix is configured.
func (a *S3Archive) URL(mediaType domain.MediaType, filename string) string {
	if a.publicURL == "" {
		return ""
	}
	return a.publicURL + "/" + objectKey(mediaType, filename)
}
