package media

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/edvin/civicwatch/internal/metrics"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config points the uploader at a bucket. PublicURL is the base that object
// keys are appended to; it defaults to the path-style bucket URL.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PublicURL string
}

// S3Uploader writes evidence objects with PutObject.
type S3Uploader struct {
	client    putObjectAPI
	bucket    string
	publicURL string
	logger    zerolog.Logger
}

var _ Uploader = (*S3Uploader)(nil)

// NewS3Uploader creates an uploader for an S3-compatible endpoint.
func NewS3Uploader(cfg S3Config, logger zerolog.Logger) *S3Uploader {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return newS3Uploader(s3.New(opts), cfg, logger)
}

func newS3Uploader(client putObjectAPI, cfg S3Config, logger zerolog.Logger) *S3Uploader {
	public := cfg.PublicURL
	if public == "" {
		public = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return &S3Uploader{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(public, "/"),
		logger:    logger.With().Str("component", "media-uploader").Logger(),
	}
}

// Upload stores body under key and returns the object's public URL.
func (u *S3Uploader) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}
	if _, err := u.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	metrics.MediaUploadBytes.Add(float64(max(size, 0)))
	u.logger.Debug().Str("key", key).Int64("bytes", size).Msg("uploaded evidence")
	return u.URL(key), nil
}

// URL returns the public URL of key.
func (u *S3Uploader) URL(key string) string {
	return u.publicURL + "/" + key
}
