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

	"listflow/config"
)

// S3Store writes listing assets to S3-compatible storage. Logical buckets
// (property-images, property-documents, ...) become top-level key prefixes
// inside one physical bucket.
type S3Store struct {
	client *s3.Client
	cfg    config.S3Config
}

func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &S3Store{client: client, cfg: cfg}, nil
}

func (s *S3Store) Upload(ctx context.Context, bucket, path string, data io.Reader, contentType string) (string, error) {
	key := bucket + "/" + path
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return s.publicURL(key), nil
}

func (s *S3Store) Delete(ctx context.Context, bucket, path string) error {
	key := bucket + "/" + path
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// PathFromURL recovers the object path (without the logical bucket prefix)
// from a public URL produced by Upload.
func (s *S3Store) PathFromURL(url string) string {
	key := strings.TrimPrefix(url, s.baseURL()+"/")
	if i := strings.Index(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}

func (s *S3Store) publicURL(key string) string {
	return s.baseURL() + "/" + key
}

func (s *S3Store) baseURL() string {
	if s.cfg.Endpoint != "" && strings.Contains(s.cfg.Endpoint, "digitaloceanspaces.com") {
		// DO Spaces: https://{bucket}.{region}.digitaloceanspaces.com
		host := strings.TrimPrefix(s.cfg.Endpoint, "https://")
		return fmt.Sprintf("https://%s.%s", s.cfg.Bucket, host)
	}
	if s.cfg.Endpoint != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(s.cfg.Endpoint, "/"), s.cfg.Bucket)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s.cfg.Bucket, s.cfg.Region)
}
