package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/deemkeen/fedipage/util"
)

// S3Store stores objects in an S3-compatible bucket. A custom endpoint
// (MinIO, R2, etc.) switches the client to path-style addressing.
type S3Store struct {
	client        *s3.Client
	bucket        string
	publicBaseUrl string
}

func NewS3Store(ctx context.Context, conf *util.AppConfig) (*S3Store, error) {
	s3conf := conf.Conf.S3
	if s3conf.Bucket == "" {
		return nil, fmt.Errorf("s3 storage requires a bucket name")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(s3conf.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3conf.AccessKey, s3conf.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("could not load s3 credentials: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s3conf.Endpoint != "" {
			o.BaseEndpoint = aws.String(s3conf.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:        client,
		bucket:        s3conf.Bucket,
		publicBaseUrl: strings.TrimSuffix(s3conf.PublicBaseUrl, "/"),
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("could not store object %s: %w", key, err)
	}
	return s.publicBaseUrl + "/" + key, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("could not delete object %s: %w", key, err)
	}
	return nil
}

// Compile-time check that S3Store implements ObjectStore
var _ ObjectStore = (*S3Store)(nil)
