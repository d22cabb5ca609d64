package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/lightningshop/jobtrack/internal/config"
)

var ErrMissingBucket = errors.New("missing_s3_bucket")

// S3Store uploads artifacts with the s3manager multipart uploader.
type S3Store struct {
	uploader s3manageriface.UploaderAPI
	bucket   string
	prefix   string
}

func NewS3Store(cfg config.ExportConfig) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, ErrMissingBucket
	}

	awsCfg := &aws.Config{Region: aws.String(cfg.S3Region)}
	if cfg.S3Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.S3Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.S3Key != "" && cfg.S3Secret != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.S3Key, cfg.S3Secret, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return NewS3StoreWithUploader(s3manager.NewUploader(sess), cfg.S3Bucket, cfg.S3Prefix), nil
}

func NewS3StoreWithUploader(uploader s3manageriface.UploaderAPI, bucket, prefix string) *S3Store {
	return &S3Store{uploader: uploader, bucket: bucket, prefix: prefix}
}

func (s *S3Store) Driver() string { return config.ExportDriverS3 }

func (s *S3Store) Put(ctx context.Context, key, contentType string, body []byte) (Artifact, error) {
	if err := validKey(key); err != nil {
		return Artifact{}, err
	}

	objectKey := key
	if s.prefix != "" {
		objectKey = path.Join(s.prefix, key)
	}

	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("upload %s: %w", objectKey, err)
	}

	return Artifact{
		Key:         objectKey,
		Location:    out.Location,
		Size:        int64(len(body)),
		ContentType: contentType,
	}, nil
}
