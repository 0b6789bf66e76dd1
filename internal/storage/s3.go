package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"accountsec/internal/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// S3Export writes artifacts to an S3-compatible bucket (MinIO, Garage, AWS).
type S3Export struct {
	bucketName string
	prefix     string
	client     *minio.Client
}

// NewS3Export connects to the configured endpoint and checks that the bucket exists.
func NewS3Export(ctx context.Context, config models.S3ExportConfiguration) (*S3Export, error) {
	options := &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseTLS,
		Region: config.Region,
	}
	if config.ForcePathStyle {
		options.BucketLookup = minio.BucketLookupPath
	}

	client, err := minio.New(config.Endpoint, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 export client: %w", err)
	}

	exists, err := client.BucketExists(ctx, config.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to S3 export storage: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("S3 export bucket %q does not exist", config.BucketName)
	}

	return &S3Export{bucketName: config.BucketName, prefix: config.Prefix, client: client}, nil
}

func objectKey(prefix string, name string) string {
	return path.Join(prefix, path.Base(name))
}

func (s *S3Export) Write(ctx context.Context, name string, content []byte, contentType string) (string, error) {
	key := objectKey(s.prefix, name)
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload export: %w", err)
	}

	zap.L().Info("Export uploaded", zap.String("bucket", s.bucketName), zap.String("key", key))
	return "s3://" + s.bucketName + "/" + key, nil
}

func (s *S3Export) Read(ctx context.Context, name string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucketName, objectKey(s.prefix, name), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch export: %w", err)
	}
	defer func() { _ = object.Close() }()

	content, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	return content, nil
}

var _ IExportStorage = (*S3Export)(nil)
