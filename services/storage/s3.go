package storagesvc

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/buddybow/backend/core"
	"github.com/buddybow/backend/core/upload"
)

type s3Storage struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

var _ upload.Storage = (*s3Storage)(nil)

// NewS3Storage builds the production blob backend. Credentials come from the
// default AWS chain (env, shared config, instance role).
func NewS3Storage(ctx context.Context, conf *core.Config) (*s3Storage, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(conf.Storage.S3Region))
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}
	baseURL := conf.Storage.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", conf.Storage.S3Bucket, conf.Storage.S3Region)
	}
	return &s3Storage{
		client:  s3.NewFromConfig(cfg),
		bucket:  conf.Storage.S3Bucket,
		baseURL: baseURL,
	}, nil
}

func (s *s3Storage) Save(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errors.Wrapf(err, "putting s3 object %s", key)
	}
	return s.baseURL + "/" + key, nil
}

func (s *s3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return errors.Wrapf(err, "deleting s3 object %s", key)
}
