package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"go.uber.org/zap"
)

type S3Config struct {
	Bucket      string
	Region      string
	EndpointURL string
}

// S3 stores images in an S3-compatible bucket as public-read objects.
type S3 struct {
	api      s3iface.S3API
	uploader *s3manager.Uploader
	bucket   string
	baseURL  string
	log      *zap.Logger
}

func NewS3(c S3Config, log *zap.Logger) (*S3, error) {
	cfg := aws.NewConfig().WithRegion(c.Region)
	if c.EndpointURL != "" {
		cfg = cfg.WithEndpoint(c.EndpointURL).WithS3ForcePathStyle(true)
	}
	sess, err := session.NewSessionWithOptions(session.Options{Config: *cfg})
	if err != nil {
		return nil, fmt.Errorf("initialize S3 session: %w", err)
	}

	api := s3.New(sess)
	return &S3{
		api:      api,
		uploader: s3manager.NewUploaderWithClient(api),
		bucket:   c.Bucket,
		baseURL:  objectBaseURL(c),
		log:      log,
	}, nil
}

func objectBaseURL(c S3Config) string {
	if c.EndpointURL != "" {
		return strings.TrimSuffix(c.EndpointURL, "/") + "/" + c.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.Bucket, c.Region)
}

func (s *S3) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	s.log.Info("uploading image", zap.String("bucket", s.bucket), zap.String("key", key))

	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        r,
		ContentType: aws.String(contentType),
		ACL:         aws.String("public-read"),
	})
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	return err
}
