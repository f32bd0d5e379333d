package admin

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) error {
		_, err := c.PutObject(ctx, in)
		return err
	}

	getObject = func(c *s3.Client, ctx context.Context, in *s3.GetObjectInput) (io.ReadCloser, error) {
		out, err := c.GetObject(ctx, in)
		if err != nil {
			return nil, err
		}
		return out.Body, nil
	}
)

func (s *S3Settings) client(ctx context.Context) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(s.Region)}
	if s.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Key returns the object key a backup file named name is stored under.
func (s *S3Settings) Key(name string) string {
	if s.Prefix == "" {
		return name
	}
	return path.Join(s.Prefix, name)
}

// Upload stores body under key.
func (s *S3Settings) Upload(ctx context.Context, key string, body io.Reader) error {
	c, err := s.client(ctx)
	if err != nil {
		return fmt.Errorf("s3 client: %w", err)
	}
	return putObject(c, ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
		Body:   body,
	})
}

// Download copies the object stored under key to w.
func (s *S3Settings) Download(ctx context.Context, key string, w io.Writer) error {
	c, err := s.client(ctx)
	if err != nil {
		return fmt.Errorf("s3 client: %w", err)
	}
	body, err := getObject(c, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return err
	}
	defer body.Close()

	_, err = io.Copy(w, body)
	return err
}
