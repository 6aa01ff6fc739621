package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI is the part of *s3.Client the exporter uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Options struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint points at an S3-compatible server such as MinIO; path-style
	// addressing is used when it is set.
	Endpoint  string
	AccessKey string
	SecretKey string
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// S3Exporter uploads documents as objects under Prefix in Bucket.
type S3Exporter struct {
	api    PutObjectAPI
	bucket string
	prefix string
}

// NewS3Exporter builds an exporter from the default AWS configuration
// chain, overridden by the static keys and endpoint in o when present.
func NewS3Exporter(ctx context.Context, o S3Options) (*S3Exporter, error) {
	if o.Bucket == "" {
		return nil, errors.New("export bucket is not set")
	}

	var opts []func(*config.LoadOptions) error
	if o.Region != "" {
		opts = append(opts, config.WithRegion(o.Region))
	}
	if o.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")))
	}
	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
			so.UsePathStyle = true
		}
	})
	return NewS3ExporterWithClient(client, o.Bucket, o.Prefix), nil
}

func NewS3ExporterWithClient(api PutObjectAPI, bucket, prefix string) *S3Exporter {
	return &S3Exporter{api: api, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (e *S3Exporter) Export(ctx context.Context, d Document) (string, error) {
	b, err := d.encode()
	if err != nil {
		return "", err
	}
	key := d.Name()
	if e.prefix != "" {
		key = path.Join(e.prefix, key)
	}

	_, err = e.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(e.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(b),
		ContentLength: aws.Int64(int64(len(b))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", e.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", e.bucket, key), nil
}
