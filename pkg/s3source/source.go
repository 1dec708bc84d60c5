// Package s3source builds resource call functions that read a JSON document
// from an S3 bucket.
package s3source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vango-dev/fetchkit/pkg/resource"
)

// ErrEmptyObject is returned when the object has no content.
var ErrEmptyObject = errors.New("s3source: empty object")

const maxObjectBytes = 10 << 20

// GetObjectAPI is the part of *s3.Client the source needs.
type GetObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ClientConfig describes how to reach the bucket.
type ClientConfig struct {
	Region string

	// Endpoint overrides the S3 endpoint, e.g. for MinIO or LocalStack.
	// Path-style addressing is used when set.
	Endpoint string

	// AccessKeyID and SecretAccessKey are static credentials. Anonymous
	// access is used when both are empty.
	AccessKeyID     string
	SecretAccessKey string
}

// NewClient builds an S3 client from cfg.
func NewClient(cfg ClientConfig) *s3.Client {
	opts := s3.Options{
		Region:      cfg.Region,
		Credentials: aws.AnonymousCredentials{},
	}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		opts.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     cfg.AccessKeyID,
				SecretAccessKey: cfg.SecretAccessKey,
				Source:          "fetchkit",
			}, nil
		})
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

type objectConfig struct {
	raw bool
}

// Option configures Object.
type Option func(*objectConfig)

// Raw makes Object decode the document as the payload itself rather than
// as a result envelope.
func Raw() Option {
	return func(c *objectConfig) {
		c.raw = true
	}
}

// Object returns a call function that reads bucket/key. A string "key"
// call parameter replaces the key for that call.
func Object[T any](api GetObjectAPI, bucket, key string, opts ...Option) resource.CallFunc[T] {
	var cfg objectConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(ctx context.Context, params resource.Params) (resource.CallResult[T], error) {
		k := key
		if override, ok := params["key"].(string); ok && override != "" {
			k = override
		}

		out, err := api.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(k),
		})
		if err != nil {
			var missing *types.NoSuchKey
			if errors.As(err, &missing) {
				return resource.Fail[T](fmt.Sprintf("object %s/%s not found", bucket, k)), nil
			}
			return resource.CallResult[T]{}, fmt.Errorf("s3source: get %s/%s: %w", bucket, k, err)
		}
		defer out.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(out.Body, maxObjectBytes))
		if err != nil {
			return resource.CallResult[T]{}, fmt.Errorf("s3source: read %s/%s: %w", bucket, k, err)
		}
		if len(raw) == 0 {
			return resource.CallResult[T]{}, fmt.Errorf("%w: %s/%s", ErrEmptyObject, bucket, k)
		}

		if cfg.raw {
			var data T
			if err := json.Unmarshal(raw, &data); err != nil {
				return resource.CallResult[T]{}, fmt.Errorf("s3source: decode %s/%s: %w", bucket, k, err)
			}
			return resource.OK(data), nil
		}

		var res resource.CallResult[T]
		if err := json.Unmarshal(raw, &res); err != nil {
			return resource.CallResult[T]{}, fmt.Errorf("s3source: decode %s/%s: %w", bucket, k, err)
		}
		return res, nil
	}
}
