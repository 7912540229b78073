package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// putObjectAPI is the slice of the S3 client the archive needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 archives payloads as private, server-side encrypted objects.
type S3 struct {
	api    putObjectAPI
	bucket string
	prefix string
}

type S3Config struct {
	Region string
	Bucket string
	Prefix string
}

// NewS3 resolves credentials through the default AWS chain (env, shared
// config, instance role).
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	return newS3(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
}

func newS3(api putObjectAPI, bucket, prefix string) *S3 {
	return &S3{api: api, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3) Put(ctx context.Context, r io.Reader, in PutInput) (PutResult, error) {
	key := objectKey(in)
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}

	ct := in.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}

	if _, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 r,
		ContentType:          aws.String(ct),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	}); err != nil {
		return PutResult{}, fmt.Errorf("storage: put s3://%s/%s: %w", s.bucket, key, err)
	}

	return PutResult{Key: key, URL: "s3://" + s.bucket + "/" + key}, nil
}

func (s *S3) String() string { return "s3(" + s.bucket + "/" + s.prefix + ")" }
