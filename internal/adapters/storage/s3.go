// Package storage holds the blob stores for uploaded media: an S3 bucket
// for deployments and an in-memory store for dev and tests.
package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"trust-service/internal/core/ports"
)

// S3Store keeps verification media in one bucket, server-side encrypted.
// Object keys are content-addressed under the caller's path hint, so a
// re-upload of identical bytes lands on the same key.
type S3Store struct {
	client *s3.Client
	bucket string
	log    zerolog.Logger
}

// NewS3Store loads the default AWS credential chain. An explicit endpoint
// supports S3-compatible stores (MinIO in dev).
func NewS3Store(ctx context.Context, bucket, region, endpoint string, baseLogger *zerolog.Logger) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client: client,
		bucket: bucket,
		log:    baseLogger.With().Str("component", "s3_store").Logger(),
	}, nil
}

var _ ports.BlobStore = (*S3Store)(nil)

func (s *S3Store) Upload(ctx context.Context, data []byte, pathHint, contentType string) (*ports.BlobUpload, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	key := strings.TrimSuffix(pathHint, "/") + "/" + hash

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(data),
		ContentType:          aws.String(contentType),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	s.log.Debug().Str("key", key).Int("bytes", len(data)).Msg("Blob uploaded")
	return &ports.BlobUpload{Ref: key, SHA256: hash}, nil
}

func (s *S3Store) Delete(ctx context.Context, ref string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", ref, err)
	}
	s.log.Debug().Str("key", ref).Msg("Blob deleted")
	return nil
}
