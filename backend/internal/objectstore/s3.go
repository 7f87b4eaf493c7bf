// Package objectstore is the default ObjectStore collaborator: payload and
// metadata blobs offloaded out of line land in S3, one object per upload,
// keyed by the caller-supplied filename (already namespaced by
// runFriendlyId, see runtrigger.Service.handlePayloadPacket).
package objectstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"runtrigger/backend/internal/runtrigger"
)

// Store uploads offloaded packets to a single S3 bucket.
type Store struct {
	client *s3.Client
	bucket string
}

// New loads the default AWS config (environment, shared config file, EC2/ECS
// role) and builds a Store against bucket.
func New(ctx context.Context, bucket string) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Store{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// NewFromClient builds a Store from an already-configured s3.Client,
// useful for pointing at a local S3-compatible endpoint in tests.
func NewFromClient(client *s3.Client, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// Upload implements runtrigger.ObjectStore. The environment parameter
// namespaces nothing further here (filename already carries runFriendlyId);
// it's accepted to satisfy the contract and to leave room for a
// per-environment bucket/prefix policy later.
func (s *Store) Upload(ctx context.Context, filename string, data []byte, contentType string, environment runtrigger.Environment) error {
	key := filename
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}
