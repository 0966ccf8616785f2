package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/tomreid/pictura"
)

// Compile-time check that S3Storage implements pictura.BlobStorage.
var _ pictura.BlobStorage = (*S3Storage)(nil)

// S3Storage implements BlobStorage on AWS S3.
type S3Storage struct {
	client  *s3.Client
	bucket  string
	baseURL string // CloudFront or S3 URL
}

// NewS3Storage creates a new S3 storage instance.
func NewS3Storage(client *s3.Client, bucket, baseURL string) *S3Storage {
	return &S3Storage{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}
}

// Store uploads bytes to S3.
func (s *S3Storage) Store(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return pictura.WrapError(pictura.ESTORAGEWRITE, "Failed to upload to S3", err)
	}
	return nil
}

// Fetch downloads the bytes stored under a key.
func (s *S3Storage) Fetch(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, pictura.NotFound("Blob %q not found", key)
		}
		return nil, pictura.WrapError(pictura.ESTORAGEREAD, "Failed to fetch from S3", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, pictura.WrapError(pictura.ESTORAGEREAD, "Failed to read S3 object body", err)
	}
	return data, nil
}

// Exists checks for a key with a HEAD request.
func (s *S3Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
			return false, nil
		}
		return false, pictura.WrapError(pictura.ESTORAGEREAD, "Failed to check S3 object", err)
	}
	return true, nil
}

// Delete removes a key from S3. S3 deletes are idempotent, so a missing key
// is not an error.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return pictura.WrapError(pictura.ESTORAGEWRITE, "Failed to delete from S3", err)
	}
	return nil
}

// URL returns the public URL for a key.
func (s *S3Storage) URL(key string) string {
	return fmt.Sprintf("%s/%s", s.baseURL, key)
}
