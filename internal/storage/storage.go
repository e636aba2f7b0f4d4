// Package storage uploads study-plan attachments to object storage. The
// quota gate runs before an upload; the returned attachment metadata feeds
// the plan store mutation and the usage ledger.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"app/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Uploader stores attachment bytes and returns the resulting metadata.
type Uploader interface {
	Upload(ctx context.Context, planID, filename string, data []byte) (*model.AttachedFile, error)
	Delete(ctx context.Context, storagePath string) error
}

// s3Uploader is the S3 implementation of Uploader.
type s3Uploader struct {
	client *s3.Client
	bucket string
	logger zerolog.Logger
}

// NewS3Uploader creates an Uploader backed by the given S3 bucket.
func NewS3Uploader(client *s3.Client, bucket string, logger zerolog.Logger) Uploader {
	return &s3Uploader{
		client: client,
		bucket: bucket,
		logger: logger.With().Str("service", "AttachmentUploader").Logger(),
	}
}

// Upload writes the attachment under plans/<planID>/<uuid>-<filename>.
func (u *s3Uploader) Upload(ctx context.Context, planID, filename string, data []byte) (*model.AttachedFile, error) {
	objectKey := fmt.Sprintf("plans/%s/%s-%s", planID, uuid.NewString(), filename)
	contentType := http.DetectContentType(data)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		u.logger.Error().Err(err).Str("object_key", objectKey).Msg("Failed to upload attachment")
		return nil, fmt.Errorf("failed to upload attachment: %w", err)
	}

	return &model.AttachedFile{
		Name:        filename,
		StoragePath: objectKey,
		SizeBytes:   int64(len(data)),
		ContentType: contentType,
	}, nil
}

// Delete removes a stored attachment. Missing objects are not an error.
func (u *s3Uploader) Delete(ctx context.Context, storagePath string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(storagePath),
	})
	if err != nil {
		u.logger.Error().Err(err).Str("object_key", storagePath).Msg("Failed to delete attachment")
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}
