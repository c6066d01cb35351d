package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
)

// minioArchiver stores a copy of each chat image attachment in object
// storage, keyed by report and message id.
type minioArchiver struct {
	client *minio.Client
	bucket string
}

func (a *minioArchiver) ArchiveImage(ctx context.Context, reportID, messageID string, jpeg []byte) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	objectName := fmt.Sprintf("%s/%s.jpg", reportID, messageID)
	_, err = a.client.PutObject(ctx, a.bucket, objectName, bytes.NewReader(jpeg), int64(len(jpeg)), minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		return fmt.Errorf("failed to store image: %w", err)
	}
	return nil
}
