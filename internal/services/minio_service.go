package services

import (
	"bytes"
	"context"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchiveStore keeps JSON records of deliveries that failed for good.
type ArchiveStore interface {
	Put(ctx context.Context, objectName string, data []byte) error
	EnsureBucketExists(ctx context.Context) error
}

type minioArchiveStore struct {
	client *minio.Client
	bucket string
}

func NewMinioArchiveStore(endpoint, accessKey, secretKey string, useSSL bool, bucket string) (ArchiveStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &minioArchiveStore{client: client, bucket: bucket}, nil
}

func (m *minioArchiveStore) Put(ctx context.Context, objectName string, data []byte) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

func (m *minioArchiveStore) EnsureBucketExists(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	}
	return nil
}
