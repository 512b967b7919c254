package minio

import (
	"context"
	"fmt"

	"insulead-core/pkg/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Client = fx.Module("minio.client", fx.Provide(NewPortfolioStore))

// PortfolioStore holds contractor uploads (logos, portfolio images) under
// contractors/{id}/.
type PortfolioStore interface {
	RemoveContractor(ctx context.Context, contractorID string) error
}

// ContractorPrefix returns the object prefix owned by a contractor.
func ContractorPrefix(contractorID string) string {
	return fmt.Sprintf("contractors/%s/", contractorID)
}

type noopStore struct{}

func (noopStore) RemoveContractor(context.Context, string) error { return nil }

type bucketStore struct {
	client *minio.Client
	bucket string
}

// NewPortfolioStore returns a no-op store when MINIO.ENDPOINT is empty.
func NewPortfolioStore(c *config.Config) (PortfolioStore, error) {
	if c.Minio.Endpoint == "" {
		zap.L().Info("MinIO disabled; contractor uploads will not be purged")
		return noopStore{}, nil
	}

	client, err := minio.New(c.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Minio.AccessKey, c.Minio.SecretKey, ""),
		Secure: c.Minio.Secure,
	})
	if err != nil {
		zap.L().Error("failed to create MinIO client", zap.Error(err))
		return nil, err
	}

	zap.L().Info("MinIO client initialized", zap.String("endpoint", c.Minio.Endpoint), zap.String("bucket", c.Minio.BucketName))
	return &bucketStore{client: client, bucket: c.Minio.BucketName}, nil
}

func (s *bucketStore) RemoveContractor(ctx context.Context, contractorID string) error {
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    ContractorPrefix(contractorID),
		Recursive: true,
	})

	var firstErr error
	for rerr := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		zap.L().Warn("failed to remove contractor object",
			zap.String("object", rerr.ObjectName), zap.Error(rerr.Err))
		if firstErr == nil {
			firstErr = rerr.Err
		}
	}

	return firstErr
}
