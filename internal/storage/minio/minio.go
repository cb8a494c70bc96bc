// Package minio реализует storage.Objects на MinIO/S3:
//   - presigned PUT для прямой загрузки аватаров и подтверждение загрузки;
//   - листинг изображений галереи для публикации "images".
package minio

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pribylovaa/go-blog-forum/internal/config"
	"github.com/pribylovaa/go-blog-forum/internal/storage"
)

// ObjectStorage — адаптер MinIO.
type ObjectStorage struct {
	cfg    *config.Config
	client *mclient.Client
}

// New создаёт клиент MinIO и проверяет наличие бакета.
// Схема в endpoint определяет Secure и отбрасывается.
func New(ctx context.Context, cfg *config.Config) (*ObjectStorage, error) {
	const op = "storage/minio/New"

	endpoint := cfg.S3.Endpoint
	secure := strings.HasPrefix(endpoint, "https://")

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(cfg.S3.RootUser, cfg.S3.RootPassword, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, cfg.S3.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, cfg.S3.Bucket)
	}

	return &ObjectStorage{cfg: cfg, client: client}, nil
}

// publicURL собирает публичный URL объекта; "" если база не настроена.
func (s *ObjectStorage) publicURL(key string) string {
	if s.cfg.S3.PublicBaseURL == "" {
		return ""
	}

	return strings.TrimRight(s.cfg.S3.PublicBaseURL, "/") + "/" + key
}

// Проверка выполнения контракта верхнего уровня.
var _ storage.Objects = (*ObjectStorage)(nil)
