package minio

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	mclient "github.com/minio/minio-go/v7"

	"github.com/pribylovaa/go-blog-forum/internal/models"
)

// ListImages листает объекты под ImagesPrefix и возвращает limit самых новых.
// URL — публичный, если настроен PublicBaseURL, иначе presigned GET.
func (s *ObjectStorage) ListImages(ctx context.Context, limit int) ([]models.Image, error) {
	const op = "storage/minio/images/ListImages"

	var out []models.Image

	for obj := range s.client.ListObjects(ctx, s.cfg.S3.Bucket, mclient.ListObjectsOptions{
		Prefix:    s.cfg.S3.ImagesPrefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("%s: %w", op, obj.Err)
		}

		out = append(out, models.Image{
			Key:         obj.Key,
			Size:        obj.Size,
			ContentType: obj.ContentType,
			CreatedAt:   obj.LastModified.UTC(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	for i := range out {
		if u := s.publicURL(out[i].Key); u != "" {
			out[i].URL = u
			continue
		}

		u, err := s.client.PresignedGetObject(ctx, s.cfg.S3.Bucket, out[i].Key, s.cfg.S3.PresignTTL, url.Values{})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		out[i].URL = u.String()
	}

	return out, nil
}
