package minio

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"

	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/internal/storage"
)

var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// avatarPrefix — все аватары пользователя лежат под avatars/<userID>/.
func avatarPrefix(userID uuid.UUID) string {
	return "avatars/" + userID.String() + "/"
}

// AvatarUploadURL выдаёт presigned PUT URL на ключ avatars/<userID>/<uuid>.<ext>.
// Заголовки из ответа клиент обязан передать при загрузке.
func (s *ObjectStorage) AvatarUploadURL(ctx context.Context, userID uuid.UUID, contentType string, size int64) (*models.UploadInfo, error) {
	const op = "storage/minio/avatars/AvatarUploadURL"

	if size <= 0 || size > s.cfg.Avatar.MaxSizeBytes {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	if !slices.Contains(s.cfg.Avatar.AllowedContentTypes, contentType) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	key := path.Join("avatars", userID.String(), uuid.NewString()+extByContentType[contentType])

	u, err := s.client.PresignedPutObject(ctx, s.cfg.S3.Bucket, key, s.cfg.S3.PresignTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.UploadInfo{
		UploadURL: u.String(),
		AvatarKey: key,
		ExpiresAt: time.Now().UTC().Add(s.cfg.S3.PresignTTL),
		Headers: map[string]string{
			"Content-Type":   contentType,
			"Content-Length": strconv.FormatInt(size, 10),
		},
	}, nil
}

// CheckAvatarUpload проверяет, что объект загружен, принадлежит пользователю
// и проходит ограничения размера и типа.
func (s *ObjectStorage) CheckAvatarUpload(ctx context.Context, userID uuid.UUID, key string) (string, error) {
	const op = "storage/minio/avatars/CheckAvatarUpload"

	if !strings.HasPrefix(key, avatarPrefix(userID)) || strings.Contains(key, "..") {
		return "", fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	info, err := s.client.StatObject(ctx, s.cfg.S3.Bucket, key, mclient.StatObjectOptions{})
	if err != nil {
		resp := mclient.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
			return "", fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	if info.Size <= 0 || info.Size > s.cfg.Avatar.MaxSizeBytes {
		return "", fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	if ct := info.ContentType; ct != "" && !slices.Contains(s.cfg.Avatar.AllowedContentTypes, ct) {
		return "", fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	return s.publicURL(key), nil
}
