package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/internal/pkg/log"
	"github.com/pribylovaa/go-blog-forum/internal/pubsub"
	"github.com/pribylovaa/go-blog-forum/internal/storage"
)

const (
	maxUsernameLength = 64
	maxBioLength      = 1000
)

// Profile — профиль пользователя по идентификатору.
func (s *Service) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "service/profiles/Profile"

	uid, err := parseID(userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	profile, err := s.profiles.ProfileByID(ctx, uid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		log.From(ctx).Error("storage error on ProfileByID", "op", op, "user_id", userID, "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return profile, nil
}

// UpdateProfile — частичное обновление собственного профиля.
//
// Валидация:
//   - username, если передан, не пуст после TrimSpace и не длиннее 64 символов;
//   - bio не длиннее 1000 символов.
func (s *Service) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.Profile, error) {
	const op = "service/profiles/UpdateProfile"

	id, err := caller(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg := log.From(ctx).With("op", op, "user_id", id.UserID())

	if update.Username != nil {
		name := strings.TrimSpace(*update.Username)
		if name == "" || utf8.RuneCountInString(name) > maxUsernameLength {
			lg.Warn("invalid argument: username")
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}
		update.Username = &name
	}

	if update.Country != nil {
		country := strings.TrimSpace(*update.Country)
		update.Country = &country
	}

	if update.Bio != nil && utf8.RuneCountInString(*update.Bio) > maxBioLength {
		lg.Warn("invalid argument: bio too long")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	profile, err := s.profiles.UpdateProfile(ctx, id.ID, update)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("storage error on UpdateProfile", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	s.notify(ctx, pubsub.TopicProfile(id.UserID()))

	return profile, nil
}

// AvatarUploadURL выдаёт presigned URL для загрузки аватара вызывающего.
func (s *Service) AvatarUploadURL(ctx context.Context, contentType string, size int64) (*models.UploadInfo, error) {
	const op = "service/profiles/AvatarUploadURL"

	id, err := caller(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg := log.From(ctx).With("op", op, "user_id", id.UserID())

	if strings.TrimSpace(contentType) == "" || size <= 0 {
		lg.Warn("invalid argument for presign", "content_type", contentType, "size", size)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	info, err := s.objects.AvatarUploadURL(ctx, id.ID, contentType, size)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidArgument) {
			lg.Warn("validation failed in storage", "err", err)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}

		lg.Error("storage error on AvatarUploadURL", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return info, nil
}

// ConfirmAvatar проверяет загруженный объект и фиксирует его в профиле.
func (s *Service) ConfirmAvatar(ctx context.Context, avatarKey string) (*models.Profile, error) {
	const op = "service/profiles/ConfirmAvatar"

	id, err := caller(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg := log.From(ctx).With("op", op, "user_id", id.UserID(), "avatar_key", avatarKey)

	if strings.TrimSpace(avatarKey) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	url, err := s.objects.CheckAvatarUpload(ctx, id.ID, avatarKey)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidArgument):
			lg.Warn("invalid avatar key or attributes", "err", err)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		case errors.Is(err, storage.ErrNotFound):
			lg.Warn("avatar object not found")
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		default:
			lg.Error("storage error on CheckAvatarUpload", "err", err)
			return nil, fmt.Errorf("%s: %w", op, ErrInternal)
		}
	}

	profile, err := s.profiles.UpdateAvatar(ctx, id.ID, avatarKey, url)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("storage error on UpdateAvatar", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	s.notify(ctx, pubsub.TopicProfile(id.UserID()), pubsub.TopicImages)

	return profile, nil
}
