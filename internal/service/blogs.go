package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/internal/pkg/log"
	"github.com/pribylovaa/go-blog-forum/internal/pubsub"
	"github.com/pribylovaa/go-blog-forum/internal/storage"
)

// ListBlogs — страница ленты блога, сначала новые.
func (s *Service) ListBlogs(ctx context.Context, opts models.QueryOptions) ([]models.Blog, error) {
	const op = "service/blogs/ListBlogs"

	opts = s.normalizeOptions(opts)

	blogs, err := s.blogs.ListBlogs(ctx, opts.Limit, opts.Skip)
	if err != nil {
		log.From(ctx).Error("storage error on ListBlogs", "op", op, "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return blogs, nil
}

// CountBlogs — общее число блогов.
func (s *Service) CountBlogs(ctx context.Context) (int64, error) {
	const op = "service/blogs/CountBlogs"

	n, err := s.blogs.CountBlogs(ctx)
	if err != nil {
		log.From(ctx).Error("storage error on CountBlogs", "op", op, "err", err)
		return 0, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return n, nil
}

// CreateBlog — новая запись блога от имени вызывающего.
//
// Валидация:
//   - вызывающий аутентифицирован;
//   - title и content не пусты после TrimSpace.
func (s *Service) CreateBlog(ctx context.Context, title, content string) (*models.Blog, error) {
	const op = "service/blogs/CreateBlog"

	id, err := caller(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	title, content = strings.TrimSpace(title), strings.TrimSpace(content)
	if title == "" || content == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	blog, err := s.blogs.CreateBlog(ctx, models.Blog{Title: title, Content: content, Owner: id.ID})
	if err != nil {
		log.From(ctx).Error("storage error on CreateBlog", "op", op, "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	s.notify(ctx, pubsub.TopicBlogs)

	return blog, nil
}

// DeleteBlog — удаление блога владельцем или администратором.
//
// Поведение/ошибки:
//   - ErrUnauthenticated — вызов без токена;
//   - ErrPermissionDenied — claimedUserID не совпадает с токеном или блог чужой;
//   - ErrNotFound — блога нет.
func (s *Service) DeleteBlog(ctx context.Context, blogID, claimedUserID string) error {
	const op = "service/blogs/DeleteBlog"

	lg := log.From(ctx).With("op", op, "blog_id", blogID)

	id, err := caller(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := checkClaimedUser(id, claimedUserID); err != nil {
		lg.Warn("claimed user mismatch", "claimed", claimedUserID)
		return fmt.Errorf("%s: %w", op, err)
	}

	bid, err := parseID(blogID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	blog, err := s.blogs.BlogByID(ctx, bid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("storage error on BlogByID", "err", err)
		return fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if blog.Owner != id.ID && !id.IsAdmin() {
		lg.Warn("delete foreign blog", "user_id", id.UserID())
		return fmt.Errorf("%s: %w", op, ErrPermissionDenied)
	}

	if err := s.blogs.DeleteBlog(ctx, bid); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("storage error on DeleteBlog", "err", err)
		return fmt.Errorf("%s: %w", op, ErrInternal)
	}

	s.notify(ctx, pubsub.TopicBlogs)

	return nil
}
