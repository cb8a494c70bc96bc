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

// PostByID — пост по идентификатору.
// Ошибки: ErrInvalidArgument (битый id), ErrNotFound, ErrInternal.
func (s *Service) PostByID(ctx context.Context, postID string) (*models.Post, error) {
	const op = "service/posts/PostByID"

	pid, err := parseID(postID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	post, err := s.posts.PostByID(ctx, pid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		log.From(ctx).Error("storage error on PostByID", "op", op, "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return post, nil
}

// ListPosts — страница постов, сначала новые.
func (s *Service) ListPosts(ctx context.Context, opts models.QueryOptions) ([]models.Post, error) {
	const op = "service/posts/ListPosts"

	opts = s.normalizeOptions(opts)

	posts, err := s.posts.ListPosts(ctx, opts.Limit, opts.Skip)
	if err != nil {
		log.From(ctx).Error("storage error on ListPosts", "op", op, "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return posts, nil
}

// CreatePost — новый пост от имени вызывающего.
func (s *Service) CreatePost(ctx context.Context, title, content string, imageKeys []string) (*models.Post, error) {
	const op = "service/posts/CreatePost"

	id, err := caller(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	title, content = strings.TrimSpace(title), strings.TrimSpace(content)
	if title == "" || content == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	post, err := s.posts.CreatePost(ctx, models.Post{Title: title, Content: content, Owner: id.ID, ImageKeys: imageKeys})
	if err != nil {
		log.From(ctx).Error("storage error on CreatePost", "op", op, "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	s.notify(ctx, pubsub.TopicPost(post.ID.String()))

	return post, nil
}

// Images — изображения галереи, сначала новые.
func (s *Service) Images(ctx context.Context, limit int) ([]models.Image, error) {
	const op = "service/posts/Images"

	if limit <= 0 || limit > s.cfg.Limits.Max {
		limit = s.cfg.Limits.Max
	}

	images, err := s.objects.ListImages(ctx, limit)
	if err != nil {
		log.From(ctx).Error("storage error on ListImages", "op", op, "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return images, nil
}
