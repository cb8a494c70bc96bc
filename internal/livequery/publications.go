package livequery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pribylovaa/go-blog-forum/internal/auth"
	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/internal/pubsub"
	"github.com/pribylovaa/go-blog-forum/internal/service"
)

// Имена публикаций и счётчиков.
const (
	PubBlogs        = "blogs"
	PubPostDetail   = "post-detail"
	PubPostComments = "post-comments"
	PubImages       = "images"
	PubProfile      = "profile"

	CounterBlogs        = "numberOfBlogs"
	CounterPostComments = "numberOfPostComments"
)

// Коллекции документов.
const (
	CollectionBlogs        = "blogs"
	CollectionPosts        = "posts"
	CollectionPostComments = "post_comments"
	CollectionImages       = "images"
	CollectionProfiles     = "profiles"
)

// imagesLimit — размер галереи изображений.
const imagesLimit = 50

// Source — чтения сервиса, на которых построены публикации.
type Source interface {
	ListBlogs(ctx context.Context, opts models.QueryOptions) ([]models.Blog, error)
	CountBlogs(ctx context.Context) (int64, error)
	PostByID(ctx context.Context, postID string) (*models.Post, error)
	ListPostComments(ctx context.Context, postID string, opts models.QueryOptions, search string) ([]models.PostComment, error)
	CountPostComments(ctx context.Context, postID, search string) (int64, error)
	Images(ctx context.Context, limit int) ([]models.Image, error)
	Profile(ctx context.Context, userID string) (*models.Profile, error)
}

// RegisterForum регистрирует публикации форума:
//   - blogs(options) + счётчик numberOfBlogs;
//   - post-detail(postId) — пост или пустая выборка, если поста нет;
//   - post-comments(postId, options, searchText) + счётчик numberOfPostComments;
//   - images();
//   - profile(userId) — пустой userId означает профиль вызывающего.
func RegisterForum(e *Engine, src Source) {
	e.Register(PubBlogs, Publication{
		Collection: CollectionBlogs,
		Topics: func(_ context.Context, args []any) ([]string, error) {
			if _, err := optionsArg(args, 0); err != nil {
				return nil, err
			}
			return []string{pubsub.TopicBlogs}, nil
		},
		Run: func(ctx context.Context, args []any) (Result, error) {
			opts, _ := optionsArg(args, 0)

			blogs, err := src.ListBlogs(ctx, opts)
			if err != nil {
				return Result{}, err
			}

			total, err := src.CountBlogs(ctx)
			if err != nil {
				return Result{}, err
			}

			return Result{Docs: docs(blogs), Counters: map[string]int64{CounterBlogs: total}}, nil
		},
	})

	e.Register(PubPostDetail, Publication{
		Collection: CollectionPosts,
		Topics: func(_ context.Context, args []any) ([]string, error) {
			postID, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			return []string{pubsub.TopicPost(postID)}, nil
		},
		Run: func(ctx context.Context, args []any) (Result, error) {
			postID, _ := stringArg(args, 0)

			post, err := src.PostByID(ctx, postID)
			if err != nil {
				if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrInvalidArgument) {
					return Result{}, nil
				}
				return Result{}, err
			}

			return Result{Docs: []Doc{*post}}, nil
		},
	})

	e.Register(PubPostComments, Publication{
		Collection: CollectionPostComments,
		Topics: func(_ context.Context, args []any) ([]string, error) {
			postID, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			if _, err := optionsArg(args, 1); err != nil {
				return nil, err
			}
			return []string{pubsub.TopicPostComments(postID)}, nil
		},
		Run: func(ctx context.Context, args []any) (Result, error) {
			postID, _ := stringArg(args, 0)
			opts, _ := optionsArg(args, 1)
			search := searchArg(args, 2, opts)

			comments, err := src.ListPostComments(ctx, postID, opts, search)
			if err != nil {
				return Result{}, err
			}

			total, err := src.CountPostComments(ctx, postID, search)
			if err != nil {
				return Result{}, err
			}

			return Result{Docs: docs(comments), Counters: map[string]int64{CounterPostComments: total}}, nil
		},
	})

	e.Register(PubImages, Publication{
		Collection: CollectionImages,
		Topics: func(context.Context, []any) ([]string, error) {
			return []string{pubsub.TopicImages}, nil
		},
		Run: func(ctx context.Context, _ []any) (Result, error) {
			images, err := src.Images(ctx, imagesLimit)
			if err != nil {
				return Result{}, err
			}

			return Result{Docs: docs(images)}, nil
		},
	})

	e.Register(PubProfile, Publication{
		Collection: CollectionProfiles,
		Topics: func(ctx context.Context, args []any) ([]string, error) {
			userID := profileArg(ctx, args)
			if userID == "" {
				return nil, errors.New("arg 0: user id required for anonymous caller")
			}
			return []string{pubsub.TopicProfile(userID)}, nil
		},
		Run: func(ctx context.Context, args []any) (Result, error) {
			profile, err := src.Profile(ctx, profileArg(ctx, args))
			if err != nil {
				if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrInvalidArgument) {
					return Result{}, nil
				}
				return Result{}, err
			}

			return Result{Docs: []Doc{*profile}}, nil
		},
	})
}

func docs[T Doc](items []T) []Doc {
	out := make([]Doc, 0, len(items))
	for _, it := range items {
		out = append(out, it)
	}

	return out
}

// stringArg — обязательный непустой строковый аргумент.
func stringArg(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("arg %d: missing", i)
	}

	s, ok := args[i].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("arg %d: want non-empty string", i)
	}

	return s, nil
}

// profileArg — userId из аргументов или идентификатор вызывающего.
func profileArg(ctx context.Context, args []any) string {
	if userID, err := stringArg(args, 0); err == nil {
		return userID
	}

	return auth.From(ctx).UserID()
}

// optionsArg декодирует QueryOptions; отсутствующий аргумент — опции по умолчанию.
func optionsArg(args []any, i int) (models.QueryOptions, error) {
	var opts models.QueryOptions

	if i >= len(args) || args[i] == nil {
		return opts, nil
	}

	raw, err := json.Marshal(args[i])
	if err != nil {
		return opts, fmt.Errorf("arg %d: %w", i, err)
	}

	if err := json.Unmarshal(raw, &opts); err != nil {
		return opts, fmt.Errorf("arg %d: want query options: %w", i, err)
	}

	if opts.Limit < 0 || opts.Skip < 0 {
		return opts, fmt.Errorf("arg %d: negative limit or skip", i)
	}

	return opts, nil
}

// searchArg — строка поиска: отдельным аргументом или из опций.
func searchArg(args []any, i int, opts models.QueryOptions) string {
	if i < len(args) {
		if s, ok := args[i].(string); ok {
			return s
		}
	}

	return opts.SearchText
}
