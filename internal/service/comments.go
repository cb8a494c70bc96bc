package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pribylovaa/go-blog-forum/internal/auth"
	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/internal/pkg/log"
	"github.com/pribylovaa/go-blog-forum/internal/pubsub"
	"github.com/pribylovaa/go-blog-forum/internal/storage"
)

// commentFilter собирает фильтр выдачи с учётом видимости приватных комментариев.
func (s *Service) commentFilter(ctx context.Context, postID string, opts models.QueryOptions, search string) (models.CommentFilter, error) {
	pid, err := parseID(postID)
	if err != nil {
		return models.CommentFilter{}, err
	}

	opts = s.normalizeOptions(opts)
	viewer := auth.From(ctx)

	return models.CommentFilter{
		PostID:        pid,
		SearchText:    strings.TrimSpace(search),
		Limit:         opts.Limit,
		Skip:          opts.Skip,
		Viewer:        viewer.ID,
		ViewerIsAdmin: viewer.IsAdmin(),
	}, nil
}

// ListPostComments — страница комментариев поста, сначала новые.
// search — регистронезависимая подстрока; пустая строка — без фильтра.
func (s *Service) ListPostComments(ctx context.Context, postID string, opts models.QueryOptions, search string) ([]models.PostComment, error) {
	const op = "service/comments/ListPostComments"

	f, err := s.commentFilter(ctx, postID, opts, search)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	comments, err := s.comments.ListComments(ctx, f)
	if err != nil {
		log.From(ctx).Error("storage error on ListComments", "op", op, "post_id", postID, "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return comments, nil
}

// CountPostComments — число видимых вызывающему комментариев поста под тем же поиском.
func (s *Service) CountPostComments(ctx context.Context, postID, search string) (int64, error) {
	const op = "service/comments/CountPostComments"

	f, err := s.commentFilter(ctx, postID, models.QueryOptions{}, search)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	n, err := s.comments.CountComments(ctx, f)
	if err != nil {
		log.From(ctx).Error("storage error on CountComments", "op", op, "post_id", postID, "err", err)
		return 0, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return n, nil
}

// InsertPostComment — новый комментарий к посту от имени вызывающего.
//
// Валидация:
//   - вызывающий аутентифицирован, claimedUserID пуст или совпадает с токеном;
//   - content не пуст после TrimSpace и не длиннее limits.max_comment_length символов;
//   - пост существует.
func (s *Service) InsertPostComment(ctx context.Context, postID, content, claimedUserID string) (*models.PostComment, error) {
	const op = "service/comments/InsertPostComment"

	lg := log.From(ctx).With("op", op, "post_id", postID)

	id, err := caller(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := checkClaimedUser(id, claimedUserID); err != nil {
		lg.Warn("claimed user mismatch", "claimed", claimedUserID)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > s.cfg.Limits.MaxCommentLength {
		lg.Warn("invalid argument: content")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	post, err := s.PostByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	comment, err := s.comments.CreateComment(ctx, models.PostComment{
		PostID:  post.ID,
		Content: content,
		Owner:   id.ID,
	})
	if err != nil {
		lg.Error("storage error on CreateComment", "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	s.notify(ctx, pubsub.TopicPostComments(post.ID.String()))

	return comment, nil
}

// ownedComment загружает комментарий и проверяет, что вызывающий его владелец или администратор.
func (s *Service) ownedComment(ctx context.Context, op, commentID string) (*models.PostComment, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	commentID = strings.TrimSpace(commentID)
	if commentID == "" {
		return nil, ErrInvalidArgument
	}

	comment, err := s.comments.CommentByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}

		log.From(ctx).Error("storage error on CommentByID", "op", op, "id", commentID, "err", err)
		return nil, ErrInternal
	}

	if comment.Owner != id.ID && !id.IsAdmin() {
		log.From(ctx).Warn("foreign comment", "op", op, "id", commentID, "user_id", id.UserID())
		return nil, ErrPermissionDenied
	}

	return comment, nil
}

// DeletePostComment — удаление комментария владельцем или администратором.
// owner — владелец, как его видит клиент; права проверяются по сохранённому владельцу.
func (s *Service) DeletePostComment(ctx context.Context, commentID, owner string) error {
	const op = "service/comments/DeletePostComment"

	comment, err := s.ownedComment(ctx, op, commentID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if owner != "" && owner != comment.Owner.String() {
		log.From(ctx).Warn("stale owner", "op", op, "id", comment.ID, "owner", owner)
	}

	if err := s.comments.DeleteComment(ctx, comment.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		log.From(ctx).Error("storage error on DeleteComment", "op", op, "err", err)
		return fmt.Errorf("%s: %w", op, ErrInternal)
	}

	s.notify(ctx, pubsub.TopicPostComments(comment.PostID.String()))

	return nil
}

// SetPostCommentPrivate скрывает комментарий от всех, кроме владельца и администраторов.
// Повторный вызов ничего не меняет.
func (s *Service) SetPostCommentPrivate(ctx context.Context, commentID, claimedUserID string) (*models.PostComment, error) {
	const op = "service/comments/SetPostCommentPrivate"

	id, err := caller(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := checkClaimedUser(id, claimedUserID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	comment, err := s.ownedComment(ctx, op, commentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if comment.Private {
		return comment, nil
	}

	updated, err := s.comments.SetPrivate(ctx, comment.ID, true)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		log.From(ctx).Error("storage error on SetPrivate", "op", op, "err", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	s.notify(ctx, pubsub.TopicPostComments(comment.PostID.String()))

	return updated, nil
}
