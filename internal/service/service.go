// Package service содержит бизнес-логику forum-service:
// чтения для живых публикаций и REST, мутации для именованных методов.
// Личность вызывающего берётся из контекста (auth.From).
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-blog-forum/internal/auth"
	"github.com/pribylovaa/go-blog-forum/internal/config"
	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/internal/pkg/log"
	"github.com/pribylovaa/go-blog-forum/internal/pubsub"
	"github.com/pribylovaa/go-blog-forum/internal/storage"
)

var (
	// ErrInvalidArgument — неверные входные параметры.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound — сущность отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied — у вызывающего нет прав на операцию.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnauthenticated — операция требует входа.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrConflict — конфликт уникальности.
	ErrConflict = errors.New("conflict")
	// ErrUnknownMethod — метод с таким именем не зарегистрирован.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrInternal — внутренняя ошибка (хранилище, шина, контекст).
	ErrInternal = errors.New("internal")
)

// Deps — хранилища и шина сервиса.
type Deps struct {
	Blogs    storage.Blogs
	Posts    storage.Posts
	Comments storage.Comments
	Users    storage.Users
	Profiles storage.Profiles
	Objects  storage.Objects
	Bus      pubsub.Bus
	Tokens   *auth.Tokens
}

// Service — бизнес-логика forum-service.
type Service struct {
	blogs    storage.Blogs
	posts    storage.Posts
	comments storage.Comments
	users    storage.Users
	profiles storage.Profiles
	objects  storage.Objects
	bus      pubsub.Bus
	tokens   *auth.Tokens
	cfg      config.Config
}

// New создает новый экземпляр Service.
func New(deps Deps, cfg config.Config) *Service {
	return &Service{
		blogs:    deps.Blogs,
		posts:    deps.Posts,
		comments: deps.Comments,
		users:    deps.Users,
		profiles: deps.Profiles,
		objects:  deps.Objects,
		bus:      deps.Bus,
		tokens:   deps.Tokens,
		cfg:      cfg,
	}
}

// normalizeOptions приводит лимиты к настройкам сервиса:
// Limit<=0 -> Default, Limit>Max -> Max, Skip<0 -> 0.
func (s *Service) normalizeOptions(opts models.QueryOptions) models.QueryOptions {
	switch {
	case opts.Limit <= 0:
		opts.Limit = s.cfg.Limits.Default
	case opts.Limit > s.cfg.Limits.Max:
		opts.Limit = s.cfg.Limits.Max
	}

	if opts.Skip < 0 {
		opts.Skip = 0
	}

	return opts
}

// notify публикует топики изменившихся выборок.
// Ошибка шины не откатывает мутацию: подписчики догонят при следующем уведомлении.
func (s *Service) notify(ctx context.Context, topics ...string) {
	if s.bus == nil {
		return
	}

	for _, topic := range topics {
		if err := s.bus.Publish(ctx, topic); err != nil {
			log.From(ctx).Warn("publish_failed", slog.String("topic", topic), log.Err(err))
		}
	}
}

// caller возвращает аутентифицированную личность или ErrUnauthenticated.
func caller(ctx context.Context) (auth.Identity, error) {
	id := auth.From(ctx)
	if id.Anonymous() {
		return auth.Identity{}, ErrUnauthenticated
	}

	return id, nil
}

// checkClaimedUser сверяет переданный клиентом userID с личностью.
// Пустое значение допустимо: личность берётся из токена.
func checkClaimedUser(id auth.Identity, claimed string) error {
	if claimed == "" || claimed == id.UserID() {
		return nil
	}

	return ErrPermissionDenied
}

// parseID разбирает UUID из строки.
func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidArgument
	}

	return id, nil
}

// IsAdmin — роль администратора у пользователя.
// Для вызывающего роль берётся из токена, для остальных — из хранилища.
func (s *Service) IsAdmin(ctx context.Context, userID string) bool {
	id := auth.From(ctx)
	if !id.Anonymous() && id.UserID() == userID {
		return id.IsAdmin()
	}

	uid, err := parseID(userID)
	if err != nil {
		return false
	}

	user, err := s.users.UserByID(ctx, uid)
	if err != nil {
		return false
	}

	return user.HasRole(models.RoleAdmin)
}
