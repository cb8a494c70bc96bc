package service

// Тесты сервисного слоя forum-service.
//
// Моки хранилищ и шины сгенерированы в пакете /mocks:
//   mockgen -source=./internal/storage/storage.go -destination=./mocks/storage.go -package=mocks
//   mockgen -source=./internal/pubsub/pubsub.go -destination=./mocks/pubsub.go -package=mocks

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-blog-forum/internal/auth"
	"github.com/pribylovaa/go-blog-forum/internal/config"
	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/mocks"
)

type testEnv struct {
	svc      *Service
	blogs    *mocks.MockBlogs
	posts    *mocks.MockPosts
	comments *mocks.MockComments
	users    *mocks.MockUsers
	profiles *mocks.MockProfiles
	objects  *mocks.MockObjects
	bus      *mocks.MockBus
	tokens   *auth.Tokens
}

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:  "unit-test-secret-0123456789",
			Issuer:     "forum-service",
			Audience:   "forum",
			AccessTTL:  time.Hour,
			BcryptCost: 4,
		},
		Limits: config.LimitsConfig{Default: 5, Max: 100, MaxCommentLength: 20},
	}
}

// newEnv — сервис с моками всех хранилищ и шины.
func newEnv(t *testing.T) *testEnv {
	t.Helper()

	ctrl := gomock.NewController(t)
	cfg := testConfig()

	env := &testEnv{
		blogs:    mocks.NewMockBlogs(ctrl),
		posts:    mocks.NewMockPosts(ctrl),
		comments: mocks.NewMockComments(ctrl),
		users:    mocks.NewMockUsers(ctrl),
		profiles: mocks.NewMockProfiles(ctrl),
		objects:  mocks.NewMockObjects(ctrl),
		bus:      mocks.NewMockBus(ctrl),
		tokens:   auth.NewTokens(cfg.Auth),
	}

	env.svc = New(Deps{
		Blogs:    env.blogs,
		Posts:    env.posts,
		Comments: env.comments,
		Users:    env.users,
		Profiles: env.profiles,
		Objects:  env.objects,
		Bus:      env.bus,
		Tokens:   env.tokens,
	}, cfg)

	return env
}

// as — контекст с личностью пользователя.
func as(id uuid.UUID, roles ...string) context.Context {
	return auth.Into(context.Background(), auth.Identity{ID: id, Roles: roles})
}

func admin(id uuid.UUID) context.Context {
	return as(id, models.RoleAdmin)
}
