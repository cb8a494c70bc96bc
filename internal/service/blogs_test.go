package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/internal/pubsub"
	"github.com/pribylovaa/go-blog-forum/internal/storage"
)

func TestListBlogs_NormalizesLimits(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	env.blogs.EXPECT().ListBlogs(ctx, 5, 0).Return([]models.Blog{{Title: "a"}}, nil)
	got, err := env.svc.ListBlogs(ctx, models.QueryOptions{Limit: 0, Skip: -3})
	require.NoError(t, err)
	require.Len(t, got, 1)

	env.blogs.EXPECT().ListBlogs(ctx, 100, 10).Return(nil, nil)
	_, err = env.svc.ListBlogs(ctx, models.QueryOptions{Limit: 1000, Skip: 10})
	require.NoError(t, err)

	env.blogs.EXPECT().ListBlogs(ctx, 5, 10).Return(nil, errors.New("db down"))
	_, err = env.svc.ListBlogs(ctx, models.QueryOptions{Limit: 5, Skip: 10})
	require.ErrorIs(t, err, ErrInternal)
}

func TestCreateBlog(t *testing.T) {
	env := newEnv(t)
	owner := uuid.New()

	_, err := env.svc.CreateBlog(context.Background(), "t", "c")
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = env.svc.CreateBlog(as(owner), "  ", "c")
	require.ErrorIs(t, err, ErrInvalidArgument)

	ctx := as(owner)
	env.blogs.EXPECT().CreateBlog(ctx, models.Blog{Title: "t", Content: "c", Owner: owner}).
		Return(&models.Blog{ID: uuid.New(), Title: "t", Content: "c", Owner: owner}, nil)
	env.bus.EXPECT().Publish(ctx, pubsub.TopicBlogs).Return(nil)

	blog, err := env.svc.CreateBlog(ctx, " t ", " c ")
	require.NoError(t, err)
	require.Equal(t, owner, blog.Owner)
}

func TestDeleteBlog(t *testing.T) {
	owner, other := uuid.New(), uuid.New()
	blogID := uuid.New()
	blog := &models.Blog{ID: blogID, Owner: owner}

	t.Run("anonymous", func(t *testing.T) {
		env := newEnv(t)
		require.ErrorIs(t, env.svc.DeleteBlog(context.Background(), blogID.String(), ""), ErrUnauthenticated)
	})

	t.Run("claimed user mismatch", func(t *testing.T) {
		env := newEnv(t)
		require.ErrorIs(t, env.svc.DeleteBlog(as(owner), blogID.String(), other.String()), ErrPermissionDenied)
	})

	t.Run("bad id", func(t *testing.T) {
		env := newEnv(t)
		require.ErrorIs(t, env.svc.DeleteBlog(as(owner), "nope", owner.String()), ErrInvalidArgument)
	})

	t.Run("not found", func(t *testing.T) {
		env := newEnv(t)
		ctx := as(owner)
		env.blogs.EXPECT().BlogByID(ctx, blogID).Return(nil, storage.ErrNotFound)
		require.ErrorIs(t, env.svc.DeleteBlog(ctx, blogID.String(), owner.String()), ErrNotFound)
	})

	t.Run("foreign blog", func(t *testing.T) {
		env := newEnv(t)
		ctx := as(other)
		env.blogs.EXPECT().BlogByID(ctx, blogID).Return(blog, nil)
		require.ErrorIs(t, env.svc.DeleteBlog(ctx, blogID.String(), other.String()), ErrPermissionDenied)
	})

	t.Run("owner deletes and notifies", func(t *testing.T) {
		env := newEnv(t)
		ctx := as(owner)
		env.blogs.EXPECT().BlogByID(ctx, blogID).Return(blog, nil)
		env.blogs.EXPECT().DeleteBlog(ctx, blogID).Return(nil)
		env.bus.EXPECT().Publish(ctx, pubsub.TopicBlogs).Return(nil)
		require.NoError(t, env.svc.DeleteBlog(ctx, blogID.String(), owner.String()))
	})

	t.Run("admin deletes foreign, bus failure ignored", func(t *testing.T) {
		env := newEnv(t)
		ctx := admin(other)
		env.blogs.EXPECT().BlogByID(ctx, blogID).Return(blog, nil)
		env.blogs.EXPECT().DeleteBlog(ctx, blogID).Return(nil)
		env.bus.EXPECT().Publish(ctx, pubsub.TopicBlogs).Return(errors.New("redis down"))
		require.NoError(t, env.svc.DeleteBlog(ctx, blogID.String(), ""))
	})
}
