package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan string) string {
	t.Helper()

	select {
	case topic, ok := <-ch:
		require.True(t, ok, "channel closed")
		return topic
	case <-time.After(2 * time.Second):
		t.Fatal("notification expected")
		return ""
	}
}

func requireClosed(t *testing.T, ch <-chan string) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel must be closed")
		}
	}
}

func TestTopics(t *testing.T) {
	require.Equal(t, "posts/p1", TopicPost("p1"))
	require.Equal(t, "post_comments/p1", TopicPostComments("p1"))
	require.Equal(t, "profiles/u1", TopicProfile("u1"))
}

func TestMemory_PublishSubscribe(t *testing.T) {
	bus := NewMemory()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx, TopicBlogs, TopicPostComments("p1"))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, TopicPostComments("p1")))
	require.Equal(t, "post_comments/p1", recv(t, ch))

	require.NoError(t, bus.Publish(ctx, TopicBlogs))
	require.Equal(t, TopicBlogs, recv(t, ch))

	require.NoError(t, bus.Publish(ctx, "unrelated"))
	require.Equal(t, 1, bus.Subscribers(TopicBlogs))

	cancel()
	requireClosed(t, ch)
	require.Eventually(t, func() bool { return bus.Subscribers(TopicBlogs) == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemory_OverflowDropsButKeepsPending(t *testing.T) {
	bus := NewMemory()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, TopicBlogs)
	require.NoError(t, err)

	for i := 0; i < subscriberBuffer*3; i++ {
		require.NoError(t, bus.Publish(ctx, TopicBlogs))
	}

	require.Len(t, ch, subscriberBuffer)
}

func TestMemory_InvalidAndClosed(t *testing.T) {
	bus := NewMemory()

	_, err := bus.Subscribe(context.Background(), " ")
	require.ErrorIs(t, err, ErrInvalidTopic)
	require.ErrorIs(t, bus.Publish(context.Background(), ""), ErrInvalidTopic)

	ch, err := bus.Subscribe(context.Background(), TopicImages)
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())
	requireClosed(t, ch)

	require.ErrorIs(t, bus.Publish(context.Background(), TopicImages), ErrClosed)
	_, err = bus.Subscribe(context.Background(), TopicImages)
	require.ErrorIs(t, err, ErrClosed)
}

func TestRedis_FanOutAcrossInstances(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	newClient := func() *redis.Client {
		c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = c.Close() })
		return c
	}

	ctx := context.Background()

	a, err := NewRedis(ctx, newClient(), "forum:changes", nil)
	require.NoError(t, err)
	b, err := NewRedis(ctx, newClient(), "forum:changes", nil)
	require.NoError(t, err)

	subCtx, cancel := context.WithCancel(ctx)
	chB, err := b.Subscribe(subCtx, TopicPostComments("p1"))
	require.NoError(t, err)

	require.NoError(t, a.Publish(ctx, TopicPostComments("p1")))
	require.Equal(t, "post_comments/p1", recv(t, chB))

	require.ErrorIs(t, a.Publish(ctx, ""), ErrInvalidTopic)

	cancel()
	requireClosed(t, chB)

	require.NoError(t, a.Close())
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}
