package livequery

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-blog-forum/internal/auth"
	"github.com/pribylovaa/go-blog-forum/internal/config"
	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/internal/pubsub"
	"github.com/pribylovaa/go-blog-forum/internal/service"
)

// fakeSource — данные форума в памяти.
type fakeSource struct {
	mu       sync.Mutex
	blogs    []models.Blog
	comments []models.PostComment
	profiles map[string]models.Profile
	runs     atomic.Int32
	fail     error
	lastOpts models.QueryOptions
	search   string
}

func (f *fakeSource) ListBlogs(_ context.Context, opts models.QueryOptions) ([]models.Blog, error) {
	f.runs.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail != nil {
		return nil, f.fail
	}
	f.lastOpts = opts

	end := min(opts.Skip+opts.Limit, len(f.blogs))
	if opts.Skip >= end {
		return nil, nil
	}
	return append([]models.Blog(nil), f.blogs[opts.Skip:end]...), nil
}

func (f *fakeSource) CountBlogs(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.blogs)), nil
}

func (f *fakeSource) PostByID(_ context.Context, postID string) (*models.Post, error) {
	if postID == "missing" {
		return nil, service.ErrNotFound
	}
	return &models.Post{ID: uuid.MustParse(postID), Title: "post"}, nil
}

func (f *fakeSource) ListPostComments(_ context.Context, _ string, opts models.QueryOptions, search string) ([]models.PostComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOpts, f.search = opts, search
	return append([]models.PostComment(nil), f.comments...), nil
}

func (f *fakeSource) CountPostComments(context.Context, string, string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.comments)), nil
}

func (f *fakeSource) Images(context.Context, int) ([]models.Image, error) {
	return []models.Image{{Key: "images/a.png"}}, nil
}

func (f *fakeSource) Profile(_ context.Context, userID string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, service.ErrNotFound
	}
	return &p, nil
}

func (f *fakeSource) setBlogs(blogs ...models.Blog) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blogs = blogs
}

func newEngine(t *testing.T, src Source, debounce time.Duration) (*Engine, *pubsub.Memory) {
	t.Helper()

	bus := pubsub.NewMemory()
	e := New(bus, config.LiveConfig{Debounce: debounce, SendBuffer: 64})
	RegisterForum(e, src)

	t.Cleanup(func() {
		e.Close()
		_ = bus.Close()
	})

	return e, bus
}

func next(t *testing.T, s *Subscription) Event {
	t.Helper()

	select {
	case ev, ok := <-s.Events():
		require.True(t, ok, "events closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("event expected")
		return Event{}
	}
}

func blog(title string) models.Blog {
	return models.Blog{ID: uuid.New(), Title: title, CreatedAt: time.Now().UTC()}
}

func optionsArgs(limit, skip int) []any {
	return []any{map[string]any{"limit": float64(limit), "skip": float64(skip)}}
}

func TestBlogs_SnapshotReadyAndCounter(t *testing.T) {
	a, b, c := blog("a"), blog("b"), blog("c")
	src := &fakeSource{blogs: []models.Blog{a, b, c}}
	e, _ := newEngine(t, src, 0)

	s, err := e.Subscribe(context.Background(), PubBlogs, optionsArgs(2, 0))
	require.NoError(t, err)

	ev := next(t, s)
	require.Equal(t, EventAdded, ev.Type)
	require.Equal(t, CollectionBlogs, ev.Collection)
	require.Equal(t, a.ID.String(), ev.ID)

	var got models.Blog
	require.NoError(t, json.Unmarshal(ev.Doc, &got))
	require.Equal(t, "a", got.Title)

	require.Equal(t, b.ID.String(), next(t, s).ID)

	ev = next(t, s)
	require.Equal(t, EventCounter, ev.Type)
	require.Equal(t, CounterBlogs, ev.Name)
	require.Equal(t, int64(3), ev.Value)

	require.Equal(t, EventReady, next(t, s).Type)
	require.Equal(t, 1, e.Sessions())

	s.Stop()
	s.Stop()
	require.Eventually(t, func() bool { return e.Sessions() == 0 }, time.Second, 5*time.Millisecond)
}

func TestBlogs_RerunDiff(t *testing.T) {
	a, b := blog("a"), blog("b")
	src := &fakeSource{blogs: []models.Blog{a, b}}
	e, bus := newEngine(t, src, 0)

	s, err := e.Subscribe(context.Background(), PubBlogs, optionsArgs(5, 0))
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		next(t, s)
	}

	b2 := b
	b2.Title = "b2"
	d := blog("d")
	src.setBlogs(d, b2)

	require.NoError(t, bus.Publish(context.Background(), pubsub.TopicBlogs))

	ev := next(t, s)
	require.Equal(t, EventRemoved, ev.Type)
	require.Equal(t, a.ID.String(), ev.ID)

	ev = next(t, s)
	require.Equal(t, EventAdded, ev.Type)
	require.Equal(t, d.ID.String(), ev.ID)

	ev = next(t, s)
	require.Equal(t, EventChanged, ev.Type)
	require.Equal(t, b.ID.String(), ev.ID)

	src.setBlogs()
	require.NoError(t, bus.Publish(context.Background(), pubsub.TopicBlogs))

	require.Equal(t, EventRemoved, next(t, s).Type)
	require.Equal(t, EventRemoved, next(t, s).Type)

	ev = next(t, s)
	require.Equal(t, EventCounter, ev.Type)
	require.Equal(t, int64(0), ev.Value)
}

func TestBlogs_DebounceCoalescesBurst(t *testing.T) {
	src := &fakeSource{blogs: []models.Blog{blog("a")}}
	e, bus := newEngine(t, src, 100*time.Millisecond)

	s, err := e.Subscribe(context.Background(), PubBlogs, optionsArgs(5, 0))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		next(t, s)
	}
	require.Equal(t, int32(1), src.runs.Load())

	src.setBlogs(blog("a"), blog("x"))
	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(context.Background(), pubsub.TopicBlogs))
	}

	require.Eventually(t, func() bool { return src.runs.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, int32(2), src.runs.Load())
}

func TestSubscribe_InitialFailure(t *testing.T) {
	src := &fakeSource{fail: errors.New("db down")}
	e, _ := newEngine(t, src, 0)

	s, err := e.Subscribe(context.Background(), PubBlogs, nil)
	require.NoError(t, err)

	ev := next(t, s)
	require.Equal(t, EventError, ev.Type)
	require.Contains(t, ev.Error, "db down")

	select {
	case _, ok := <-s.Events():
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("events must be closed")
	}
}

func TestSubscribe_ArgErrors(t *testing.T) {
	e, _ := newEngine(t, &fakeSource{}, 0)
	ctx := context.Background()

	_, err := e.Subscribe(ctx, "nope", nil)
	require.ErrorIs(t, err, ErrUnknownPublication)

	_, err = e.Subscribe(ctx, PubPostComments, []any{})
	require.ErrorIs(t, err, ErrInvalidArgs)

	_, err = e.Subscribe(ctx, PubBlogs, []any{"not-options"})
	require.ErrorIs(t, err, ErrInvalidArgs)

	_, err = e.Subscribe(ctx, PubProfile, nil)
	require.ErrorIs(t, err, ErrInvalidArgs)
}

func TestPostComments_ArgsAndCounter(t *testing.T) {
	postID := uuid.NewString()
	src := &fakeSource{comments: []models.PostComment{{ID: "c1"}}}
	e, _ := newEngine(t, src, 0)

	s, err := e.Subscribe(context.Background(), PubPostComments, []any{postID, optionsArgs(5, 10)[0], "hello"})
	require.NoError(t, err)

	require.Equal(t, EventAdded, next(t, s).Type)
	ev := next(t, s)
	require.Equal(t, CounterPostComments, ev.Name)
	require.Equal(t, int64(1), ev.Value)
	require.Equal(t, EventReady, next(t, s).Type)

	src.mu.Lock()
	defer src.mu.Unlock()
	require.Equal(t, 10, src.lastOpts.Skip)
	require.Equal(t, "hello", src.search)
}

func TestPostDetail_MissingIsEmpty(t *testing.T) {
	e, _ := newEngine(t, &fakeSource{}, 0)

	s, err := e.Subscribe(context.Background(), PubPostDetail, []any{"missing"})
	require.NoError(t, err)
	require.Equal(t, EventReady, next(t, s).Type)
}

func TestProfile_Self(t *testing.T) {
	uid := uuid.New()
	src := &fakeSource{profiles: map[string]models.Profile{uid.String(): {UserID: uid, Username: "bob"}}}
	e, bus := newEngine(t, src, 0)

	ctx := auth.Into(context.Background(), auth.Identity{ID: uid})
	s, err := e.Subscribe(ctx, PubProfile, nil)
	require.NoError(t, err)

	ev := next(t, s)
	require.Equal(t, EventAdded, ev.Type)
	require.Equal(t, uid.String(), ev.ID)
	require.Equal(t, EventReady, next(t, s).Type)

	src.mu.Lock()
	src.profiles[uid.String()] = models.Profile{UserID: uid, Username: "bobby"}
	src.mu.Unlock()
	require.NoError(t, bus.Publish(ctx, pubsub.TopicProfile(uid.String())))

	require.Equal(t, EventChanged, next(t, s).Type)
}

func TestEngine_CloseStopsSessions(t *testing.T) {
	e, _ := newEngine(t, &fakeSource{}, 0)

	s, err := e.Subscribe(context.Background(), PubImages, nil)
	require.NoError(t, err)
	require.Equal(t, EventAdded, next(t, s).Type)

	e.Close()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription must stop")
	}

	_, err = e.Subscribe(context.Background(), PubImages, nil)
	require.ErrorIs(t, err, ErrClosed)
}
