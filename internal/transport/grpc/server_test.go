package grpc

// Тесты транспортного слоя forum.v1.Forum.
// Реальный service.Service поверх gomock-хранилищ, движок публикаций на шине в памяти,
// сервер с полной цепочкой интерцепторов поднимается на bufconn.

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	forumv1 "github.com/pribylovaa/go-blog-forum/internal/api/forumv1"
	"github.com/pribylovaa/go-blog-forum/internal/auth"
	"github.com/pribylovaa/go-blog-forum/internal/config"
	"github.com/pribylovaa/go-blog-forum/internal/livequery"
	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/internal/pubsub"
	"github.com/pribylovaa/go-blog-forum/internal/service"
	"github.com/pribylovaa/go-blog-forum/mocks"
)

type testEnv struct {
	client forumv1.ForumClient
	blogs  *mocks.MockBlogs
	tokens *auth.Tokens
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
		Limits: config.LimitsConfig{Default: 5, Max: 100, MaxCommentLength: 200},
		Live:   config.LiveConfig{Debounce: 10 * time.Millisecond, SendBuffer: 16},
	}
}

// newEnv поднимает сервер на bufconn и возвращает клиента.
func newEnv(t *testing.T) *testEnv {
	t.Helper()

	ctrl := gomock.NewController(t)
	cfg := testConfig()

	blogs := mocks.NewMockBlogs(ctrl)
	tokens := auth.NewTokens(cfg.Auth)
	bus := pubsub.NewMemory()
	t.Cleanup(func() { _ = bus.Close() })

	svc := service.New(service.Deps{
		Blogs:    blogs,
		Posts:    mocks.NewMockPosts(ctrl),
		Comments: mocks.NewMockComments(ctrl),
		Users:    mocks.NewMockUsers(ctrl),
		Profiles: mocks.NewMockProfiles(ctrl),
		Objects:  mocks.NewMockObjects(ctrl),
		Bus:      bus,
		Tokens:   tokens,
	}, cfg)

	engine := livequery.New(bus, cfg.Live)
	livequery.RegisterForum(engine, svc)

	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, _ := NewServer(lg, Options{Env: "test", Timeout: time.Second, Auth: svc},
		NewForumServer(service.NewMethods(svc), engine))

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		engine.Close()
		srv.Stop()
	})

	return &testEnv{client: forumv1.NewForumClient(conn), blogs: blogs, tokens: tokens}
}

func (e *testEnv) call(ctx context.Context, t *testing.T, method string, args ...any) error {
	t.Helper()

	req, err := forumv1.CallRequest(method, args)
	require.NoError(t, err)

	_, err = e.client.Call(ctx, req)
	return err
}

func (e *testEnv) withToken(t *testing.T, user models.User) context.Context {
	t.Helper()

	token, _, err := e.tokens.Issue(user)
	require.NoError(t, err)

	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func TestCall_Validation(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	err := env.call(ctx, t, "")
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	err = env.call(ctx, t, "dropDatabase")
	require.Equal(t, codes.Unimplemented, status.Code(err))

	err = env.call(ctx, t, service.MethodCreateBlog, "title", "content")
	require.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestCall_InvalidTokenRejected(t *testing.T) {
	env := newEnv(t)

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer garbage")
	err := env.call(ctx, t, service.MethodCreateBlog, "title", "content")
	require.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestCall_CreateBlog_WithToken(t *testing.T) {
	env := newEnv(t)
	owner := uuid.New()

	env.blogs.EXPECT().
		CreateBlog(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, b models.Blog) (*models.Blog, error) {
			require.Equal(t, owner, b.Owner)
			b.ID = uuid.New()
			b.CreatedAt = time.Unix(1710000000, 0).UTC()
			return &b, nil
		})

	req, err := forumv1.CallRequest(service.MethodCreateBlog, []any{"Hello", "World"})
	require.NoError(t, err)

	out, err := env.client.Call(env.withToken(t, models.User{ID: owner}), req)
	require.NoError(t, err)

	var blog models.Blog
	require.NoError(t, forumv1.DecodeResult(out, &blog))
	require.Equal(t, "Hello", blog.Title)
	require.Equal(t, owner, blog.Owner)
}

func TestCall_StorageFailureIsInternal(t *testing.T) {
	env := newEnv(t)

	env.blogs.EXPECT().CreateBlog(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

	err := env.call(env.withToken(t, models.User{ID: uuid.New()}), t, service.MethodCreateBlog, "t", "c")
	require.Equal(t, codes.Internal, status.Code(err))
	require.Equal(t, "internal server error", status.Convert(err).Message())
}

func TestSubscribe_BlogsSnapshotAndRerun(t *testing.T) {
	env := newEnv(t)

	first := models.Blog{ID: uuid.New(), Title: "first", CreatedAt: time.Unix(1710000000, 0).UTC()}
	second := models.Blog{ID: uuid.New(), Title: "second", CreatedAt: time.Unix(1710000100, 0).UTC()}

	gomock.InOrder(
		env.blogs.EXPECT().ListBlogs(gomock.Any(), 5, 0).Return([]models.Blog{first}, nil),
		env.blogs.EXPECT().CountBlogs(gomock.Any()).Return(int64(1), nil),
		env.blogs.EXPECT().CreateBlog(gomock.Any(), gomock.Any()).Return(&second, nil),
		env.blogs.EXPECT().ListBlogs(gomock.Any(), 5, 0).Return([]models.Blog{second, first}, nil),
		env.blogs.EXPECT().CountBlogs(gomock.Any()).Return(int64(2), nil),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := forumv1.SubscribeRequest(livequery.PubBlogs, []any{map[string]any{"limit": 5, "skip": 0}})
	require.NoError(t, err)

	stream, err := env.client.Subscribe(ctx, req)
	require.NoError(t, err)

	expect := func(typ livequery.EventType) livequery.Event {
		t.Helper()

		msg, err := stream.Recv()
		require.NoError(t, err)

		var ev livequery.Event
		require.NoError(t, forumv1.Decode(msg, &ev))
		require.Equal(t, typ, ev.Type, "event: %+v", ev)
		return ev
	}

	ev := expect(livequery.EventAdded)
	require.Equal(t, first.ID.String(), ev.ID)
	require.Equal(t, livequery.CollectionBlogs, ev.Collection)

	ev = expect(livequery.EventCounter)
	require.Equal(t, livequery.CounterBlogs, ev.Name)
	require.Equal(t, int64(1), ev.Value)

	expect(livequery.EventReady)

	require.NoError(t, env.call(env.withToken(t, models.User{ID: uuid.New()}), t, service.MethodCreateBlog, "second", "body"))

	ev = expect(livequery.EventAdded)
	require.Equal(t, second.ID.String(), ev.ID)

	ev = expect(livequery.EventCounter)
	require.Equal(t, int64(2), ev.Value)
}

func TestSubscribe_Errors(t *testing.T) {
	env := newEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cases := []struct {
		name string
		pub  string
		args []any
		code codes.Code
	}{
		{name: "empty name", pub: "", code: codes.InvalidArgument},
		{name: "unknown publication", pub: "secrets", code: codes.NotFound},
		{name: "bad options", pub: livequery.PubBlogs, args: []any{"not-an-object"}, code: codes.InvalidArgument},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := forumv1.SubscribeRequest(tc.pub, tc.args)
			require.NoError(t, err)

			stream, err := env.client.Subscribe(ctx, req)
			require.NoError(t, err)

			_, err = stream.Recv()
			require.Equal(t, tc.code, status.Code(err))
		})
	}
}

func TestSubscribe_InitialFailureIsErrorEvent(t *testing.T) {
	env := newEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	env.blogs.EXPECT().ListBlogs(gomock.Any(), 5, 0).Return(nil, errors.New("db down"))

	req, err := forumv1.SubscribeRequest(livequery.PubBlogs, nil)
	require.NoError(t, err)

	stream, err := env.client.Subscribe(ctx, req)
	require.NoError(t, err)

	msg, err := stream.Recv()
	require.NoError(t, err)

	var ev livequery.Event
	require.NoError(t, forumv1.Decode(msg, &ev))
	require.Equal(t, livequery.EventError, ev.Type)
	require.NotEmpty(t, ev.Error)

	_, err = stream.Recv()
	require.ErrorIs(t, err, io.EOF)
}

func TestToStatus(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
	}{
		{nil, codes.OK},
		{service.ErrInvalidArgument, codes.InvalidArgument},
		{service.ErrNotFound, codes.NotFound},
		{service.ErrPermissionDenied, codes.PermissionDenied},
		{service.ErrUnauthenticated, codes.Unauthenticated},
		{service.ErrConflict, codes.AlreadyExists},
		{service.ErrUnknownMethod, codes.Unimplemented},
		{livequery.ErrUnknownPublication, codes.NotFound},
		{livequery.ErrInvalidArgs, codes.InvalidArgument},
		{livequery.ErrClosed, codes.Unavailable},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{service.ErrInternal, codes.Internal},
		{errors.New("boom"), codes.Internal},
	}

	for _, tc := range cases {
		require.Equal(t, tc.code, toStatus("op", tc.err).Code(), "err: %v", tc.err)
	}
}
