package interceptors

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/go-blog-forum/internal/auth"
)

type capHandler struct {
	base    []slog.Attr
	lastMsg string
	lastLvl slog.Level
	attrs   map[string]any
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, len(h.base)+8)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}

	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})

	h.lastMsg = r.Message
	h.lastLvl = r.Level
	h.attrs = out
	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.base = append(h.base, attrs...)
	return h
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

// fakeStream — серверный стрим, у которого есть только контекст.
type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeStream) Context() context.Context { return f.ctx }

func TestUnaryLoggingInterceptor_Success_WithRequestID(t *testing.T) {
	h := &capHandler{}
	logger := slog.New(h)

	md := metadata.New(map[string]string{"x-request-id": "rid-123"})
	ctx := metadata.NewIncomingContext(context.Background(), md)
	ctx = peer.NewContext(ctx, &peer.Peer{
		Addr: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 50060},
	})

	info := &grpc.UnaryServerInfo{FullMethod: "/forum.v1.Forum/Call"}

	inter := UnaryLoggingInterceptor(logger)
	resp, err := inter(ctx, "req", info, func(ctx context.Context, req any) (any, error) {
		time.Sleep(5 * time.Millisecond)
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", resp)

	require.Equal(t, "grpc", h.lastMsg)
	require.Equal(t, slog.LevelInfo, h.lastLvl)
	require.Equal(t, "rid-123", h.attrs["request_id"])
	require.Equal(t, info.FullMethod, h.attrs["method"])
	require.Equal(t, "127.0.0.1:50060", h.attrs["peer"])
	require.Equal(t, "OK", h.attrs["code"])

	d, ok := h.attrs["dur"].(time.Duration)
	require.True(t, ok, "dur attr: %#v", h.attrs["dur"])
	require.Greater(t, d, time.Duration(0))
}

func TestStreamLoggingInterceptor_GeneratesUUID_And_LogsErrorCode(t *testing.T) {
	h := &capHandler{}
	inter := StreamLoggingInterceptor(slog.New(h))

	err := inter(nil, &fakeStream{ctx: context.Background()}, &grpc.StreamServerInfo{FullMethod: "/forum.v1.Forum/Subscribe"},
		func(srv any, ss grpc.ServerStream) error {
			return status.Error(codes.InvalidArgument, "bad args")
		})
	require.Error(t, err)

	require.Equal(t, "grpc_stream", h.lastMsg)
	require.Equal(t, "InvalidArgument", h.attrs["code"])

	rid, _ := h.attrs["request_id"].(string)
	_, parseErr := uuid.Parse(rid)
	require.NoError(t, parseErr)
}

func TestRecover_PanicToInternal_AndLogsStack(t *testing.T) {
	h := &capHandler{}
	info := &grpc.UnaryServerInfo{FullMethod: "/forum.v1.Forum/Call"}

	resp, err := Recover(slog.New(h))(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		panic("boom")
	})

	require.Nil(t, resp)
	require.Equal(t, codes.Internal, status.Code(err))
	require.Equal(t, slog.LevelError, h.lastLvl)
	require.Equal(t, "panic_recovered", h.lastMsg)
	require.Equal(t, info.FullMethod, h.attrs["method"])

	stack, ok := h.attrs["stack"].(string)
	require.True(t, ok)
	require.NotEmpty(t, stack)
}

func TestRecoverStream_PanicToInternal(t *testing.T) {
	h := &capHandler{}

	err := RecoverStream(slog.New(h))(nil, &fakeStream{ctx: context.Background()}, &grpc.StreamServerInfo{FullMethod: "/forum.v1.Forum/Subscribe"},
		func(any, grpc.ServerStream) error { panic("boom") })

	require.Equal(t, codes.Internal, status.Code(err))
	require.Equal(t, "panic_recovered", h.lastMsg)
}

func TestWithTimeout_SetsDeadline(t *testing.T) {
	const d = 40 * time.Millisecond

	start := time.Now()
	_, err := WithTimeout(d)(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "/forum.v1.Forum/Call"},
		func(ctx context.Context, req any) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.GreaterOrEqual(t, time.Since(start), d)
}

func TestWithTimeout_DoesNotOverrideExistingDeadline(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	pdl, _ := parent.Deadline()

	var childDL time.Time
	_, err := WithTimeout(time.Second)(parent, "req", &grpc.UnaryServerInfo{},
		func(ctx context.Context, req any) (any, error) {
			childDL, _ = ctx.Deadline()
			return "ok", nil
		})

	require.NoError(t, err)
	require.WithinDuration(t, pdl, childDL, time.Millisecond)
}

type fakeAuth struct {
	ids map[string]auth.Identity
}

func (f fakeAuth) Authenticate(token string) (auth.Identity, error) {
	if token == "" {
		return auth.Identity{}, nil
	}

	id, ok := f.ids[token]
	if !ok {
		return auth.Identity{}, errors.New("bad token")
	}

	return id, nil
}

func TestBearerToken(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer abc"))
	require.Equal(t, "abc", BearerToken(ctx))

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "bearer  xyz "))
	require.Equal(t, "xyz", BearerToken(ctx))

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Basic abc"))
	require.Equal(t, "", BearerToken(ctx))

	require.Equal(t, "", BearerToken(context.Background()))
}

func TestUnaryAuth(t *testing.T) {
	uid := uuid.New()
	a := fakeAuth{ids: map[string]auth.Identity{"good": {ID: uid}}}
	info := &grpc.UnaryServerInfo{FullMethod: "/forum.v1.Forum/Call"}

	withToken := func(tok string) context.Context {
		return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+tok))
	}

	_, err := UnaryAuth(a)(withToken("good"), "req", info, func(ctx context.Context, req any) (any, error) {
		require.Equal(t, uid, auth.From(ctx).ID)
		return nil, nil
	})
	require.NoError(t, err)

	_, err = UnaryAuth(a)(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		require.True(t, auth.From(ctx).Anonymous())
		return nil, nil
	})
	require.NoError(t, err)

	called := false
	_, err = UnaryAuth(a)(withToken("bad"), "req", info, func(ctx context.Context, req any) (any, error) {
		called = true
		return nil, nil
	})
	require.Equal(t, codes.Unauthenticated, status.Code(err))
	require.False(t, called)
}

func TestStreamAuth(t *testing.T) {
	uid := uuid.New()
	a := fakeAuth{ids: map[string]auth.Identity{"good": {ID: uid}}}
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer good"))

	err := StreamAuth(a)(nil, &fakeStream{ctx: ctx}, &grpc.StreamServerInfo{},
		func(_ any, ss grpc.ServerStream) error {
			require.Equal(t, uid, auth.From(ss.Context()).ID)
			return nil
		})
	require.NoError(t, err)
}
