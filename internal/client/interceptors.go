package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/go-blog-forum/internal/pkg/log"
)

// withMetadata добавляет в исходящий вызов authorization: Bearer <token>
// (если токен есть) и user-agent.
func withMetadata(ctx context.Context, token func() string, userAgent string) context.Context {
	var pairs []string

	if tok := token(); tok != "" {
		pairs = append(pairs, "authorization", "Bearer "+tok)
	}
	if userAgent != "" {
		pairs = append(pairs, "user-agent", userAgent)
	}
	if len(pairs) > 0 {
		ctx = metadata.AppendToOutgoingContext(ctx, pairs...)
	}

	return ctx
}

// clientWithMetadata — unary-вариант withMetadata.
func clientWithMetadata(token func() string, userAgent string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return invoker(withMetadata(ctx, token, userAgent), method, req, reply, cc, opts...)
	}
}

// clientStreamWithMetadata — stream-вариант withMetadata.
func clientStreamWithMetadata(token func() string, userAgent string) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		return streamer(withMetadata(ctx, token, userAgent), desc, cc, method, opts...)
	}
}

// clientWithTimeout навешивает таймаут d на unary-вызов, если у контекста ещё нет дедлайна.
// d <= 0 — no-op.
func clientWithTimeout(d time.Duration) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if d <= 0 {
			return invoker(ctx, method, req, reply, cc, opts...)
		}
		if _, ok := ctx.Deadline(); ok {
			return invoker(ctx, method, req, reply, cc, opts...)
		}

		cctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		return invoker(cctx, method, req, reply, cc, opts...)
	}
}

// clientUnaryLogging — одна запись msg="grpc" на исходящий unary-вызов.
// Не логирует payload и заголовки.
func clientUnaryLogging(base *slog.Logger) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()

		var rid string
		if md, ok := metadata.FromOutgoingContext(ctx); ok {
			if v := md.Get("x-request-id"); len(v) > 0 && v[0] != "" {
				rid = v[0]
			}
		}
		if rid == "" {
			rid = uuid.NewString()
			ctx = metadata.AppendToOutgoingContext(ctx, "x-request-id", rid)
		}

		l := base.With(
			slog.String("request_id", rid),
			slog.String("method", method),
		)
		ctx = log.Into(ctx, l)

		err := invoker(ctx, method, req, reply, cc, opts...)

		l.Debug("grpc",
			slog.String("code", status.Code(err).String()),
			slog.Duration("dur", time.Since(start)),
		)

		return err
	}
}
