package interceptors

import (
	"context"
	"log/slog"
	"runtime/debug"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/go-blog-forum/internal/pkg/log"
)

func loggerFor(ctx context.Context, base *slog.Logger) *slog.Logger {
	l := log.From(ctx)
	if l == slog.Default() && base != nil {
		l = base
	}

	return l
}

func logPanic(l *slog.Logger, method string, r any) {
	l.Error("panic_recovered",
		slog.String("method", method),
		slog.Any("panic", r),
		slog.String("stack", string(debug.Stack())),
	)
}

// Recover перехватывает паники unary-обработчиков, логирует их со стеком
// и отвечает нейтральной ошибкой codes.Internal.
func Recover(base *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(loggerFor(ctx, base), info.FullMethod, r)

				err = status.Error(codes.Internal, "internal server error")
				resp = nil
			}
		}()

		return handler(ctx, req)
	}
}

// RecoverStream — то же для стримов.
func RecoverStream(base *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(loggerFor(ss.Context(), base), info.FullMethod, r)

				err = status.Error(codes.Internal, "internal server error")
			}
		}()

		return handler(srv, ss)
	}
}
