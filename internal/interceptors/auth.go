package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/go-blog-forum/internal/auth"
	"github.com/pribylovaa/go-blog-forum/internal/pkg/log"
)

// Authenticator проверяет access-токен; пустой токен — аноним без ошибки.
type Authenticator interface {
	Authenticate(token string) (auth.Identity, error)
}

// BearerToken достаёт токен из metadata "authorization: Bearer <jwt>".
func BearerToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	for _, v := range md.Get("authorization") {
		if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
			return strings.TrimSpace(v[7:])
		}
	}

	return ""
}

func identify(ctx context.Context, a Authenticator) (context.Context, error) {
	id, err := a.Authenticate(BearerToken(ctx))
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid access token")
	}

	if !id.Anonymous() {
		ctx, _ = log.With(ctx, "user_id", id.UserID())
	}

	return auth.Into(ctx, id), nil
}

// UnaryAuth кладёт личность вызывающего в context. Битый токен — codes.Unauthenticated,
// отсутствие токена — аноним: права проверяет сервисный слой.
func UnaryAuth(a Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := identify(ctx, a)
		if err != nil {
			return nil, err
		}

		return handler(ctx, req)
	}
}

// StreamAuth — то же для стримов.
func StreamAuth(a Authenticator) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := identify(ss.Context(), a)
		if err != nil {
			return err
		}

		return handler(srv, withContext(ss, ctx))
	}
}
