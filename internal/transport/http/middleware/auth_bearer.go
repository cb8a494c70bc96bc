package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pribylovaa/go-blog-forum/internal/auth"
	"github.com/pribylovaa/go-blog-forum/internal/pkg/log"
	"github.com/pribylovaa/go-blog-forum/internal/service"
	apierrors "github.com/pribylovaa/go-blog-forum/internal/transport/http/errors"
)

// Authenticator проверяет access-токен; пустой токен — аноним без ошибки.
type Authenticator interface {
	Authenticate(token string) (auth.Identity, error)
}

// AuthBearer извлекает Bearer-токен из Authorization (или ?access_token= для websocket),
// проверяет его и кладёт личность в контекст. Битый токен — 401.
func AuthBearer(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := a.Authenticate(bearer(r))
			if err != nil {
				apierrors.WriteError(w, r, fmt.Errorf("%w: %w", service.ErrUnauthenticated, err))
				return
			}

			ctx := r.Context()
			if !id.Anonymous() {
				ctx, _ = log.With(ctx, "user_id", id.UserID())
			}

			next.ServeHTTP(w, r.WithContext(auth.Into(ctx, id)))
		})
	}
}

func bearer(r *http.Request) string {
	const prefix = "Bearer "

	if h := r.Header.Get("Authorization"); len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}

	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}
