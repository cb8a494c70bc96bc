package http

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/go-blog-forum/internal/transport/http/handlers"
	"github.com/pribylovaa/go-blog-forum/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	Auth    middleware.Authenticator
	// Ready — флаг готовности для /healthz; nil — всегда готов.
	Ready *atomic.Bool
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
// /live и пробы живут вне общего дедлайна запроса.
func NewRouter(h *handlers.Handlers, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logging(opts.Logger),
	)

	root.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	root.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if opts.Ready == nil || opts.Ready.Load() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})
	root.Handle("/metrics", promhttp.Handler())

	root.Group(func(r chi.Router) {
		r.Use(middleware.AuthBearer(opts.Auth))

		r.Get("/live", h.Live)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(opts.Timeout))
			registerRoutes(r, h)
		})
	})

	return root
}

// registerRoutes — единая точка регистрации REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	r.Get("/blogs", h.ListBlogs)
	r.Get("/posts/{id}", h.GetPost)
	r.Get("/posts/{id}/comments", h.ListPostComments)
	r.Get("/users/{id}", h.GetProfile)
	r.Get("/images", h.ListImages)

	r.Post("/methods/{name}", h.CallMethod)
}
