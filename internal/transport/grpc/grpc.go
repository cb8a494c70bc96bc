package grpc

import (
	"log/slog"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	health "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	forumv1 "github.com/pribylovaa/go-blog-forum/internal/api/forumv1"
	"github.com/pribylovaa/go-blog-forum/internal/interceptors"
	"github.com/pribylovaa/go-blog-forum/internal/pkg/log"
)

// Options — параметры сборки gRPC-сервера.
type Options struct {
	Env     string
	Timeout time.Duration
	Auth    interceptors.Authenticator
}

// NewServer собирает grpc.Server: цепочка интерцепторов, health, forum.v1.Forum
// и reflection в local/dev. Возвращённый health-сервер переводится в SERVING вызывающим.
func NewServer(lg *slog.Logger, opts Options, forum forumv1.ForumServer) (*grpc.Server, *health.Server) {
	grpc_prometheus.EnableHandlingTimeHistogram()

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.Recover(lg),
			interceptors.UnaryLoggingInterceptor(lg),
			interceptors.UnaryAuth(opts.Auth),
			interceptors.WithTimeout(opts.Timeout),
			grpc_prometheus.UnaryServerInterceptor,
		),
		grpc.ChainStreamInterceptor(
			interceptors.RecoverStream(lg),
			interceptors.StreamLoggingInterceptor(lg),
			interceptors.StreamAuth(opts.Auth),
			grpc_prometheus.StreamServerInterceptor,
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	forumv1.RegisterForumServer(srv, forum)

	if opts.Env == log.EnvLocal || opts.Env == log.EnvDev {
		reflection.Register(srv)
	}

	grpc_prometheus.Register(srv)

	return srv, hs
}
