package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/pribylovaa/go-blog-forum/internal/auth"
	"github.com/pribylovaa/go-blog-forum/internal/config"
	"github.com/pribylovaa/go-blog-forum/internal/livequery"
	logx "github.com/pribylovaa/go-blog-forum/internal/pkg/log"
	"github.com/pribylovaa/go-blog-forum/internal/pubsub"
	"github.com/pribylovaa/go-blog-forum/internal/service"
	"github.com/pribylovaa/go-blog-forum/internal/storage/minio"
	"github.com/pribylovaa/go-blog-forum/internal/storage/mongo"
	"github.com/pribylovaa/go-blog-forum/internal/storage/postgres"
	forumgrpc "github.com/pribylovaa/go-blog-forum/internal/transport/grpc"
	forumhttp "github.com/pribylovaa/go-blog-forum/internal/transport/http"
	"github.com/pribylovaa/go-blog-forum/internal/transport/http/handlers"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := logx.Setup(cfg.Env, os.Stdout)
	slog.SetDefault(log)
	log.Info("starting forum-service", slog.String("env", cfg.Env))

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	if err := run(rootCtx, cfg, log); err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}

	log.Info("service_stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	defer dbCancel()

	if err := postgres.Migrate(dbCtx, cfg.Postgres.URL); err != nil {
		return err
	}
	log.Info("postgres_migrated")

	pg, err := postgres.New(dbCtx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pg.Close()
	log.Info("postgres_connected")

	mg, err := mongo.New(dbCtx, cfg.Mongo.URL)
	if err != nil {
		return err
	}
	defer func() { _ = mg.Close(context.Background()) }()
	log.Info("mongo_connected")

	objects, err := minio.New(dbCtx, cfg)
	if err != nil {
		return err
	}
	log.Info("minio_connected", slog.String("bucket", cfg.S3.Bucket))

	bus, closeBus, err := newBus(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBus()

	svc := service.New(service.Deps{
		Blogs:    pg,
		Posts:    pg,
		Comments: mg,
		Users:    pg,
		Profiles: pg,
		Objects:  objects,
		Bus:      bus,
		Tokens:   auth.NewTokens(cfg.Auth),
	}, *cfg)
	methods := service.NewMethods(svc)

	engine := livequery.New(bus, cfg.Live)
	defer engine.Close()
	livequery.RegisterForum(engine, svc)
	log.Info("service_initialized", slog.Any("publications", engine.Publications()))

	var ready atomic.Bool

	grpcServer, hs := forumgrpc.NewServer(log, forumgrpc.Options{
		Env:     cfg.Env,
		Timeout: cfg.Timeouts.Service,
		Auth:    svc,
	}, forumgrpc.NewForumServer(methods, engine))

	router := forumhttp.NewRouter(handlers.New(svc, methods, engine, handlers.Options{
		DefaultPageSize: cfg.Limits.Default,
		CallTimeout:     cfg.Timeouts.Service,
	}), forumhttp.Options{
		Logger:  log,
		Timeout: cfg.Timeouts.Service,
		Auth:    svc,
		Ready:   &ready,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPC.Addr())
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("grpc_listen_start", slog.String("addr", cfg.GRPC.Addr()))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Info("http_listen_start", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	ready.Store(true)

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown_requested")

		hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		ready.Store(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
		defer cancel()

		// Открытые Subscribe-стримы держат GracefulStop: сначала закрываем движок.
		engine.Close()

		done := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(done)
		}()

		select {
		case <-done:
			log.Info("grpc_stopped")
		case <-shutdownCtx.Done():
			log.Warn("grpc_force_stop")
			grpcServer.Stop()
		}

		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newBus — шина Redis, если задан адрес, иначе шина в памяти процесса.
func newBus(ctx context.Context, cfg *config.Config, log *slog.Logger) (pubsub.Bus, func(), error) {
	if cfg.Redis.Addr == "" {
		log.Info("bus_memory")
		bus := pubsub.NewMemory()
		return bus, func() { _ = bus.Close() }, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	bus, err := pubsub.NewRedis(ctx, rdb, cfg.Redis.Channel, log)
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}

	log.Info("bus_redis", slog.String("addr", cfg.Redis.Addr), slog.String("channel", cfg.Redis.Channel))

	return bus, func() {
		_ = bus.Close()
		_ = rdb.Close()
	}, nil
}
