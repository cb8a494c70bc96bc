// Реализация gRPC-эндпоинтов forum.v1.Forum.
//
// Маппинг ошибок сервиса и движка публикаций в коды gRPC:
//
//	service.ErrInvalidArgument        -> codes.InvalidArgument
//	service.ErrNotFound               -> codes.NotFound
//	service.ErrPermissionDenied       -> codes.PermissionDenied
//	service.ErrUnauthenticated        -> codes.Unauthenticated
//	service.ErrConflict               -> codes.AlreadyExists
//	service.ErrUnknownMethod          -> codes.Unimplemented
//	livequery.ErrUnknownPublication   -> codes.NotFound
//	livequery.ErrInvalidArgs          -> codes.InvalidArgument
//	livequery.ErrClosed               -> codes.Unavailable
//	прочее                            -> codes.Internal
package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	forumv1 "github.com/pribylovaa/go-blog-forum/internal/api/forumv1"
	"github.com/pribylovaa/go-blog-forum/internal/livequery"
	"github.com/pribylovaa/go-blog-forum/internal/metrics"
	"github.com/pribylovaa/go-blog-forum/internal/pkg/log"
	"github.com/pribylovaa/go-blog-forum/internal/service"
)

// ForumServer — gRPC-сервер forum.v1.Forum.
type ForumServer struct {
	forumv1.UnimplementedForumServer
	methods *service.Methods
	engine  *livequery.Engine
}

func NewForumServer(methods *service.Methods, engine *livequery.Engine) *ForumServer {
	return &ForumServer{methods: methods, engine: engine}
}

// Call — вызов именованного метода.
func (s *ForumServer) Call(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	const op = "transport/grpc/forum/Call"

	method := strings.TrimSpace(forumv1.String(req, forumv1.FieldMethod))
	if method == "" {
		return nil, status.Errorf(codes.InvalidArgument, "%s: empty method", op)
	}

	start := time.Now()
	res, err := s.methods.Call(ctx, method, forumv1.Args(req))
	st := toStatus(op, err)
	metrics.MethodCalled(method, st.Code().String(), time.Since(start))

	if err != nil {
		if st.Code() == codes.Internal {
			log.From(ctx).Error("method_failed", slog.String("op", op), slog.String("method", method), log.Err(err))
		}
		return nil, st.Err()
	}

	out, err := forumv1.CallResponse(res)
	if err != nil {
		log.From(ctx).Error("encode_failed", slog.String("op", op), slog.String("method", method), log.Err(err))
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return out, nil
}

// Subscribe — живая подписка: события публикации до отмены стрима.
// Ошибка начального запроса приходит событием error, после чего стрим завершается без ошибки.
func (s *ForumServer) Subscribe(req *structpb.Struct, stream forumv1.Forum_SubscribeServer) error {
	const op = "transport/grpc/forum/Subscribe"

	ctx := stream.Context()

	name := strings.TrimSpace(forumv1.String(req, forumv1.FieldName))
	if name == "" {
		return status.Errorf(codes.InvalidArgument, "%s: empty publication name", op)
	}

	sub, err := s.engine.Subscribe(ctx, name, forumv1.Args(req))
	if err != nil {
		return toStatus(op, err).Err()
	}
	defer sub.Stop()

	for ev := range sub.Events() {
		msg, err := forumv1.Object(ev)
		if err != nil {
			log.From(ctx).Error("encode_failed", slog.String("op", op), slog.String("publication", name), log.Err(err))
			return status.Error(codes.Internal, "internal server error")
		}

		if err := stream.Send(msg); err != nil {
			return err
		}
	}

	return nil
}

// toStatus переводит ошибку слоя сервиса в статус gRPC. nil -> codes.OK.
func toStatus(op string, err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}

	switch {
	case errors.Is(err, service.ErrInvalidArgument), errors.Is(err, livequery.ErrInvalidArgs):
		return status.Newf(codes.InvalidArgument, "%s: %v", op, err)
	case errors.Is(err, service.ErrNotFound), errors.Is(err, livequery.ErrUnknownPublication):
		return status.Newf(codes.NotFound, "%s: %v", op, err)
	case errors.Is(err, service.ErrPermissionDenied):
		return status.Newf(codes.PermissionDenied, "%s: %v", op, err)
	case errors.Is(err, service.ErrUnauthenticated):
		return status.Newf(codes.Unauthenticated, "%s: %v", op, err)
	case errors.Is(err, service.ErrConflict):
		return status.Newf(codes.AlreadyExists, "%s: %v", op, err)
	case errors.Is(err, service.ErrUnknownMethod):
		return status.Newf(codes.Unimplemented, "%s: %v", op, err)
	case errors.Is(err, livequery.ErrClosed):
		return status.Newf(codes.Unavailable, "%s: %v", op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return status.New(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return status.New(codes.Canceled, "canceled")
	default:
		return status.New(codes.Internal, "internal server error")
	}
}
