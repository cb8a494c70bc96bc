// errors стандартизирует ответы об ошибках HTTP-слоя forum-service.
// На вход принимается ошибка слоя сервиса, движка публикаций или gRPC-статус,
// на выход:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/go-blog-forum/internal/livequery"
	"github.com/pribylovaa/go-blog-forum/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError — единый формат для клиентов.
// Code — короткий стабильный код для машиночитаемой обработки.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку в HTTP-статус и ответ.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal;
//   - sentinel-ошибки service/livequery маппятся через их gRPC-эквивалент;
//   - gRPC-статус маппится через baseFromGRPC();
//   - прочее — 500/internal.
func ToHTTP(err error) (int, ErrorResponse) {
	httpStatus, code, msg := baseFromGRPC(Code(err))

	return httpStatus, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
		},
	}
}

// Code — gRPC-эквивалент ошибки.
func Code(err error) codes.Code {
	switch {
	case err == nil:
		return codes.Internal
	case stderrors.Is(err, service.ErrInvalidArgument), stderrors.Is(err, livequery.ErrInvalidArgs):
		return codes.InvalidArgument
	case stderrors.Is(err, service.ErrNotFound), stderrors.Is(err, livequery.ErrUnknownPublication):
		return codes.NotFound
	case stderrors.Is(err, service.ErrPermissionDenied):
		return codes.PermissionDenied
	case stderrors.Is(err, service.ErrUnauthenticated):
		return codes.Unauthenticated
	case stderrors.Is(err, service.ErrConflict):
		return codes.AlreadyExists
	case stderrors.Is(err, service.ErrUnknownMethod):
		return codes.Unimplemented
	case stderrors.Is(err, livequery.ErrClosed):
		return codes.Unavailable
	case stderrors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case stderrors.Is(err, context.Canceled):
		return codes.Canceled
	}

	if st, ok := status.FromError(err); ok {
		return st.Code()
	}

	return codes.Internal
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет статус и тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// baseFromGRPC — базовый маппинг gRPC -> HTTP/код/сообщение:
//   - InvalidArgument -> 400
//   - NotFound -> 404
//   - AlreadyExists -> 409
//   - FailedPrecondition -> 412
//   - Unauthenticated -> 401
//   - PermissionDenied -> 403
//   - ResourceExhausted -> 429
//   - Aborted -> 409
//   - Canceled -> 499
//   - DeadlineExceeded -> 504
//   - Unavailable -> 503
//   - Unimplemented -> 501
//   - прочее -> 500/internal
func baseFromGRPC(c codes.Code) (int, string, string) {
	switch c {
	case codes.InvalidArgument:
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case codes.NotFound:
		return http.StatusNotFound, "not_found", "not found"
	case codes.AlreadyExists:
		return http.StatusConflict, "already_exists", "already exists"
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed, "failed_precondition", "failed precondition"
	case codes.Unauthenticated:
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case codes.PermissionDenied:
		return http.StatusForbidden, "permission_denied", "permission denied"
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests, "resource_exhausted", "resource exhausted"
	case codes.Aborted:
		return http.StatusConflict, "aborted", "aborted"
	case codes.Canceled:
		return StatusClientClosedRequest, "canceled", "canceled"
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	case codes.Unavailable:
		return http.StatusServiceUnavailable, "unavailable", "service unavailable"
	case codes.Unimplemented:
		return http.StatusNotImplemented, "unimplemented", "unimplemented"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
