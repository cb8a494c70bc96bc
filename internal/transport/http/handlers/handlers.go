// Package handlers — REST-эндпоинты и websocket /live forum-service.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pribylovaa/go-blog-forum/internal/live"
	"github.com/pribylovaa/go-blog-forum/internal/livequery"
	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/internal/service"
)

// Caller — реестр именованных методов.
type Caller interface {
	Call(ctx context.Context, name string, args []any) (any, error)
}

// Subscriber — движок живых публикаций.
type Subscriber interface {
	Subscribe(ctx context.Context, name string, args []any) (*livequery.Subscription, error)
}

// Options — параметры хендлеров.
type Options struct {
	// DefaultPageSize — размер страницы, если page_size не передан.
	DefaultPageSize int
	// CallTimeout — дедлайн вызова метода из websocket-сессии.
	CallTimeout time.Duration
}

// Handlers агрегирует зависимости.
type Handlers struct {
	reads   livequery.Source
	methods Caller
	engine  Subscriber
	opts    Options
}

func New(reads livequery.Source, methods Caller, engine Subscriber, opts Options) *Handlers {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 5
	}

	return &Handlers{reads: reads, methods: methods, engine: engine, opts: opts}
}

// Page — страница выдачи.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// pageOptions разбирает ?page&page_size&search в параметры запроса.
// Отсутствующие значения: page=1, page_size=DefaultPageSize.
func (h *Handlers) pageOptions(r *http.Request) (models.QueryOptions, error) {
	page, err := positiveParam(r, "page", 1)
	if err != nil {
		return models.QueryOptions{}, err
	}

	size, err := positiveParam(r, "page_size", h.opts.DefaultPageSize)
	if err != nil {
		return models.QueryOptions{}, err
	}

	return live.BuildOptions(size, page, r.URL.Query().Get("search")), nil
}

func positiveParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: %w", name, service.ErrInvalidArgument)
	}

	return n, nil
}
