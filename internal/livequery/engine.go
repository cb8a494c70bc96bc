// Package livequery — серверный движок живых публикаций.
//
// Подписка на публикацию получает начальный снимок (added...) и счётчики,
// затем ready, затем диффы (added/changed/removed) и изменившиеся счётчики после
// каждого перезапуска запроса. К ready итоговое число записей уже известно.
// Перезапуск вызывают уведомления шины по топикам публикации; всплеск
// уведомлений склеивается окном debounce.
package livequery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/pribylovaa/go-blog-forum/internal/config"
	"github.com/pribylovaa/go-blog-forum/internal/pkg/log"
	"github.com/pribylovaa/go-blog-forum/internal/pubsub"
)

var (
	// ErrUnknownPublication — публикация с таким именем не зарегистрирована.
	ErrUnknownPublication = errors.New("unknown publication")
	// ErrInvalidArgs — аргументы не подходят публикации.
	ErrInvalidArgs = errors.New("invalid publication args")
	// ErrClosed — движок остановлен.
	ErrClosed = errors.New("livequery: closed")
)

// EventType — тип события подписки.
type EventType string

const (
	EventAdded   EventType = "added"
	EventChanged EventType = "changed"
	EventRemoved EventType = "removed"
	EventReady   EventType = "ready"
	EventCounter EventType = "counter"
	// EventError завершает подписку: начальный запрос не выполнился.
	EventError EventType = "error"
)

// Event — исходящее событие. Doc — документ в JSON.
type Event struct {
	Type       EventType       `json:"type"`
	Collection string          `json:"collection,omitempty"`
	ID         string          `json:"id,omitempty"`
	Doc        json.RawMessage `json:"doc,omitempty"`
	Name       string          `json:"name,omitempty"`
	Value      int64           `json:"value"`
	Error      string          `json:"error,omitempty"`
}

// Doc — документ публикации.
type Doc interface {
	DocID() string
}

// Result — результат одного прогона запроса публикации.
type Result struct {
	Docs     []Doc
	Counters map[string]int64
}

// Publication — именованная живая выборка.
//   - Topics проверяет аргументы и возвращает топики шины, по которым запрос перезапускается;
//   - Run выполняет запрос с личностью вызывающего в ctx.
type Publication struct {
	Collection string
	Topics     func(ctx context.Context, args []any) ([]string, error)
	Run        func(ctx context.Context, args []any) (Result, error)
}

// Engine — реестр публикаций и активных подписок.
type Engine struct {
	bus      pubsub.Bus
	debounce time.Duration
	buffer   int

	mu     sync.RWMutex
	pubs   map[string]Publication
	closed bool

	sessions *xsync.Map[string, *Subscription]
}

// New создаёт движок поверх шины изменений.
func New(bus pubsub.Bus, cfg config.LiveConfig) *Engine {
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = 1
	}

	return &Engine{
		bus:      bus,
		debounce: cfg.Debounce,
		buffer:   buffer,
		pubs:     make(map[string]Publication),
		sessions: xsync.NewMap[string, *Subscription](),
	}
}

// Register добавляет или заменяет публикацию.
func (e *Engine) Register(name string, pub Publication) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pubs[name] = pub
}

// Subscribe регистрирует подписку. Ошибки аргументов возвращаются сразу;
// ошибка начального запроса приходит событием EventError.
// Подписка живёт до Stop или отмены ctx.
func (e *Engine) Subscribe(ctx context.Context, name string, args []any) (*Subscription, error) {
	const op = "livequery/engine/Subscribe"

	e.mu.RLock()
	pub, ok := e.pubs[name]
	closed := e.closed
	e.mu.RUnlock()

	if closed {
		return nil, fmt.Errorf("%s: %w", op, ErrClosed)
	}

	if !ok {
		return nil, fmt.Errorf("%s: %q: %w", op, name, ErrUnknownPublication)
	}

	topics, err := pub.Topics(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidArgs, err)
	}

	subCtx, cancel := context.WithCancel(ctx)

	notes, err := e.bus.Subscribe(subCtx, topics...)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := &Subscription{
		id:     uuid.NewString(),
		name:   name,
		args:   args,
		pub:    pub,
		engine: e,
		events: make(chan Event, e.buffer),
		cancel: cancel,
		done:   make(chan struct{}),
		docs:   make(map[string][]byte),
		counts: make(map[string]int64),
	}

	e.sessions.Store(s.id, s)

	go s.run(subCtx, notes)

	log.From(ctx).Debug("live_subscribed", slog.String("publication", name), slog.String("sub_id", s.id))

	return s, nil
}

// Sessions — число активных подписок.
func (e *Engine) Sessions() int {
	return e.sessions.Size()
}

// Publications — имена зарегистрированных публикаций.
func (e *Engine) Publications() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.pubs))
	for name := range e.pubs {
		names = append(names, name)
	}

	return names
}

// Close останавливает все подписки и дожидается их завершения.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.sessions.Range(func(_ string, s *Subscription) bool {
		s.Stop()
		return true
	})
}
