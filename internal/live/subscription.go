package live

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pribylovaa/go-blog-forum/internal/models"
)

// State — состояние менеджера подписки.
type State int8

const (
	Unsubscribed State = iota
	Subscribing
	Subscribed
)

func (s State) String() string {
	switch s {
	case Subscribing:
		return "subscribing"
	case Subscribed:
		return "subscribed"
	default:
		return "unsubscribed"
	}
}

// Listener получает уведомления менеджера. gen — поколение регистрации,
// к которому относится событие; получатель сверяет его с Manager.Generation.
type Listener interface {
	OnReady(gen uint64, err error)
	OnChange(gen uint64)
}

// ArgsFunc строит аргументы публикации из параметров запроса.
type ArgsFunc func(opts models.QueryOptions) []any

// ManagerConfig — параметры менеджера подписки.
type ManagerConfig struct {
	// Name — имя публикации.
	Name string
	// Scope — дополнительный ключ области (например, id поста).
	Scope string
	// Args — аргументы публикации; nil означает [opts].
	Args ArgsFunc
	// Timeout — предельное ожидание готовности; 0 — без ограничения.
	// По истечении регистрация снимается.
	Timeout time.Duration
	// Counters принимает счётчики текущего поколения; nil — счётчики отбрасываются.
	Counters Counters
}

// Manager держит не более одной живой регистрации на выборку.
//
// Поведение:
//   - SetOptions снимает предыдущую регистрацию, сбрасывает её область кэша
//     и только затем создаёт новую;
//   - каждая регистрация получает номер поколения; события и готовность
//     от устаревших поколений отбрасываются независимо от порядка прихода;
//   - счётчики записываются только от текущего поколения;
//   - ошибка регистрации оставляет состояние Subscribing и сохраняется в Err,
//     повторных попыток нет; по таймауту регистрация снимается;
//   - Close идемпотентен и освобождает ровно одну текущую регистрацию (или ни одной).
type Manager[T Document] struct {
	cfg      ManagerConfig
	sub      Subscriber[T]
	cache    *Cache[T]
	listener Listener
	log      *slog.Logger

	gen atomic.Uint64
	// cmu упорядочивает запись счётчиков относительно смены поколения.
	cmu sync.Mutex

	mu     sync.Mutex
	state  State
	err    error
	scope  string
	opts   models.QueryOptions
	handle Handle
	cancel context.CancelFunc
	closed bool
}

// NewManager создаёт менеджер. listener и log могут быть nil.
func NewManager[T Document](cfg ManagerConfig, sub Subscriber[T], cache *Cache[T], listener Listener, log *slog.Logger) *Manager[T] {
	if cache == nil {
		cache = NewCache[T]()
	}

	if log == nil {
		log = slog.Default()
	}

	return &Manager[T]{
		cfg:      cfg,
		sub:      sub,
		cache:    cache,
		listener: listener,
		log:      log.With(slog.String("publication", cfg.Name)),
	}
}

// SetOptions заменяет текущую регистрацию регистрацией с новыми параметрами.
// Синхронная ошибка Subscribe возвращается вызывающему и Listener не уведомляется.
func (m *Manager[T]) SetOptions(ctx context.Context, opts models.QueryOptions) error {
	const op = "live/subscription/SetOptions"

	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}

	m.releaseLocked()

	gen := m.nextGen()
	scope := m.scopeKey(opts, gen)

	m.cache.Open(scope)
	m.state = Subscribing
	m.err = nil
	m.scope = scope
	m.opts = opts

	subCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	args := []any{opts}
	if m.cfg.Args != nil {
		args = m.cfg.Args(opts)
	}

	h, err := m.sub.Subscribe(subCtx, Request{Name: m.cfg.Name, Args: args}, &genSink[T]{m: m, gen: gen, scope: scope})
	if err != nil {
		m.err = err
		cancel()
		m.cancel = nil
		m.mu.Unlock()

		m.log.Warn("subscribe_failed", slog.String("op", op), slog.Uint64("gen", gen), slog.String("err", err.Error()))

		return err
	}

	m.handle = h
	m.mu.Unlock()

	m.log.Debug("subscribe", slog.Uint64("gen", gen), slog.Int("limit", opts.Limit), slog.Int("skip", opts.Skip))

	go m.awaitReady(subCtx, gen, h)

	return nil
}

func (m *Manager[T]) awaitReady(ctx context.Context, gen uint64, h Handle) {
	var timeout <-chan time.Time
	if m.cfg.Timeout > 0 {
		t := time.NewTimer(m.cfg.Timeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case err := <-h.Ready():
		m.complete(gen, err)
	case <-timeout:
		m.complete(gen, ErrSubscribeTimeout)
	case <-ctx.Done():
	}
}

func (m *Manager[T]) complete(gen uint64, err error) {
	m.mu.Lock()

	if m.closed || gen != m.gen.Load() {
		m.mu.Unlock()
		m.log.Debug("stale_completion_dropped", slog.Uint64("gen", gen))
		return
	}

	if err != nil {
		m.err = err
		if errors.Is(err, ErrSubscribeTimeout) {
			m.releaseLocked()
		}
	} else {
		m.state = Subscribed
	}
	m.mu.Unlock()

	m.notifyReady(gen, err)
}

func (m *Manager[T]) notifyReady(gen uint64, err error) {
	if m.listener != nil {
		m.listener.OnReady(gen, err)
	}
}

// releaseLocked снимает текущую регистрацию и сбрасывает её область.
func (m *Manager[T]) releaseLocked() {
	if m.handle != nil {
		m.handle.Stop()
		m.handle = nil
	}

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	if m.scope != "" {
		m.cache.Invalidate(m.scope)
		m.scope = ""
	}
}

// Close снимает регистрацию и переводит менеджер в Unsubscribed.
func (m *Manager[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.closed = true
	m.releaseLocked()
	m.nextGen()
	m.state = Unsubscribed
}

// nextGen открывает новое поколение. После возврата счётчики прежних поколений
// не записываются.
func (m *Manager[T]) nextGen() uint64 {
	m.cmu.Lock()
	defer m.cmu.Unlock()

	return m.gen.Add(1)
}

// Generation — номер текущего поколения.
func (m *Manager[T]) Generation() uint64 {
	return m.gen.Load()
}

// State возвращает состояние и последнюю ошибку регистрации.
func (m *Manager[T]) State() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state, m.err
}

// Scope — ключ области кэша текущей регистрации.
func (m *Manager[T]) Scope() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.scope
}

// Options — параметры текущей регистрации.
func (m *Manager[T]) Options() models.QueryOptions {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.opts
}

// Docs возвращает документы текущей области, отсортированные createdAt DESC.
func (m *Manager[T]) Docs() []T {
	return m.cache.Docs(m.Scope())
}

func (m *Manager[T]) scopeKey(opts models.QueryOptions, gen uint64) string {
	return m.cfg.Name + "/" + m.cfg.Scope + "/" + opts.Key() + "#" + strconv.FormatUint(gen, 10)
}

// genSink привязывает события удалённой стороны к поколению регистрации.
type genSink[T Document] struct {
	m     *Manager[T]
	gen   uint64
	scope string
}

func (s *genSink[T]) current() bool {
	return s.m.gen.Load() == s.gen
}

func (s *genSink[T]) Added(doc T) {
	if s.current() && s.m.cache.Put(s.scope, doc) {
		s.changed()
	}
}

func (s *genSink[T]) Changed(doc T) {
	if s.current() && s.m.cache.Put(s.scope, doc) {
		s.changed()
	}
}

func (s *genSink[T]) Removed(id string) {
	if s.current() && s.m.cache.Remove(s.scope, id) {
		s.changed()
	}
}

func (s *genSink[T]) Counter(name string, value int64) {
	if s.m.cfg.Counters == nil {
		return
	}

	s.m.cmu.Lock()
	defer s.m.cmu.Unlock()

	if !s.current() {
		s.m.log.Debug("stale_counter_dropped", slog.Uint64("gen", s.gen), slog.String("counter", name))
		return
	}

	s.m.cfg.Counters.Set(name, value)
}

func (s *genSink[T]) changed() {
	if s.m.listener != nil {
		s.m.listener.OnChange(s.gen)
	}
}
