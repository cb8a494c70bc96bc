package live

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultItemsPerPage — размер страницы по умолчанию.
const DefaultItemsPerPage = 5

// FeedConfig — параметры живой постраничной ленты.
type FeedConfig struct {
	// Publication — имя публикации.
	Publication string
	// Counter — имя серверного счётчика общего числа элементов; "" — без счётчика.
	Counter string
	// Scope — дополнительный ключ области кэша.
	Scope string
	// Args — аргументы публикации; nil означает [opts].
	Args ArgsFunc
	// PaginationID — id виджета пагинации; "" — Paginator.DefaultID().
	PaginationID string
	// ItemsPerPage — начальный размер страницы; 0 — DefaultItemsPerPage.
	ItemsPerPage int
	// SubscribeTimeout — предельное ожидание готовности регистрации; 0 — без ограничения.
	SubscribeTimeout time.Duration
}

// FeedDeps — внешние зависимости ленты. Cache и Logger опциональны.
type FeedDeps[T Document] struct {
	Subscriber Subscriber[T]
	Counters   Counters
	Paginator  Paginator
	Accounts   Accounts
	Identity   Identity
	Cache      *Cache[T]
	Logger     *slog.Logger
}

// Feed — координатор одной постраничной живой выборки.
//
// Всё состояние ленты принадлежит одной горутине-циклу: входные сигналы,
// готовность регистраций и изменения данных приходят к ней сообщениями.
// Пачка входных сигналов, накопившихся до обработки, даёт одну регистрацию.
type Feed[T Document] struct {
	cfg  FeedConfig
	deps FeedDeps[T]
	log  *slog.Logger

	manager *Manager[T]
	proj    *Projection[T]
	tracker *CountTracker
	inputs  Inputs
	pageID  string

	inputCh  chan inputEvent
	readyCh  chan readyEvent
	changeCh chan struct{}

	startOnce sync.Once
	closeOnce sync.Once
	cancel    context.CancelFunc
	ctx       context.Context
	done      chan struct{}
	mu        sync.Mutex
	started   bool
	closed    bool
}

type readyEvent struct {
	gen uint64
	err error
}

// NewFeed создаёт ленту. До Start сигналы буферизуются.
func NewFeed[T Document](cfg FeedConfig, deps FeedDeps[T]) *Feed[T] {
	if cfg.ItemsPerPage <= 0 {
		cfg.ItemsPerPage = DefaultItemsPerPage
	}

	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	pageID := cfg.PaginationID
	if pageID == "" {
		pageID = deps.Paginator.DefaultID()
	}

	ctx, cancel := context.WithCancel(context.Background())

	f := &Feed[T]{
		cfg:      cfg,
		deps:     deps,
		log:      log.With(slog.String("feed", cfg.Publication)),
		proj:     NewProjection[T](),
		pageID:   pageID,
		inputCh:  make(chan inputEvent, 32),
		readyCh:  make(chan readyEvent, 4),
		changeCh: make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	f.manager = NewManager(ManagerConfig{
		Name:     cfg.Publication,
		Scope:    cfg.Scope,
		Args:     cfg.Args,
		Timeout:  cfg.SubscribeTimeout,
		Counters: deps.Counters,
	}, deps.Subscriber, deps.Cache, feedListener[T]{f}, f.log)

	return f
}

// Start регистрирует виджет пагинации, запускает цикл и счётчик
// и задаёт начальные значения сигналов: размер страницы, страница 1, поиск "".
// ctx ограничивает жизнь ленты целиком.
func (f *Feed[T]) Start(ctx context.Context) error {
	err := ErrClosed

	f.startOnce.Do(func() {
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return
		}
		f.started = true
		f.mu.Unlock()

		f.deps.Paginator.Register(PaginationState{
			ID:           f.pageID,
			ItemsPerPage: f.cfg.ItemsPerPage,
			CurrentPage:  1,
			TotalItems:   0,
		})

		if f.cfg.Counter != "" && f.deps.Counters != nil {
			f.tracker = StartCountTracker(f.ctx, f.deps.Counters, f.cfg.Counter, f.deps.Paginator, f.pageID)
		}

		stop := context.AfterFunc(ctx, f.cancel)

		go f.loop(stop)

		f.SetPageSize(f.cfg.ItemsPerPage)
		f.OnPageChanged(1)
		f.SetSearchText("")

		err = nil
	})

	return err
}

// SetPageSize задаёт размер страницы.
func (f *Feed[T]) SetPageSize(n int) {
	f.push(inputEvent{kind: inputPageSize, num: n})
}

// OnPageChanged — обработчик смены страницы виджетом пагинации.
func (f *Feed[T]) OnPageChanged(page int) {
	f.push(inputEvent{kind: inputPage, num: page})
}

// SetSearchText задаёт строку поиска.
func (f *Feed[T]) SetSearchText(text string) {
	f.push(inputEvent{kind: inputSearch, text: text})
}

func (f *Feed[T]) push(ev inputEvent) {
	select {
	case f.inputCh <- ev:
	case <-f.ctx.Done():
	}
}

// Snapshot — последний снимок выборки.
func (f *Feed[T]) Snapshot() View[T] {
	return f.proj.Snapshot()
}

// Updates — канал снимков; закрывается после Close.
func (f *Feed[T]) Updates() <-chan View[T] {
	return f.proj.Updates()
}

// PaginationID — id виджета пагинации ленты.
func (f *Feed[T]) PaginationID() string {
	return f.pageID
}

// State — состояние текущей регистрации.
func (f *Feed[T]) State() (State, error) {
	return f.manager.State()
}

// Close останавливает ленту: снимает регистрацию, счётчик и цикл.
// Повторный вызов безопасен.
func (f *Feed[T]) Close() {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		started := f.started
		f.mu.Unlock()

		f.cancel()

		if started {
			<-f.done
			return
		}

		f.manager.Close()
		f.proj.close()
		close(f.done)
	})
}

// Done закрывается после полной остановки ленты.
func (f *Feed[T]) Done() <-chan struct{} {
	return f.done
}

func (f *Feed[T]) loop(stop func() bool) {
	defer close(f.done)
	defer stop()
	defer f.teardown()

	for {
		select {
		case <-f.ctx.Done():
			return
		case ev := <-f.inputCh:
			f.inputs.apply(ev)
			f.drainInputs()
			f.emit()
		case r := <-f.readyCh:
			f.onReady(r)
		case <-f.changeCh:
			f.onChange()
		}
	}
}

func (f *Feed[T]) teardown() {
	f.manager.Close()

	if f.tracker != nil {
		f.tracker.Stop()
	}

	f.proj.close()
}

// drainInputs применяет все уже накопившиеся сигналы, чтобы пачка дала одну эмиссию.
func (f *Feed[T]) drainInputs() {
	for {
		select {
		case ev := <-f.inputCh:
			f.inputs.apply(ev)
		default:
			return
		}
	}
}

func (f *Feed[T]) emit() {
	if !f.inputs.Ready() {
		return
	}

	opts := f.inputs.Options()
	f.deps.Paginator.SetCurrentPage(f.pageID, opts.Page())

	err := f.manager.SetOptions(f.ctx, opts)

	prev := f.proj.Snapshot()
	state, _ := f.manager.State()
	f.proj.Publish(View[T]{
		Items:      prev.Items,
		IsAdmin:    prev.IsAdmin,
		State:      state,
		Err:        err,
		Options:    opts,
		Generation: f.manager.Generation(),
	})
}

func (f *Feed[T]) onReady(r readyEvent) {
	if r.gen != f.manager.Generation() {
		f.log.Debug("stale_ready_dropped", slog.Uint64("gen", r.gen))
		return
	}

	state, _ := f.manager.State()

	if r.err != nil {
		prev := f.proj.Snapshot()
		prev.State = state
		prev.Err = r.err
		f.proj.Publish(prev)
		f.log.Warn("subscription_failed", slog.String("err", r.err.Error()))

		return
	}

	var userID string
	if f.deps.Identity != nil {
		userID = f.deps.Identity.UserID()
	}

	isAdmin := f.deps.Accounts != nil && f.deps.Accounts.IsAdmin(userID)

	f.proj.Publish(View[T]{
		Items:      f.manager.Docs(),
		IsAdmin:    isAdmin,
		State:      state,
		Options:    f.manager.Options(),
		Generation: r.gen,
	})
}

func (f *Feed[T]) onChange() {
	state, _ := f.manager.State()
	if state != Subscribed {
		return
	}

	v := f.proj.Snapshot()
	v.Items = f.manager.Docs()
	f.proj.Publish(v)
}

type feedListener[T Document] struct {
	f *Feed[T]
}

func (l feedListener[T]) OnReady(gen uint64, err error) {
	select {
	case l.f.readyCh <- readyEvent{gen: gen, err: err}:
	case <-l.f.ctx.Done():
	}
}

func (l feedListener[T]) OnChange(uint64) {
	select {
	case l.f.changeCh <- struct{}{}:
	default:
	}
}
