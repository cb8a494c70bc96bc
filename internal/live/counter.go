package live

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

// CounterBoard — реестр именованных счётчиков, реализует Counters.
// Наблюдатель всегда получает последнее значение: промежуточные могут быть пропущены.
type CounterBoard struct {
	entries *xsync.Map[string, *counterEntry]
}

type counterEntry struct {
	mu       sync.Mutex
	value    int64
	watchers map[chan int64]struct{}
}

// NewCounterBoard создаёт пустой реестр.
func NewCounterBoard() *CounterBoard {
	return &CounterBoard{entries: xsync.NewMap[string, *counterEntry]()}
}

func (b *CounterBoard) entry(name string) *counterEntry {
	e, _ := b.entries.LoadOrCompute(name, func() (*counterEntry, bool) {
		return &counterEntry{watchers: make(map[chan int64]struct{})}, false
	})

	return e
}

// Set публикует новое значение счётчика.
func (b *CounterBoard) Set(name string, v int64) {
	e := b.entry(name)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.value = v
	for ch := range e.watchers {
		offerLatest(ch, v)
	}
}

// Get возвращает текущее значение (0, если не публиковалось).
func (b *CounterBoard) Get(name string) int64 {
	e := b.entry(name)

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.value
}

// Watch реализует Counters.
func (b *CounterBoard) Watch(ctx context.Context, name string) <-chan int64 {
	e := b.entry(name)
	ch := make(chan int64, 1)

	e.mu.Lock()
	e.watchers[ch] = struct{}{}
	ch <- e.value
	e.mu.Unlock()

	go func() {
		<-ctx.Done()

		e.mu.Lock()
		delete(e.watchers, ch)
		close(ch)
		e.mu.Unlock()
	}()

	return ch
}

// offerLatest кладёт v в канал ёмкости 1, вытесняя непрочитанное значение.
func offerLatest[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}

	select {
	case ch <- v:
	default:
	}
}

// CountTracker отражает значения счётчика в пагинатор на всё время жизни представления.
type CountTracker struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// StartCountTracker подписывается на счётчик name и на каждое значение
// вызывает paginator.SetTotalItems(id, v).
func StartCountTracker(ctx context.Context, counters Counters, name string, paginator Paginator, id string) *CountTracker {
	ctx, cancel := context.WithCancel(ctx)
	t := &CountTracker{cancel: cancel, done: make(chan struct{})}

	values := counters.Watch(ctx, name)

	go func() {
		defer close(t.done)

		for v := range values {
			paginator.SetTotalItems(id, v)
		}
	}()

	return t
}

// Stop останавливает трекер и дожидается выхода горутины. Повторный вызов безопасен.
func (t *CountTracker) Stop() {
	t.once.Do(func() {
		t.cancel()
		<-t.done
	})
}
