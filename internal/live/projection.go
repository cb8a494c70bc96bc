package live

import (
	"sync/atomic"

	"github.com/pribylovaa/go-blog-forum/internal/models"
)

// View — снимок живой выборки для отображения.
type View[T Document] struct {
	Items      []T
	IsAdmin    bool
	State      State
	Err        error
	Options    models.QueryOptions
	Generation uint64
}

// Projection публикует снимки View. Писатель один (цикл Feed),
// читателей сколько угодно: Snapshot читает последний снимок,
// Updates отдаёт только последний непрочитанный.
type Projection[T Document] struct {
	cur     atomic.Pointer[View[T]]
	updates chan View[T]
}

// NewProjection создаёт проекцию с пустым снимком.
func NewProjection[T Document]() *Projection[T] {
	p := &Projection[T]{updates: make(chan View[T], 1)}
	p.cur.Store(&View[T]{})

	return p
}

// Publish сохраняет снимок и уведомляет подписчика Updates.
func (p *Projection[T]) Publish(v View[T]) {
	p.cur.Store(&v)
	offerLatest(p.updates, v)
}

// Snapshot возвращает последний опубликованный снимок.
func (p *Projection[T]) Snapshot() View[T] {
	return *p.cur.Load()
}

// Updates — канал снимков; закрывается при остановке Feed.
func (p *Projection[T]) Updates() <-chan View[T] {
	return p.updates
}

func (p *Projection[T]) close() {
	close(p.updates)
}
