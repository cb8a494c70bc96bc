package views

import (
	"context"
	"log/slog"
	"time"

	"github.com/pribylovaa/go-blog-forum/internal/live"
	"github.com/pribylovaa/go-blog-forum/internal/models"
)

// liveDocs — живая выборка без пагинации (документ поста, изображения, профиль).
type liveDocs[T live.Document] struct {
	m       *live.Manager[T]
	changes chan struct{}
	onReady func(err error)
}

func newLiveDocs[T live.Document](name, scope string, args []any, sub live.Subscriber[T], timeout time.Duration, log *slog.Logger) *liveDocs[T] {
	d := &liveDocs[T]{changes: make(chan struct{}, 1)}

	d.m = live.NewManager(live.ManagerConfig{
		Name:    name,
		Scope:   scope,
		Args:    func(models.QueryOptions) []any { return args },
		Timeout: timeout,
	}, sub, nil, d, log)

	return d
}

func (d *liveDocs[T]) start(ctx context.Context) error {
	return d.m.SetOptions(ctx, models.QueryOptions{})
}

// OnReady реализует live.Listener.
func (d *liveDocs[T]) OnReady(gen uint64, err error) {
	if gen != d.m.Generation() {
		return
	}

	if d.onReady != nil {
		d.onReady(err)
	}

	d.notify()
}

// OnChange реализует live.Listener.
func (d *liveDocs[T]) OnChange(uint64) {
	d.notify()
}

func (d *liveDocs[T]) notify() {
	select {
	case d.changes <- struct{}{}:
	default:
	}
}

func (d *liveDocs[T]) find(id string) (T, bool) {
	for _, doc := range d.m.Docs() {
		if doc.DocID() == id {
			return doc, true
		}
	}

	var zero T
	return zero, false
}

func (d *liveDocs[T]) ready() bool {
	state, _ := d.m.State()
	return state == live.Subscribed
}

func (d *liveDocs[T]) close() {
	d.m.Close()
}
