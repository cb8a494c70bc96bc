package views

import (
	"context"
	"log/slog"
	"time"

	"github.com/pribylovaa/go-blog-forum/internal/i18n"
	"github.com/pribylovaa/go-blog-forum/internal/live"
	"github.com/pribylovaa/go-blog-forum/internal/livequery"
	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/internal/service"
)

// BlogDeps — зависимости списка блога. Cache, Translator и Logger опциональны.
type BlogDeps struct {
	Subscriber live.Subscriber[models.Blog]
	Counters   live.Counters
	Paginator  live.Paginator
	Accounts   live.Accounts
	Identity   live.Identity
	Caller     live.Caller
	Cache      *live.Cache[models.Blog]
	Translator i18n.Translator
	Policy     ErrorPolicy
	Logger     *slog.Logger
	// SubscribeTimeout — предельное ожидание готовности; 0 — без ограничения.
	SubscribeTimeout time.Duration
}

// BlogView — постраничный живой список записей блога.
type BlogView struct {
	deps   BlogDeps
	feed   *live.Feed[models.Blog]
	rep    reporter
	status statusBox
}

// NewBlogView создаёт представление. Данные пойдут после Start.
func NewBlogView(deps BlogDeps) *BlogView {
	rep := newReporter(deps.Policy, deps.Translator, deps.Logger)

	feed := live.NewFeed(live.FeedConfig{
		Publication:      livequery.PubBlogs,
		Counter:          livequery.CounterBlogs,
		ItemsPerPage:     live.DefaultItemsPerPage,
		SubscribeTimeout: deps.SubscribeTimeout,
	}, live.FeedDeps[models.Blog]{
		Subscriber: deps.Subscriber,
		Counters:   deps.Counters,
		Paginator:  deps.Paginator,
		Accounts:   deps.Accounts,
		Identity:   deps.Identity,
		Cache:      deps.Cache,
		Logger:     rep.log.With(slog.String("view", "blog")),
	})

	return &BlogView{deps: deps, feed: feed, rep: rep}
}

// Start регистрирует пагинацию (5 на странице, страница 1) и открывает выборку.
func (v *BlogView) Start(ctx context.Context) error {
	return v.feed.Start(ctx)
}

// SetPageSize меняет размер страницы.
func (v *BlogView) SetPageSize(n int) {
	v.feed.SetPageSize(n)
}

// OnPageChanged переключает страницу.
func (v *BlogView) OnPageChanged(page int) {
	v.feed.OnPageChanged(page)
}

// DeleteBlog удаляет запись. nil — без вызова.
func (v *BlogView) DeleteBlog(ctx context.Context, blog *models.Blog) error {
	const op = "views/blog/DeleteBlog"

	if blog == nil {
		return nil
	}

	v.status.setError("")

	args := []any{blog.ID.String(), currentUserID(v.deps.Identity)}
	if err := v.deps.Caller.Call(ctx, service.MethodDeleteBlog, args, nil); err != nil {
		return v.rep.fail(op, err, &v.status)
	}

	return nil
}

// Blogs — записи текущей страницы, новые первыми.
func (v *BlogView) Blogs() []models.Blog {
	return v.feed.Snapshot().Items
}

// IsAdmin — признак администратора, пересчитывается при каждой готовности выборки.
func (v *BlogView) IsAdmin() bool {
	return v.feed.Snapshot().IsAdmin
}

// Snapshot — последний снимок выборки.
func (v *BlogView) Snapshot() live.View[models.Blog] {
	return v.feed.Snapshot()
}

// Updates — снимки выборки; закрывается после Close.
func (v *BlogView) Updates() <-chan live.View[models.Blog] {
	return v.feed.Updates()
}

// PaginationID — id виджета пагинации.
func (v *BlogView) PaginationID() string {
	return v.feed.PaginationID()
}

// Status — сообщения последней операции.
func (v *BlogView) Status() Status {
	return v.status.get()
}

// Close останавливает выборку и счётчик.
func (v *BlogView) Close() {
	v.feed.Close()
}
