package views

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pribylovaa/go-blog-forum/internal/i18n"
	"github.com/pribylovaa/go-blog-forum/internal/live"
	"github.com/pribylovaa/go-blog-forum/internal/livequery"
	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/internal/service"
)

// PostDetailDeps — зависимости страницы поста.
type PostDetailDeps struct {
	Posts      live.Subscriber[models.Post]
	Images     live.Subscriber[models.Image]
	Comments   live.Subscriber[models.PostComment]
	Counters   live.Counters
	Paginator  live.Paginator
	Accounts   live.Accounts
	Identity   live.Identity
	Caller     live.Caller
	Navigator  Navigator
	Translator i18n.Translator
	Policy     ErrorPolicy
	Logger     *slog.Logger
	// SubscribeTimeout — предельное ожидание готовности; 0 — без ограничения.
	SubscribeTimeout time.Duration
}

// CommentForm — форма нового комментария.
type CommentForm struct {
	Content string
}

// Valid — содержимое не пустое.
func (f CommentForm) Valid() bool {
	return strings.TrimSpace(f.Content) != ""
}

// PostDetailView — пост, его изображения и постраничные комментарии с поиском.
//
// Если после готовности post-detail поста нет, представление уводит на PostsPath.
type PostDetailView struct {
	deps PostDetailDeps
	rep  reporter

	mu       sync.Mutex
	postID   string
	post     *liveDocs[models.Post]
	images   *liveDocs[models.Image]
	comments *live.Feed[models.PostComment]
	form     CommentForm
	closed   bool

	status statusBox
}

// NewPostDetailView создаёт представление; выборки открывает Open.
func NewPostDetailView(deps PostDetailDeps) *PostDetailView {
	return &PostDetailView{
		deps: deps,
		rep:  newReporter(deps.Policy, deps.Translator, deps.Logger),
	}
}

// Open подписывается на images, post-detail(postID) и post-comments(postID, opts, search).
func (v *PostDetailView) Open(ctx context.Context, postID string) error {
	const op = "views/post_detail/Open"

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return fmt.Errorf("%s: %w", op, live.ErrClosed)
	}
	if v.postID != "" {
		return fmt.Errorf("%s: %w", op, ErrAlreadyOpen)
	}

	if postID == "" {
		v.navigate()
		return nil
	}

	v.postID = postID
	log := v.rep.log.With(slog.String("view", "post_detail"), slog.String("post_id", postID))

	v.images = newLiveDocs(livequery.PubImages, "", []any{}, v.deps.Images, v.deps.SubscribeTimeout, log)
	if err := v.images.start(ctx); err != nil {
		v.resetLocked()
		return fmt.Errorf("%s: images: %w", op, err)
	}

	v.post = newLiveDocs(livequery.PubPostDetail, postID, []any{postID}, v.deps.Posts, v.deps.SubscribeTimeout, log)
	post := v.post
	post.onReady = func(err error) {
		if err != nil {
			return
		}
		if _, ok := post.find(postID); !ok {
			log.Info("post_missing_redirect")
			v.navigate()
		}
	}
	if err := post.start(ctx); err != nil {
		v.resetLocked()
		return fmt.Errorf("%s: post: %w", op, err)
	}

	v.comments = live.NewFeed(live.FeedConfig{
		Publication:      livequery.PubPostComments,
		Counter:          livequery.CounterPostComments,
		Scope:            postID,
		ItemsPerPage:     live.DefaultItemsPerPage,
		SubscribeTimeout: v.deps.SubscribeTimeout,
		Args: func(opts models.QueryOptions) []any {
			return []any{postID, opts, opts.SearchText}
		},
	}, live.FeedDeps[models.PostComment]{
		Subscriber: v.deps.Comments,
		Counters:   v.deps.Counters,
		Paginator:  v.deps.Paginator,
		Accounts:   v.deps.Accounts,
		Identity:   v.deps.Identity,
		Logger:     log,
	})

	if err := v.comments.Start(ctx); err != nil {
		v.resetLocked()
		return fmt.Errorf("%s: comments: %w", op, err)
	}

	return nil
}

// resetLocked снимает уже открытые выборки после неудачного Open,
// чтобы представление можно было открыть снова.
func (v *PostDetailView) resetLocked() {
	if v.comments != nil {
		v.comments.Close()
		v.comments = nil
	}
	if v.post != nil {
		v.post.close()
		v.post = nil
	}
	if v.images != nil {
		v.images.close()
		v.images = nil
	}

	v.postID = ""
}

func (v *PostDetailView) navigate() {
	if v.deps.Navigator != nil {
		v.deps.Navigator.Navigate(PostsPath)
	}
}

func (v *PostDetailView) feed() *live.Feed[models.PostComment] {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.comments
}

// PostID — id открытого поста.
func (v *PostDetailView) PostID() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.postID
}

// Post — документ поста, если он уже пришёл.
func (v *PostDetailView) Post() (models.Post, bool) {
	v.mu.Lock()
	post, id := v.post, v.postID
	v.mu.Unlock()

	if post == nil {
		return models.Post{}, false
	}

	return post.find(id)
}

// PostReady — post-detail стал готов.
func (v *PostDetailView) PostReady() bool {
	v.mu.Lock()
	post := v.post
	v.mu.Unlock()

	return post != nil && post.ready()
}

// PostState — состояние подписки post-detail и её ошибка.
func (v *PostDetailView) PostState() (live.State, error) {
	v.mu.Lock()
	post := v.post
	v.mu.Unlock()

	if post == nil {
		return live.Unsubscribed, nil
	}

	return post.m.State()
}

// PostChanges сигналит об изменениях документа поста.
func (v *PostDetailView) PostChanges() <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.post == nil {
		return nil
	}

	return v.post.changes
}

// Images — изображения, известные клиенту, новые первыми.
func (v *PostDetailView) Images() []models.Image {
	v.mu.Lock()
	images := v.images
	v.mu.Unlock()

	if images == nil {
		return nil
	}

	return images.m.Docs()
}

// Comments — комментарии текущей страницы.
func (v *PostDetailView) Comments() []models.PostComment {
	if f := v.feed(); f != nil {
		return f.Snapshot().Items
	}

	return nil
}

// IsAdmin — признак администратора по последней готовности комментариев.
func (v *PostDetailView) IsAdmin() bool {
	if f := v.feed(); f != nil {
		return f.Snapshot().IsAdmin
	}

	return false
}

// Snapshot — последний снимок комментариев.
func (v *PostDetailView) Snapshot() live.View[models.PostComment] {
	if f := v.feed(); f != nil {
		return f.Snapshot()
	}

	return live.View[models.PostComment]{}
}

// Updates — снимки комментариев; nil до Open.
func (v *PostDetailView) Updates() <-chan live.View[models.PostComment] {
	if f := v.feed(); f != nil {
		return f.Updates()
	}

	return nil
}

// PaginationID — id виджета пагинации комментариев; "" до Open.
func (v *PostDetailView) PaginationID() string {
	if f := v.feed(); f != nil {
		return f.PaginationID()
	}

	return ""
}

// OnPageChanged переключает страницу комментариев.
func (v *PostDetailView) OnPageChanged(page int) {
	if f := v.feed(); f != nil {
		f.OnPageChanged(page)
	}
}

// SetSearchText задаёт строку поиска по комментариям.
func (v *PostDetailView) SetSearchText(text string) {
	if f := v.feed(); f != nil {
		f.SetSearchText(text)
	}
}

// SetComment заполняет форму комментария.
func (v *PostDetailView) SetComment(content string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.form.Content = content
}

// Form — текущее содержимое формы.
func (v *PostDetailView) Form() CommentForm {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.form
}

// Status — сообщения и флаг выполнения формы.
func (v *PostDetailView) Status() Status {
	return v.status.get()
}

// InsertPostComment отправляет форму. Невалидная форма даёт локализованное
// сообщение и ErrInvalidForm без вызова; успешный вызов сбрасывает форму.
func (v *PostDetailView) InsertPostComment(ctx context.Context) error {
	const op = "views/post_detail/InsertPostComment"

	v.status.update(func(s *Status) {
		s.Error = ""
		s.Success = ""
	})

	v.mu.Lock()
	postID, form := v.postID, v.form
	v.mu.Unlock()

	if postID == "" {
		return fmt.Errorf("%s: %w", op, ErrNotOpen)
	}

	if !form.Valid() {
		return v.rep.invalid(i18n.AllFieldsRequired, &v.status)
	}

	v.status.update(func(s *Status) { s.InProgress = true })

	args := []any{postID, form.Content, currentUserID(v.deps.Identity)}
	err := v.deps.Caller.Call(ctx, service.MethodInsertPostComment, args, nil)

	v.status.update(func(s *Status) { s.InProgress = false })

	if err != nil {
		return v.rep.fail(op, err, &v.status)
	}

	v.mu.Lock()
	v.form = CommentForm{}
	v.mu.Unlock()

	return nil
}

// DeletePostComment удаляет комментарий. nil — без вызова.
func (v *PostDetailView) DeletePostComment(ctx context.Context, c *models.PostComment) error {
	const op = "views/post_detail/DeletePostComment"

	if c == nil {
		return nil
	}

	if err := v.deps.Caller.Call(ctx, service.MethodDeletePostComment, []any{c.ID, c.Owner.String()}, nil); err != nil {
		return v.rep.fail(op, err, &v.status)
	}

	return nil
}

// SetPostCommentPrivate делает комментарий приватным. nil — без вызова.
func (v *PostDetailView) SetPostCommentPrivate(ctx context.Context, c *models.PostComment) error {
	const op = "views/post_detail/SetPostCommentPrivate"

	if c == nil {
		return nil
	}

	args := []any{c.ID, currentUserID(v.deps.Identity)}
	if err := v.deps.Caller.Call(ctx, service.MethodSetPostCommentPrivate, args, nil); err != nil {
		return v.rep.fail(op, err, &v.status)
	}

	return nil
}

// IsCurrentUser — owner совпадает с текущим пользователем.
func (v *PostDetailView) IsCurrentUser(owner string) bool {
	id := currentUserID(v.deps.Identity)
	return id != "" && id == owner
}

// Close снимает все подписки. Повторный вызов безопасен.
func (v *PostDetailView) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	post, images, comments := v.post, v.images, v.comments
	v.mu.Unlock()

	if comments != nil {
		comments.Close()
	}
	if post != nil {
		post.close()
	}
	if images != nil {
		images.close()
	}
}
