// Package views — модели представлений форума поверх координатора живых выборок.
//
// Представления не знают о транспорте: данные приходят через live.Subscriber,
// методы вызываются через live.Caller. Ошибки удалённых вызовов обрабатываются
// по ErrorPolicy, сообщения для пользователя локализуются через i18n.
package views

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/go-blog-forum/internal/i18n"
	"github.com/pribylovaa/go-blog-forum/internal/live"
)

// PostsPath — маршрут списка постов.
const PostsPath = "/posts"

var (
	// ErrInvalidForm — форма не прошла проверку, вызова не было.
	ErrInvalidForm = errors.New("views: invalid form")
	// ErrNotOpen — представление ещё не открыто.
	ErrNotOpen = errors.New("views: not open")
	// ErrAlreadyOpen — представление уже открыто.
	ErrAlreadyOpen = errors.New("views: already open")
)

// Navigator переключает маршрут приложения.
type Navigator interface {
	Navigate(path string)
}

// ErrorPolicy — обработка ошибок удалённых вызовов.
type ErrorPolicy int8

const (
	// Surface — ошибка возвращается вызывающему, локализованное сообщение сохраняется.
	Surface ErrorPolicy = iota
	// Silent — ошибка только логируется.
	Silent
)

// Status — сообщения и флаг выполнения для формы.
type Status struct {
	Error      string
	Success    string
	InProgress bool
}

// statusBox — Status под мьютексом.
type statusBox struct {
	mu sync.Mutex
	st Status
}

func (b *statusBox) get() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.st
}

func (b *statusBox) update(fn func(*Status)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	fn(&b.st)
}

func (b *statusBox) setError(msg string) {
	b.update(func(s *Status) { s.Error = msg })
}

// reporter применяет ErrorPolicy.
type reporter struct {
	policy ErrorPolicy
	tr     i18n.Translator
	log    *slog.Logger
}

func newReporter(policy ErrorPolicy, tr i18n.Translator, log *slog.Logger) reporter {
	if tr == nil {
		tr = i18n.New("")
	}
	if log == nil {
		log = slog.Default()
	}

	return reporter{policy: policy, tr: tr, log: log}
}

// fail логирует ошибку вызова и, для Surface, сохраняет сообщение и возвращает ошибку.
func (r reporter) fail(op string, err error, box *statusBox) error {
	r.log.Warn("call_failed", slog.String("op", op), slog.String("err", err.Error()))

	if r.policy == Silent {
		return nil
	}

	box.setError(r.tr.T(messageKey(err)))

	return fmt.Errorf("%s: %w", op, err)
}

// invalid сохраняет сообщение проверки формы.
func (r reporter) invalid(key string, box *statusBox) error {
	box.setError(r.tr.T(key))
	return ErrInvalidForm
}

func messageKey(err error) string {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		return i18n.AccessDenied
	case codes.NotFound:
		return i18n.NotFound
	default:
		return i18n.RequestFailed
	}
}

func currentUserID(id live.Identity) string {
	if id == nil {
		return ""
	}

	return id.UserID()
}
