// Package live — координатор постраничных живых выборок.
//
// Координатор объединяет три входных сигнала (размер страницы, текущая страница,
// строка поиска) в параметры запроса, держит ровно одну живую подписку на выборку,
// отражает серверный счётчик в пагинаторе и публикует отсортированное представление.
//
// Внешний мир подключается через интерфейсы ниже; все зависимости передаются явно.
package live

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrClosed — координатор уже остановлен.
	ErrClosed = errors.New("live: closed")
	// ErrSubscribeTimeout — регистрация не стала готовой за отведённое время.
	ErrSubscribeTimeout = errors.New("live: subscribe timeout")
)

// Document — элемент живой выборки.
type Document interface {
	DocID() string
	Created() time.Time
}

// Request — именованная публикация и её аргументы.
type Request struct {
	Name string
	Args []any
}

// Sink принимает изменения выборки от удалённой стороны.
// Методы могут вызываться из любой горутины.
type Sink[T Document] interface {
	Added(doc T)
	Changed(doc T)
	Removed(id string)
	// Counter — значение именованного счётчика, пришедшее вместе с выборкой.
	Counter(name string, value int64)
}

// Handle — дескриптор одной регистрации.
//   - Ready отдаёт ровно одно значение: nil при готовности или ошибку регистрации;
//   - Stop освобождает регистрацию, повторный вызов безопасен.
type Handle interface {
	Ready() <-chan error
	Stop()
}

// Subscriber регистрирует живые выборки. Subscribe не должен блокироваться
// до готовности: о ней сообщает Handle.Ready.
type Subscriber[T Document] interface {
	Subscribe(ctx context.Context, req Request, sink Sink[T]) (Handle, error)
}

// Caller вызывает именованные удалённые методы. out может быть nil.
type Caller interface {
	Call(ctx context.Context, method string, args []any, out any) error
}

// Counters — хранилище именованных счётчиков.
//   - Watch отдаёт поток значений; первое значение — текущее (0, если счётчик ещё
//     не публиковался). Канал закрывается после отмены ctx;
//   - Set записывает значение, полученное текущей регистрацией.
type Counters interface {
	Watch(ctx context.Context, name string) <-chan int64
	Set(name string, value int64)
}

// Accounts — проверка ролей.
type Accounts interface {
	IsAdmin(userID string) bool
}

// Identity — текущий пользователь.
type Identity interface {
	UserID() string
}

// Paginator — реестр состояний виджетов пагинации.
type Paginator interface {
	Register(state PaginationState)
	SetCurrentPage(id string, page int)
	SetTotalItems(id string, total int64)
	DefaultID() string
}
