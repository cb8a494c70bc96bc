// Package client — gRPC-клиент forum.v1.Forum для координатора живых выборок.
//
// Client реализует контракты пакета live:
//   - Caller — именованные методы (Call);
//   - Counters — счётчики публикаций; их пишет текущая регистрация live.Manager;
//   - Accounts и Identity — по claims текущего access-токена.
//
// Subscriber[T] строится функцией NewSubscriber.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	forumv1 "github.com/pribylovaa/go-blog-forum/internal/api/forumv1"
	"github.com/pribylovaa/go-blog-forum/internal/auth"
	"github.com/pribylovaa/go-blog-forum/internal/live"
	"github.com/pribylovaa/go-blog-forum/internal/pkg/redact"
)

// ErrEmptyAddr — не задан адрес сервера.
var ErrEmptyAddr = errors.New("client: empty server addr")

// Options — параметры клиента.
type Options struct {
	Addr      string
	Token     string
	UserAgent string
	// CallTimeout — дедлайн unary-вызова, если у контекста его нет.
	CallTimeout time.Duration
	// RetryInitial/RetryMax — границы экспоненциальной паузы переподключения стрима.
	RetryInitial time.Duration
	RetryMax     time.Duration
	Logger       *slog.Logger
	// DialOptions — дополнительные опции соединения (например, bufconn в тестах).
	DialOptions []grpc.DialOption
}

// Client — соединение с forum-service.
type Client struct {
	conn     *grpc.ClientConn
	api      forumv1.ForumClient
	counters *live.CounterBoard
	log      *slog.Logger
	opts     Options

	mu       sync.RWMutex
	token    string
	identity auth.Identity
}

// New создаёт клиента. Соединение устанавливается лениво, при первом вызове.
func New(opts Options) (*Client, error) {
	const op = "client/New"

	if opts.Addr == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyAddr)
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "forumctl"
	}
	if opts.RetryInitial <= 0 {
		opts.RetryInitial = 200 * time.Millisecond
	}
	if opts.RetryMax <= 0 {
		opts.RetryMax = 10 * time.Second
	}

	c := &Client{
		counters: live.NewCounterBoard(),
		log:      opts.Logger,
		opts:     opts,
	}
	c.SetToken(opts.Token)

	dial := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(
			clientWithMetadata(c.Token, opts.UserAgent),
			clientWithTimeout(opts.CallTimeout),
			clientUnaryLogging(opts.Logger),
		),
		grpc.WithChainStreamInterceptor(
			clientStreamWithMetadata(c.Token, opts.UserAgent),
		),
	}, opts.DialOptions...)

	conn, err := grpc.NewClient(opts.Addr, dial...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.conn = conn
	c.api = forumv1.NewForumClient(conn)

	return c, nil
}

// Close закрывает соединение.
func (c *Client) Close() error {
	return c.conn.Close()
}

// SetToken меняет access-токен для последующих вызовов. Пустой токен — аноним.
// Подпись не проверяется: это делает сервер.
func (c *Client) SetToken(token string) {
	var id auth.Identity
	if token != "" {
		if parsed, err := auth.ParseUnverified(token); err == nil {
			id = parsed
		} else {
			c.log.Warn("token_unreadable", slog.String("token", redact.Token(token)), slog.String("err", err.Error()))
		}
	}

	c.mu.Lock()
	c.token = token
	c.identity = id
	c.mu.Unlock()
}

// Token — текущий access-токен.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.token
}

// UserID реализует live.Identity.
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.identity.UserID()
}

// IsAdmin реализует live.Accounts. Роли известны только для текущего пользователя.
func (c *Client) IsAdmin(userID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return userID != "" && c.identity.UserID() == userID && c.identity.IsAdmin()
}

// Call реализует live.Caller.
func (c *Client) Call(ctx context.Context, method string, args []any, out any) error {
	const op = "client/Call"

	req, err := forumv1.CallRequest(method, args)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := c.api.Call(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", op, method, err)
	}

	if err := forumv1.DecodeResult(res, out); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Watch реализует live.Counters.
func (c *Client) Watch(ctx context.Context, name string) <-chan int64 {
	return c.counters.Watch(ctx, name)
}

// Set реализует live.Counters.
func (c *Client) Set(name string, value int64) {
	c.counters.Set(name, value)
}

// Counter — текущее значение счётчика.
func (c *Client) Counter(name string) int64 {
	return c.counters.Get(name)
}
