package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	forumv1 "github.com/pribylovaa/go-blog-forum/internal/api/forumv1"
	"github.com/pribylovaa/go-blog-forum/internal/live"
	"github.com/pribylovaa/go-blog-forum/internal/livequery"
)

// ErrSubscriptionFailed — сервер завершил подписку событием error.
var ErrSubscriptionFailed = errors.New("client: subscription failed")

type subscriber[T live.Document] struct {
	c *Client
}

// NewSubscriber — live.Subscriber[T] поверх стрима Subscribe.
// Документы декодируются из JSON в T, счётчики уходят в sink.Counter.
// После Stop события стрима в sink не попадают. Обрыв стрима приводит к переподключению
// с экспоненциальной паузой; после нового ready документы, пропавшие за время
// разрыва, снимаются через Removed.
func NewSubscriber[T live.Document](c *Client) live.Subscriber[T] {
	return subscriber[T]{c: c}
}

// Handle — регистрация одной подписки.
type Handle struct {
	ready    chan error
	resolved sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

// Ready реализует live.Handle.
func (h *Handle) Ready() <-chan error { return h.ready }

// Stop реализует live.Handle: не ждёт завершения стрима.
func (h *Handle) Stop() { h.cancel() }

// Done закрывается после завершения стрима.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) resolve(err error) {
	h.resolved.Do(func() { h.ready <- err })
}

func (s subscriber[T]) Subscribe(ctx context.Context, req live.Request, sink live.Sink[T]) (live.Handle, error) {
	const op = "client/subscriber/Subscribe"

	msg, err := forumv1.SubscribeRequest(req.Name, req.Args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, cancel := context.WithCancel(ctx)

	h := &Handle{
		ready:  make(chan error, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go s.run(ctx, h, req.Name, msg, sink)

	return h, nil
}

func (s subscriber[T]) run(ctx context.Context, h *Handle, name string, msg *structpb.Struct, sink live.Sink[T]) {
	defer close(h.done)
	defer func() { h.resolve(ctx.Err()) }()

	lg := s.c.log.With(slog.String("publication", name))

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.c.opts.RetryInitial
	bo.MaxInterval = s.c.opts.RetryMax

	known := make(map[string]struct{})

	for {
		synced, err := s.stream(ctx, h, msg, sink, known, lg)
		if ctx.Err() != nil {
			return
		}

		if !retryable(err) {
			lg.Warn("live_stream_closed", slog.String("err", err.Error()))
			h.resolve(err)
			return
		}

		if synced {
			bo.Reset()
		}

		wait := bo.NextBackOff()
		lg.Debug("live_stream_retry", slog.Duration("wait", wait), slog.String("err", err.Error()))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// stream держит один стрим до ошибки. known — документы, отданные sink;
// synced — стрим дошёл до ready.
func (s subscriber[T]) stream(ctx context.Context, h *Handle, msg *structpb.Struct, sink live.Sink[T], known map[string]struct{}, lg *slog.Logger) (bool, error) {
	st, err := s.c.api.Subscribe(ctx, msg)
	if err != nil {
		return false, err
	}

	fresh := make(map[string]struct{})
	synced := false

	for {
		m, err := st.Recv()
		if err != nil {
			return synced, err
		}

		if ctx.Err() != nil {
			return synced, ctx.Err()
		}

		var ev livequery.Event
		if err := forumv1.Decode(m, &ev); err != nil {
			lg.Warn("live_event_undecodable", slog.String("err", err.Error()))
			continue
		}

		switch ev.Type {
		case livequery.EventAdded, livequery.EventChanged:
			var doc T
			if err := json.Unmarshal(ev.Doc, &doc); err != nil {
				lg.Warn("live_doc_undecodable", slog.String("id", ev.ID), slog.String("err", err.Error()))
				continue
			}

			if synced {
				known[ev.ID] = struct{}{}
			} else {
				fresh[ev.ID] = struct{}{}
			}

			if ev.Type == livequery.EventAdded {
				sink.Added(doc)
			} else {
				sink.Changed(doc)
			}
		case livequery.EventRemoved:
			delete(known, ev.ID)
			delete(fresh, ev.ID)
			sink.Removed(ev.ID)
		case livequery.EventReady:
			for id := range known {
				if _, ok := fresh[id]; !ok {
					delete(known, id)
					sink.Removed(id)
				}
			}
			for id := range fresh {
				known[id] = struct{}{}
			}

			synced = true
			h.resolve(nil)
		case livequery.EventCounter:
			sink.Counter(ev.Name, ev.Value)
		case livequery.EventError:
			return synced, fmt.Errorf("%w: %s", ErrSubscriptionFailed, ev.Error)
		}
	}
}

// retryable — обрыв транспорта, после которого имеет смысл переподключиться.
func retryable(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}

	if errors.Is(err, ErrSubscriptionFailed) {
		return false
	}

	switch status.Code(err) {
	case codes.Unavailable, codes.Unknown, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal:
		return true
	default:
		return false
	}
}
