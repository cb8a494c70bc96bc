package livequery

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pribylovaa/go-blog-forum/internal/metrics"
	"github.com/pribylovaa/go-blog-forum/internal/pkg/log"
)

// Subscription — одна активная подписка.
// Состояние диффа (docs, counts) принадлежит горутине run.
type Subscription struct {
	id     string
	name   string
	args   []any
	pub    Publication
	engine *Engine

	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	docs   map[string][]byte
	counts map[string]int64
}

// ID — идентификатор подписки.
func (s *Subscription) ID() string { return s.id }

// Name — имя публикации.
func (s *Subscription) Name() string { return s.name }

// Events — поток событий; закрывается после завершения подписки.
func (s *Subscription) Events() <-chan Event { return s.events }

// Done закрывается после завершения подписки.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Stop завершает подписку и дожидается горутины. Повторный вызов безопасен.
func (s *Subscription) Stop() {
	s.once.Do(s.cancel)
	<-s.done
}

func (s *Subscription) run(ctx context.Context, notes <-chan string) {
	lg := log.From(ctx).With(slog.String("publication", s.name), slog.String("sub_id", s.id))

	metrics.SubscriptionStarted(s.name)

	var timer *time.Timer

	defer func() {
		if timer != nil {
			timer.Stop()
		}
		s.engine.sessions.Delete(s.id)
		metrics.SubscriptionStopped(s.name)
		close(s.events)
		close(s.done)
	}()

	res, err := s.pub.Run(ctx, s.args)
	metrics.Rerun(s.name, err)
	if err != nil {
		lg.Warn("live_initial_run_failed", log.Err(err))
		s.send(ctx, Event{Type: EventError, Error: err.Error()})
		return
	}

	if !s.apply(ctx, lg, res) || !s.send(ctx, Event{Type: EventReady}) {
		return
	}

	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-notes:
			if !ok {
				return
			}

			if fire == nil {
				timer = time.NewTimer(s.engine.debounce)
				fire = timer.C
			}
		case <-fire:
			fire = nil

			res, err := s.pub.Run(ctx, s.args)
			metrics.Rerun(s.name, err)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				lg.Warn("live_rerun_failed", log.Err(err))
				continue
			}

			if !s.apply(ctx, lg, res) {
				return
			}
		}
	}
}

// apply сравнивает результат с предыдущим и отправляет дифф:
// сначала removed, затем added/changed в порядке результата, затем изменившиеся счётчики.
func (s *Subscription) apply(ctx context.Context, lg *slog.Logger, res Result) bool {
	next := make(map[string][]byte, len(res.Docs))
	order := make([]string, 0, len(res.Docs))

	for _, doc := range res.Docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			lg.Error("live_encode_failed", slog.String("id", doc.DocID()), log.Err(err))
			continue
		}

		id := doc.DocID()
		if _, dup := next[id]; !dup {
			order = append(order, id)
		}
		next[id] = raw
	}

	removed := make([]string, 0)
	for id := range s.docs {
		if _, ok := next[id]; !ok {
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)

	for _, id := range removed {
		if !s.send(ctx, Event{Type: EventRemoved, Collection: s.pub.Collection, ID: id}) {
			return false
		}
	}

	for _, id := range order {
		raw := next[id]
		prev, had := s.docs[id]

		switch {
		case !had:
			if !s.send(ctx, Event{Type: EventAdded, Collection: s.pub.Collection, ID: id, Doc: raw}) {
				return false
			}
		case !bytes.Equal(prev, raw):
			if !s.send(ctx, Event{Type: EventChanged, Collection: s.pub.Collection, ID: id, Doc: raw}) {
				return false
			}
		}
	}

	s.docs = next

	names := make([]string, 0, len(res.Counters))
	for name := range res.Counters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := res.Counters[name]
		if prev, ok := s.counts[name]; ok && prev == value {
			continue
		}

		if !s.send(ctx, Event{Type: EventCounter, Name: name, Value: value}) {
			return false
		}
		s.counts[name] = value
	}

	return true
}

// send блокируется, пока потребитель не заберёт событие или подписка не завершится.
func (s *Subscription) send(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		metrics.EventSent(s.name, string(ev.Type))
		return true
	case <-ctx.Done():
		return false
	}
}
