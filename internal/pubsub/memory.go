package pubsub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

// ErrClosed — шина закрыта.
var ErrClosed = errors.New("pubsub: closed")

// ErrInvalidTopic — пустое имя топика.
var ErrInvalidTopic = errors.New("pubsub: invalid topic")

// subscriberBuffer — ёмкость канала подписчика; при переполнении уведомление отбрасывается,
// ожидающего в канале достаточно для перечитывания.
const subscriberBuffer = 16

// Memory — шина в памяти процесса.
type Memory struct {
	topics *xsync.Map[string, *topicSubs]
	closed atomic.Bool
	wg     sync.WaitGroup
	stop   chan struct{}
	once   sync.Once
}

type topicSubs struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan string
	closed bool
}

func (s *subscriber) offer(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.ch <- topic:
	default:
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// NewMemory создаёт шину в памяти.
func NewMemory() *Memory {
	return &Memory{
		topics: xsync.NewMap[string, *topicSubs](),
		stop:   make(chan struct{}),
	}
}

// Publish реализует Bus.
func (m *Memory) Publish(_ context.Context, topic string) error {
	if m.closed.Load() {
		return ErrClosed
	}

	if !validTopic(topic) {
		return ErrInvalidTopic
	}

	t, ok := m.topics.Load(topic)
	if !ok {
		return nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	for s := range t.subs {
		s.offer(topic)
	}

	return nil
}

// Subscribe реализует Bus.
func (m *Memory) Subscribe(ctx context.Context, topics ...string) (<-chan string, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}

	for _, topic := range topics {
		if !validTopic(topic) {
			return nil, ErrInvalidTopic
		}
	}

	s := &subscriber{ch: make(chan string, subscriberBuffer)}

	for _, topic := range topics {
		t, _ := m.topics.LoadOrCompute(topic, func() (*topicSubs, bool) {
			return &topicSubs{subs: make(map[*subscriber]struct{})}, false
		})

		t.mu.Lock()
		t.subs[s] = struct{}{}
		t.mu.Unlock()
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		select {
		case <-ctx.Done():
		case <-m.stop:
		}

		m.unsubscribe(s, topics)
		s.close()
	}()

	return s.ch, nil
}

func (m *Memory) unsubscribe(s *subscriber, topics []string) {
	for _, topic := range topics {
		t, ok := m.topics.Load(topic)
		if !ok {
			continue
		}

		t.mu.Lock()
		delete(t.subs, s)
		t.mu.Unlock()
	}
}

// Subscribers — число подписчиков топика.
func (m *Memory) Subscribers(topic string) int {
	t, ok := m.topics.Load(topic)
	if !ok {
		return 0
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.subs)
}

// Close закрывает все каналы подписчиков.
func (m *Memory) Close() error {
	m.once.Do(func() {
		m.closed.Store(true)
		close(m.stop)
	})
	m.wg.Wait()

	return nil
}
