package live

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type doc struct {
	id string
	at time.Time
}

func (d doc) DocID() string      { return d.id }
func (d doc) Created() time.Time { return d.at }

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func docAt(id string, minutes int) doc {
	return doc{id: id, at: t0.Add(time.Duration(minutes) * time.Minute)}
}

type fakeHandle struct {
	ready chan error
	stops atomic.Int32
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{ready: make(chan error, 1)}
}

func (h *fakeHandle) Ready() <-chan error { return h.ready }
func (h *fakeHandle) Stop()               { h.stops.Add(1) }

type fakeReg struct {
	req  Request
	sink Sink[doc]
	h    *fakeHandle
}

// fakeSubscriber фиксирует регистрации; gate (если задан) задерживает Subscribe.
type fakeSubscriber struct {
	mu   sync.Mutex
	regs []*fakeReg
	err  error
	gate chan struct{}
	ch   chan *fakeReg
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{ch: make(chan *fakeReg, 64)}
}

func (s *fakeSubscriber) Subscribe(_ context.Context, req Request, sink Sink[doc]) (Handle, error) {
	s.mu.Lock()
	gate, err := s.gate, s.err
	s.gate = nil
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}

	if err != nil {
		return nil, err
	}

	r := &fakeReg{req: req, sink: sink, h: newFakeHandle()}

	s.mu.Lock()
	s.regs = append(s.regs, r)
	s.mu.Unlock()

	s.ch <- r

	return r.h, nil
}

func (s *fakeSubscriber) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.regs)
}

func (s *fakeSubscriber) next(t *testing.T) *fakeReg {
	t.Helper()

	select {
	case r := <-s.ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("registration expected")
		return nil
	}
}

type recordingListener struct {
	ready   chan readyEvent
	changes atomic.Int32
}

func newRecordingListener() *recordingListener {
	return &recordingListener{ready: make(chan readyEvent, 16)}
}

func (l *recordingListener) OnReady(gen uint64, err error) {
	l.ready <- readyEvent{gen: gen, err: err}
}

func (l *recordingListener) OnChange(uint64) { l.changes.Add(1) }

type fakeAccounts struct {
	admin atomic.Bool
}

func (a *fakeAccounts) IsAdmin(string) bool { return a.admin.Load() }

type fakeIdentity string

func (i fakeIdentity) UserID() string { return string(i) }

func ids(items []doc) []string {
	out := make([]string, 0, len(items))
	for _, d := range items {
		out = append(out, d.id)
	}

	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}
