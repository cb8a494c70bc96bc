package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pribylovaa/go-blog-forum/internal/livequery"
	"github.com/pribylovaa/go-blog-forum/internal/pkg/log"
	apierrors "github.com/pribylovaa/go-blog-forum/internal/transport/http/errors"
)

// Типы кадров /live.
//
// Клиент -> сервер:
//
//	{"type":"sub",   "id":"s1", "name":"blogs", "args":[...]}
//	{"type":"unsub", "id":"s1"}
//	{"type":"call",  "id":"c1", "method":"insertPostComment", "args":[...]}
//
// Сервер -> клиент:
//
//	{"type":"event",  "id":"s1", "event":{...}}      — событие подписки
//	{"type":"nosub",  "id":"s1", "error":{...}}      — подписка отклонена
//	{"type":"result", "id":"c1", "result":...}       — результат метода (или error)
//	{"type":"error",  "error":{...}}                 — кадр не разобран
const (
	FrameSub    = "sub"
	FrameUnsub  = "unsub"
	FrameCall   = "call"
	FrameEvent  = "event"
	FrameNoSub  = "nosub"
	FrameResult = "result"
	FrameError  = "error"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxFrame   = 1 << 20
)

// Frame — кадр протокола /live.
type Frame struct {
	Type   string              `json:"type"`
	ID     string              `json:"id,omitempty"`
	Name   string              `json:"name,omitempty"`
	Method string              `json:"method,omitempty"`
	Args   []any               `json:"args,omitempty"`
	Event  *livequery.Event    `json:"event,omitempty"`
	Result any                 `json:"result,omitempty"`
	Error  *apierrors.APIError `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Live — websocket /live: живые подписки и вызовы методов поверх одного соединения.
func (h *Handlers) Live(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.From(r.Context()).Warn("ws_upgrade_failed", log.Err(err))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())

	s := &wsSession{
		h:    h,
		conn: conn,
		ctx:  ctx,
		subs: make(map[string]*livequery.Subscription),
		lg:   log.From(ctx),
	}

	defer func() {
		cancel()
		s.stopAll()
		s.wg.Wait()
		_ = conn.Close()
	}()

	go s.keepalive()

	s.readLoop()
}

type wsSession struct {
	h    *Handlers
	conn *websocket.Conn
	ctx  context.Context
	lg   *slog.Logger

	writeMu sync.Mutex
	wg      sync.WaitGroup

	mu   sync.Mutex
	subs map[string]*livequery.Subscription
}

func (s *wsSession) readLoop() {
	s.conn.SetReadLimit(maxFrame)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.lg.Debug("ws_read_failed", log.Err(err))
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			s.write(Frame{Type: FrameError, Error: &apierrors.APIError{Code: "invalid_argument", Message: "malformed frame"}})
			continue
		}

		switch f.Type {
		case FrameSub:
			s.subscribe(f)
		case FrameUnsub:
			s.unsubscribe(f.ID)
		case FrameCall:
			s.wg.Add(1)
			go s.call(f)
		default:
			s.write(Frame{Type: FrameError, ID: f.ID, Error: &apierrors.APIError{Code: "invalid_argument", Message: "unknown frame type"}})
		}
	}
}

func (s *wsSession) subscribe(f Frame) {
	if f.ID == "" {
		s.write(Frame{Type: FrameNoSub, Error: &apierrors.APIError{Code: "invalid_argument", Message: "empty subscription id"}})
		return
	}

	s.mu.Lock()
	_, dup := s.subs[f.ID]
	s.mu.Unlock()

	if dup {
		s.write(Frame{Type: FrameNoSub, ID: f.ID, Error: &apierrors.APIError{Code: "already_exists", Message: "subscription id in use"}})
		return
	}

	sub, err := s.h.engine.Subscribe(s.ctx, f.Name, f.Args)
	if err != nil {
		s.write(Frame{Type: FrameNoSub, ID: f.ID, Error: apiError(err)})
		return
	}

	s.mu.Lock()
	s.subs[f.ID] = sub
	s.mu.Unlock()

	s.wg.Add(1)
	go s.forward(f.ID, sub)
}

// forward пересылает события подписки в соединение до её завершения.
func (s *wsSession) forward(id string, sub *livequery.Subscription) {
	defer s.wg.Done()

	for ev := range sub.Events() {
		if err := s.write(Frame{Type: FrameEvent, ID: id, Event: &ev}); err != nil {
			sub.Stop()
		}
	}

	s.mu.Lock()
	if s.subs[id] == sub {
		delete(s.subs, id)
	}
	s.mu.Unlock()
}

func (s *wsSession) unsubscribe(id string) {
	s.mu.Lock()
	sub, ok := s.subs[id]
	delete(s.subs, id)
	s.mu.Unlock()

	if ok {
		sub.Stop()
	}
}

func (s *wsSession) stopAll() {
	s.mu.Lock()
	subs := make([]*livequery.Subscription, 0, len(s.subs))
	for id, sub := range s.subs {
		subs = append(subs, sub)
		delete(s.subs, id)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Stop()
	}
}

func (s *wsSession) call(f Frame) {
	defer s.wg.Done()

	ctx := s.ctx
	if d := s.h.opts.CallTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	start := time.Now()
	res, err := s.h.methods.Call(ctx, f.Method, f.Args)
	observeCall(f.Method, err, time.Since(start))

	if err != nil {
		_ = s.write(Frame{Type: FrameResult, ID: f.ID, Error: apiError(err)})
		return
	}

	_ = s.write(Frame{Type: FrameResult, ID: f.ID, Result: res})
}

func (s *wsSession) write(f Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(f)
}

func (s *wsSession) keepalive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			s.writeMu.Unlock()

			if err != nil {
				return
			}
		}
	}
}

func apiError(err error) *apierrors.APIError {
	_, resp := apierrors.ToHTTP(err)
	return &resp.Error
}
