package sensorsim

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 32
)

// Hub relays messages to every subscriber of a session's group, the way the
// backend's channel layer fans out sensor progress.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu     sync.Mutex
	groups map[string]map[*subscriber]struct{}
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// offer queues data without blocking. It reports false when the queue is
// full or the subscriber has gone.
func (s *subscriber) offer(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
		groups: make(map[string]map[*subscriber]struct{}),
	}
}

// ServeWS upgrades the request and joins the session's group.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	session := chi.URLParam(r, "sessionID")
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "session_id", session, "error", err)
		return
	}
	sub := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}
	h.join(session, sub)
	h.logger.Debug("subscriber joined", "session_id", session)

	h.deliver(sub, map[string]any{
		"type":          "connection_established",
		"message":       "Connected to biometric enrollment service",
		"enrollment_id": session,
	})

	go h.writeLoop(sub)
	// Inbound frames are ignored; reading detects the peer going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.leave(session, sub)
	h.logger.Debug("subscriber left", "session_id", session)
}

// Publish sends msg to every subscriber of session. Slow subscribers miss
// messages rather than stall the publisher.
func (h *Hub) Publish(session string, msg any) int {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.groups[session]))
	for s := range h.groups[session] {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		h.deliver(s, msg)
	}
	return len(subs)
}

// Subscribers reports how many clients are listening on session.
func (h *Hub) Subscribers(session string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.groups[session])
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for session, subs := range h.groups {
		for s := range subs {
			s.close()
		}
		delete(h.groups, session)
	}
}

func (h *Hub) deliver(s *subscriber, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encode broadcast message", "error", err)
		return
	}
	if !s.offer(data) {
		h.logger.Warn("broadcast message dropped")
	}
}

func (h *Hub) writeLoop(s *subscriber) {
	defer s.conn.Close()
	for data := range s.send {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

func (h *Hub) join(session string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.groups[session] == nil {
		h.groups[session] = make(map[*subscriber]struct{})
	}
	h.groups[session][s] = struct{}{}
}

func (h *Hub) leave(session string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.groups[session]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.groups, session)
		}
	}
	s.close()
}
