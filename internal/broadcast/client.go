// Package broadcast subscribes to the backend's per-session enrollment
// progress channel over WebSocket.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"attendance/internal/enrollment/models"
)

const (
	pathPattern = "/ws/biometric/enrollment/%s/"

	writeWait = 5 * time.Second
	// bufferSize covers a full capture burst so the reader never blocks the
	// socket while the consumer is busy.
	bufferSize = 32
)

// Stream is the read side of a subscription.
type Stream interface {
	Messages() <-chan []byte
	Err() error
	Close() error
}

// Dialer opens subscriptions keyed by session id.
type Dialer struct {
	baseURL string
	dialer  *websocket.Dialer
	header  http.Header
	logger  *slog.Logger
}

type Option func(*Dialer)

func WithWebsocketDialer(d *websocket.Dialer) Option {
	return func(b *Dialer) {
		b.dialer = d
	}
}

// WithHeader adds headers (cookies, origin) sent with the upgrade request.
func WithHeader(h http.Header) Option {
	return func(b *Dialer) {
		b.header = h
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Dialer) {
		b.logger = logger
	}
}

func NewDialer(baseURL string, opts ...Option) *Dialer {
	d := &Dialer{
		baseURL: strings.TrimRight(baseURL, "/"),
		dialer:  websocket.DefaultDialer,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// URL returns the channel address for session.
func (d *Dialer) URL(session models.SessionID) string {
	return d.baseURL + fmt.Sprintf(pathPattern, session)
}

// Subscribe connects to session's channel. The returned subscription reads
// until Close is called or the server goes away.
func (d *Dialer) Subscribe(ctx context.Context, session models.SessionID) (*Subscription, error) {
	conn, resp, err := d.dialer.DialContext(ctx, d.URL(session), d.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("subscribe %s: HTTP %d: %w", session, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("subscribe %s: %w", session, err)
	}
	s := &Subscription{
		session:  session,
		conn:     conn,
		messages: make(chan []byte, bufferSize),
		done:     make(chan struct{}),
		logger:   d.logger,
	}
	go s.readLoop()
	return s, nil
}

// Open is Subscribe behind the Stream interface.
func (d *Dialer) Open(ctx context.Context, session models.SessionID) (Stream, error) {
	sub, err := d.Subscribe(ctx, session)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Subscription is one open channel.
type Subscription struct {
	session  models.SessionID
	conn     *websocket.Conn
	messages chan []byte
	done     chan struct{}
	logger   *slog.Logger

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// Messages yields raw frames. It is closed when the subscription ends.
func (s *Subscription) Messages() <-chan []byte {
	return s.messages
}

// Err returns why the subscription ended, nil after a local Close.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the subscription. It is safe to call more than once.
func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		err = s.conn.Close()
	})
	return err
}

func (s *Subscription) readLoop() {
	defer close(s.messages)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !errors.Is(err, websocket.ErrCloseSent) {
					s.mu.Lock()
					s.err = err
					s.mu.Unlock()
					s.logger.Warn("enrollment channel closed", "session_id", s.session, "error", err)
				}
			}
			return
		}
		select {
		case s.messages <- data:
		case <-s.done:
			return
		}
	}
}
