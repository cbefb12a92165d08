package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nullchat/common"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeTimeout = 10 * time.Second

// WebSocket talks to the nullchat relay server. The connection is dialed
// lazily by the first operation that needs it; a dropped connection is only
// noticed, and redialed, on the next Subscribe or Publish.
type WebSocket struct {
	url    string
	dialer *websocket.Dialer
	logger logrus.FieldLogger

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string]Handler
	closed   bool

	writeMu sync.Mutex
}

func NewWebSocket(url string, logger logrus.FieldLogger) *WebSocket {
	return &WebSocket{
		url:      url,
		dialer:   websocket.DefaultDialer,
		logger:   common.OrDiscard(logger),
		handlers: make(map[string]Handler),
	}
}

func (w *WebSocket) Connect(ctx context.Context) error {
	_, err := w.ensure(ctx)
	return err
}

func (w *WebSocket) Subscribe(ctx context.Context, topic string, h Handler) error {
	w.mu.Lock()
	w.handlers[topic] = h
	w.mu.Unlock()

	conn, err := w.ensure(ctx)
	if err != nil {
		return err
	}
	return w.write(conn, common.Frame{Op: common.OpSubscribe, Topic: topic})
}

func (w *WebSocket) Unsubscribe(_ context.Context, topic string) error {
	w.mu.Lock()
	delete(w.handlers, topic)
	conn := w.conn
	w.mu.Unlock()

	if conn == nil {
		return nil
	}
	return w.write(conn, common.Frame{Op: common.OpUnsubscribe, Topic: topic})
}

func (w *WebSocket) Publish(ctx context.Context, topic string, payload []byte) error {
	conn, err := w.ensure(ctx)
	if err != nil {
		return err
	}
	return w.write(conn, common.Frame{Op: common.OpPublish, Topic: topic, Payload: payload})
}

func (w *WebSocket) Close() error {
	w.mu.Lock()
	conn := w.conn
	w.conn = nil
	w.closed = true
	w.handlers = make(map[string]Handler)
	w.mu.Unlock()

	if conn == nil {
		return nil
	}
	w.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	w.writeMu.Unlock()
	return conn.Close()
}

// ensure returns the live connection, dialing and resubscribing if needed.
func (w *WebSocket) ensure(ctx context.Context) (*websocket.Conn, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrClosed
	}
	if w.conn != nil {
		return w.conn, nil
	}

	conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		w.logger.WithError(err).Warn("relay unreachable")
		return nil, fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	// The conn is cached only once every subscription is restored, so a
	// failed resubscribe leaves the next call to redial.
	for topic := range w.handlers {
		if err := w.write(conn, common.Frame{Op: common.OpSubscribe, Topic: topic}); err != nil {
			w.logger.WithError(err).Warn("resubscribe failed")
			return nil, err
		}
	}
	w.conn = conn
	w.logger.WithField("url", w.url).Debug("connected to relay")

	go w.readLoop(conn)
	return conn, nil
}

func (w *WebSocket) readLoop(conn *websocket.Conn) {
	for {
		var f common.Frame
		if err := conn.ReadJSON(&f); err != nil {
			w.mu.Lock()
			if w.conn == conn {
				w.conn = nil
			}
			closed := w.closed
			w.mu.Unlock()
			if !closed {
				w.logger.WithError(err).Warn("relay connection lost")
			}
			conn.Close()
			return
		}

		switch f.Op {
		case common.OpMessage:
			w.mu.Lock()
			h := w.handlers[f.Topic]
			w.mu.Unlock()
			if h != nil {
				h(f.Payload)
			}
		case common.OpError:
			w.logger.WithField("topic", f.Topic).Warnf("relay error: %s", f.Error)
		default:
			w.logger.WithField("op", f.Op).Debug("ignoring relay frame")
		}
	}
}

func (w *WebSocket) write(conn *websocket.Conn, f common.Frame) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(f); err != nil {
		conn.Close()
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	return nil
}

var _ Transport = (*WebSocket)(nil)
