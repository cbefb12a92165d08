package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nullchat/common"
	"nullchat/transport"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s := NewServer(context.Background(), nil, prometheus.NewRegistry(), logger)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

type inbox struct {
	mu  sync.Mutex
	got [][]byte
}

func (i *inbox) handle(p []byte) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.got = append(i.got, p)
}

func (i *inbox) len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.got)
}

func (i *inbox) at(n int) []byte {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.got[n]
}

func topicCount(s *Server) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.topics)
}

func TestRelayFanOut(t *testing.T) {
	ctx := context.Background()
	s, ts := newTestServer(t)

	a := transport.NewWebSocket(wsURL(ts), nil)
	b := transport.NewWebSocket(wsURL(ts), nil)
	t.Cleanup(func() { a.Close(); b.Close() })

	var ia, ib inbox
	require.NoError(t, a.Subscribe(ctx, "nullchat/chat/abc", ia.handle))
	require.NoError(t, b.Subscribe(ctx, "nullchat/chat/abc", ib.handle))
	assert.Eventually(t, func() bool {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		return len(s.topics["nullchat/chat/abc"]) == 2
	}, waitFor, tick)

	require.NoError(t, a.Publish(ctx, "nullchat/chat/abc", []byte(`{"x":1}`)))

	// the publisher receives its own echo
	assert.Eventually(t, func() bool { return ia.len() == 1 && ib.len() == 1 }, waitFor, tick)
	assert.Equal(t, []byte(`{"x":1}`), ib.at(0))
}

func TestRelayUnsubscribe(t *testing.T) {
	ctx := context.Background()
	s, ts := newTestServer(t)

	a := transport.NewWebSocket(wsURL(ts), nil)
	b := transport.NewWebSocket(wsURL(ts), nil)
	t.Cleanup(func() { a.Close(); b.Close() })

	var ia inbox
	require.NoError(t, a.Subscribe(ctx, "t", ia.handle))
	assert.Eventually(t, func() bool { return topicCount(s) == 1 }, waitFor, tick)

	require.NoError(t, a.Unsubscribe(ctx, "t"))
	assert.Eventually(t, func() bool { return topicCount(s) == 0 }, waitFor, tick)

	require.NoError(t, b.Publish(ctx, "t", []byte("ignored")))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, ia.len())
}

func TestRelayDropsSubscriptionsOnDisconnect(t *testing.T) {
	ctx := context.Background()
	s, ts := newTestServer(t)

	a := transport.NewWebSocket(wsURL(ts), nil)
	require.NoError(t, a.Subscribe(ctx, "one", func([]byte) {}))
	require.NoError(t, a.Subscribe(ctx, "two", func([]byte) {}))
	assert.Eventually(t, func() bool { return topicCount(s) == 2 }, waitFor, tick)

	require.NoError(t, a.Close())
	assert.Eventually(t, func() bool { return topicCount(s) == 0 }, waitFor, tick)
}

func TestRelayRejectsBadFrames(t *testing.T) {
	_, ts := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	defer conn.Close()

	tests := []struct {
		name  string
		frame common.Frame
	}{
		{"wildcard topic", common.Frame{Op: common.OpSubscribe, Topic: "nullchat/#"}},
		{"empty topic", common.Frame{Op: common.OpPublish}},
		{"unknown op", common.Frame{Op: "nope", Topic: "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.WriteJSON(tt.frame))
			var reply common.Frame
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
			require.NoError(t, conn.ReadJSON(&reply))
			assert.Equal(t, common.OpError, reply.Op)
			assert.NotEmpty(t, reply.Error)
		})
	}
}

func TestTransportUnavailable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()

	c := transport.NewWebSocket("ws://127.0.0.1:1/ws", nil)
	assert.ErrorIs(t, c.Connect(ctx), transport.ErrTransportUnavailable)
	assert.ErrorIs(t, c.Publish(ctx, "t", nil), transport.ErrTransportUnavailable)
}

func TestHealthAndMetrics(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"ok"`)

	c := transport.NewWebSocket(wsURL(ts), nil)
	require.NoError(t, c.Publish(context.Background(), "t", []byte("x")))
	defer c.Close()

	assert.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return strings.Contains(string(b), `nullchat_relay_frames_total{op="pub"} 1`) &&
			strings.Contains(string(b), "nullchat_relay_connections_active 1")
	}, waitFor, tick)
}
