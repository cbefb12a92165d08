package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"nullchat/common"
	"nullchat/configs"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	writeTimeout   = 10 * time.Second
	maxFrameSize   = 64 << 10
	maxTopicLength = 256
)

// Server is a stateless pub/sub relay. It never stores messages and never
// sees plaintext; payloads are opaque. With a redis client, publishes go
// through Redis so several relays share one topic space.
type Server struct {
	ctx       context.Context
	cancelCtx context.CancelFunc

	redisClient *redis.Client
	registry    *prometheus.Registry
	metrics     *Metrics
	logger      *logrus.Logger

	topics  map[string]map[*conn]struct{}
	conns   map[*conn]struct{}
	mutex   *sync.Mutex
	bridged chan struct{}

	// WebSocket upgrader settings
	upgrader *websocket.Upgrader
}

type conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	topics  map[string]struct{}
}

func (c *conn) write(f common.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(f)
}

// NewServer creates a relay. redisClient may be nil for a single instance.
func NewServer(ctx context.Context, redisClient *redis.Client, registry *prometheus.Registry, logger *logrus.Logger) *Server {
	ctx, cancelCtx := context.WithCancel(ctx)
	s := &Server{
		ctx:         ctx,
		cancelCtx:   cancelCtx,
		redisClient: redisClient,
		registry:    registry,
		metrics:     NewMetrics(registry),
		logger:      logger,
		topics:      make(map[string]map[*conn]struct{}),
		conns:       make(map[*conn]struct{}),
		mutex:       &sync.Mutex{},
		bridged:     make(chan struct{}),
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	if redisClient != nil {
		go s.bridge()
	} else {
		close(s.bridged)
	}
	return s
}

// Router wires the websocket, health and metrics endpoints.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(configs.WebSocketPath, s.HandleConnections)
	r.HandleFunc(configs.HealthPath, s.HandleHealth).Methods(http.MethodGet)
	r.Handle(configs.MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

// Ready is closed once the relay can deliver publishes.
func (s *Server) Ready() <-chan struct{} {
	return s.bridged
}

// Handle incoming WebSocket connections
func (s *Server) HandleConnections(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorf("Error upgrading to WebSocket: %v", err)
		return
	}
	ws.SetReadLimit(maxFrameSize)

	c := &conn{ws: ws, topics: make(map[string]struct{})}
	s.mutex.Lock()
	s.conns[c] = struct{}{}
	s.mutex.Unlock()
	s.metrics.ConnectionsActive.Inc()
	s.metrics.ConnectionsTotal.Inc()
	s.logger.Debugf("Client %s connected", r.RemoteAddr)

	defer func() {
		s.drop(c)
		ws.Close()
		s.metrics.ConnectionsActive.Dec()
		s.logger.Debugf("Client %s disconnected", r.RemoteAddr)
	}()

	for {
		var f common.Frame
		if err := ws.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warnf("Error reading frame from %s: %v", r.RemoteAddr, err)
			}
			return
		}
		s.metrics.FramesTotal.WithLabelValues(f.Op).Inc()

		if !validTopic(f.Topic) {
			s.reject(c, f, "invalid topic")
			continue
		}
		switch f.Op {
		case common.OpSubscribe:
			s.subscribe(c, f.Topic)
		case common.OpUnsubscribe:
			s.unsubscribe(c, f.Topic)
		case common.OpPublish:
			s.publish(f.Topic, f.Payload)
		default:
			s.reject(c, f, "unknown op")
		}
	}
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{"status": "ok"}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()).Err(); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "redis unavailable"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Errorf("Error encoding health response: %v", err)
	}
}

func (s *Server) Close() {
	s.cancelCtx()
	s.mutex.Lock()
	for c := range s.conns {
		c.ws.Close()
	}
	s.mutex.Unlock()
	if s.redisClient != nil {
		s.redisClient.Close()
	}
}

func (s *Server) subscribe(c *conn, topic string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.topics[topic] == nil {
		s.topics[topic] = make(map[*conn]struct{})
		s.metrics.TopicsActive.Inc()
	}
	s.topics[topic][c] = struct{}{}
	c.topics[topic] = struct{}{}
}

func (s *Server) unsubscribe(c *conn, topic string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.unsubscribeLocked(c, topic)
}

func (s *Server) unsubscribeLocked(c *conn, topic string) {
	delete(c.topics, topic)
	subs, ok := s.topics[topic]
	if !ok {
		return
	}
	delete(subs, c)
	if len(subs) == 0 {
		delete(s.topics, topic)
		s.metrics.TopicsActive.Dec()
	}
}

func (s *Server) drop(c *conn) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for topic := range c.topics {
		s.unsubscribeLocked(c, topic)
	}
	delete(s.conns, c)
}

func (s *Server) publish(topic string, payload []byte) {
	if s.redisClient == nil {
		s.deliver(topic, payload)
		return
	}
	if err := s.redisClient.Publish(s.ctx, topic, payload).Err(); err != nil {
		s.logger.Errorf("Error publishing to redis: %v", err)
		s.metrics.DeliveryErrors.Inc()
	}
}

// deliver writes payload to every local subscriber of topic, the publisher
// included.
func (s *Server) deliver(topic string, payload []byte) {
	s.mutex.Lock()
	subs := make([]*conn, 0, len(s.topics[topic]))
	for c := range s.topics[topic] {
		subs = append(subs, c)
	}
	s.mutex.Unlock()

	f := common.Frame{Op: common.OpMessage, Topic: topic, Payload: payload}
	for _, c := range subs {
		if err := c.write(f); err != nil {
			s.logger.Warnf("Error delivering message: %v", err)
			s.metrics.DeliveryErrors.Inc()
			continue
		}
		s.metrics.DeliveredTotal.Inc()
	}
}

// bridge feeds messages from Redis into local delivery.
func (s *Server) bridge() {
	ps := s.redisClient.PSubscribe(s.ctx, "*")
	defer ps.Close()
	if _, err := ps.Receive(s.ctx); err != nil {
		s.logger.Errorf("Error subscribing to redis: %v", err)
		return
	}
	close(s.bridged)

	ch := ps.Channel()
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.deliver(msg.Channel, []byte(msg.Payload))
		}
	}
}

func (s *Server) reject(c *conn, f common.Frame, reason string) {
	if err := c.write(common.Frame{Op: common.OpError, Topic: f.Topic, Error: reason}); err != nil {
		s.logger.Warnf("Error writing error frame: %v", err)
	}
}

func validTopic(topic string) bool {
	return topic != "" && len(topic) <= maxTopicLength && !strings.ContainsAny(topic, "+#*")
}
