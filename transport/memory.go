package transport

import (
	"context"
	"sort"
	"sync"
)

const queueSize = 64

// Broker is an in-process relay. Every published message is delivered to
// all subscribers of the topic, the publisher included.
type Broker struct {
	mu        sync.Mutex
	topics    map[string]map[*MemoryClient]*subscription
	available bool
}

func NewBroker() *Broker {
	return &Broker{
		topics:    make(map[string]map[*MemoryClient]*subscription),
		available: true,
	}
}

// SetAvailable simulates the relay going away and coming back.
func (b *Broker) SetAvailable(available bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.available = available
}

// Topics lists topics with at least one subscriber.
func (b *Broker) Topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	topics := make([]string, 0, len(b.topics))
	for t := range b.topics {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// Connect returns a new client attached to the broker.
func (b *Broker) Connect() *MemoryClient {
	return &MemoryClient{broker: b, subs: make(map[string]*subscription)}
}

func (b *Broker) publish(topic string, payload []byte) error {
	b.mu.Lock()
	if !b.available {
		b.mu.Unlock()
		return ErrTransportUnavailable
	}
	subs := make([]*subscription, 0, len(b.topics[topic]))
	for _, s := range b.topics[topic] {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.deliver(append([]byte(nil), payload...))
	}
	return nil
}

// subscription delivers payloads to its handler in publish order on its
// own goroutine.
type subscription struct {
	handler Handler
	queue   chan []byte
	done    chan struct{}
	once    sync.Once
}

func newSubscription(h Handler) *subscription {
	s := &subscription{
		handler: h,
		queue:   make(chan []byte, queueSize),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case p := <-s.queue:
			select {
			case <-s.done:
				return
			default:
			}
			s.handler(p)
		}
	}
}

func (s *subscription) deliver(p []byte) {
	select {
	case s.queue <- p:
	case <-s.done:
	}
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

// MemoryClient is one connection to a Broker.
type MemoryClient struct {
	broker *Broker

	mu     sync.Mutex
	subs   map[string]*subscription
	closed bool
}

func (c *MemoryClient) Connect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.check()
}

func (c *MemoryClient) Subscribe(_ context.Context, topic string, h Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.check(); err != nil {
		return err
	}
	if old, ok := c.subs[topic]; ok {
		old.stop()
	}
	s := newSubscription(h)
	c.subs[topic] = s

	c.broker.mu.Lock()
	if c.broker.topics[topic] == nil {
		c.broker.topics[topic] = make(map[*MemoryClient]*subscription)
	}
	c.broker.topics[topic][c] = s
	c.broker.mu.Unlock()
	return nil
}

// Unsubscribe never waits for an in-flight handler, so handlers may call it.
func (c *MemoryClient) Unsubscribe(_ context.Context, topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drop(topic)
	return nil
}

func (c *MemoryClient) Publish(_ context.Context, topic string, payload []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return c.broker.publish(topic, payload)
}

func (c *MemoryClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for topic := range c.subs {
		c.drop(topic)
	}
	c.closed = true
	return nil
}

// Subscribed reports whether this client currently listens on topic.
func (c *MemoryClient) Subscribed(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[topic]
	return ok
}

func (c *MemoryClient) check() error {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	if !c.broker.available {
		return ErrTransportUnavailable
	}
	return nil
}

func (c *MemoryClient) drop(topic string) {
	s, ok := c.subs[topic]
	if !ok {
		return
	}
	s.stop()
	delete(c.subs, topic)

	c.broker.mu.Lock()
	delete(c.broker.topics[topic], c)
	if len(c.broker.topics[topic]) == 0 {
		delete(c.broker.topics, topic)
	}
	c.broker.mu.Unlock()
}

var _ Transport = (*MemoryClient)(nil)
