package transport

import (
	"context"
	"fmt"
	"sync"

	"nullchat/common"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Redis relays through Redis PUBLISH/SUBSCRIBE. Each topic gets its own
// PubSub so topics can be dropped independently.
type Redis struct {
	client *redis.Client
	logger logrus.FieldLogger

	mu   sync.Mutex
	subs map[string]*redis.PubSub
}

func NewRedis(client *redis.Client, logger logrus.FieldLogger) *Redis {
	return &Redis{
		client: client,
		logger: common.OrDiscard(logger),
		subs:   make(map[string]*redis.PubSub),
	}
}

func (r *Redis) Connect(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, topic string, h Handler) error {
	ps := r.client.Subscribe(ctx, topic)
	// wait for the subscription confirmation
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	ch := ps.Channel()

	r.mu.Lock()
	if old, ok := r.subs[topic]; ok {
		old.Close()
	}
	r.subs[topic] = ps
	r.mu.Unlock()

	go func() {
		for msg := range ch {
			h([]byte(msg.Payload))
		}
		r.logger.WithField("topic", topic).Debug("redis subscription ended")
	}()
	return nil
}

func (r *Redis) Unsubscribe(_ context.Context, topic string) error {
	r.mu.Lock()
	ps, ok := r.subs[topic]
	delete(r.subs, topic)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return ps.Close()
}

func (r *Redis) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := r.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	return nil
}

// Close drops all subscriptions. The redis client is owned by the caller.
func (r *Redis) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for topic, ps := range r.subs {
		ps.Close()
		delete(r.subs, topic)
	}
	return nil
}

var _ Transport = (*Redis)(nil)
