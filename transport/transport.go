// Package transport is the publish/subscribe port used for the handshake and
// the chat. Delivery may drop, duplicate or reorder messages; callers must
// tolerate all three.
package transport

import (
	"context"
	"errors"
)

var (
	ErrTransportUnavailable = errors.New("transport unavailable")
	ErrClosed               = errors.New("transport closed")
)

// Handler receives the raw payload of one message. Handlers run on a
// transport goroutine and may call back into the transport.
type Handler func(payload []byte)

type Transport interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, topic string, h Handler) error
	Unsubscribe(ctx context.Context, topic string) error
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}
