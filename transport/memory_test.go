package transport

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	got []string
}

func (r *recorder) handle(p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, string(p))
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func TestMemoryFanOutIncludesPublisher(t *testing.T) {
	ctx := context.Background()
	broker := NewBroker()
	a, b := broker.Connect(), broker.Connect()
	var ra, rb recorder

	require.NoError(t, a.Subscribe(ctx, "nullchat/chat/x", ra.handle))
	require.NoError(t, b.Subscribe(ctx, "nullchat/chat/x", rb.handle))
	require.NoError(t, a.Publish(ctx, "nullchat/chat/x", []byte("hi")))

	assert.Eventually(t, func() bool {
		return len(ra.messages()) == 1 && len(rb.messages()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryPreservesOrder(t *testing.T) {
	ctx := context.Background()
	broker := NewBroker()
	c := broker.Connect()
	var r recorder
	require.NoError(t, c.Subscribe(ctx, "t", r.handle))

	var want []string
	for i := 0; i < 20; i++ {
		want = append(want, fmt.Sprint(i))
		require.NoError(t, c.Publish(ctx, "t", []byte(fmt.Sprint(i))))
	}
	assert.Eventually(t, func() bool { return len(r.messages()) == len(want) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, want, r.messages())
}

func TestMemoryUnsubscribeFromHandler(t *testing.T) {
	ctx := context.Background()
	broker := NewBroker()
	c := broker.Connect()

	var calls int
	var mu sync.Mutex
	require.NoError(t, c.Subscribe(ctx, "t", func([]byte) {
		mu.Lock()
		calls++
		mu.Unlock()
		require.NoError(t, c.Unsubscribe(ctx, "t"))
	}))

	require.NoError(t, c.Publish(ctx, "t", []byte("1")))
	assert.Eventually(t, func() bool { return !c.Subscribed("t") }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Publish(ctx, "t", []byte("2")))

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
	assert.Empty(t, broker.Topics())
}

func TestMemoryUnavailable(t *testing.T) {
	ctx := context.Background()
	broker := NewBroker()
	c := broker.Connect()

	broker.SetAvailable(false)
	assert.ErrorIs(t, c.Connect(ctx), ErrTransportUnavailable)
	assert.ErrorIs(t, c.Subscribe(ctx, "t", func([]byte) {}), ErrTransportUnavailable)
	assert.ErrorIs(t, c.Publish(ctx, "t", nil), ErrTransportUnavailable)

	broker.SetAvailable(true)
	assert.NoError(t, c.Connect(ctx))
}

func TestMemoryClose(t *testing.T) {
	ctx := context.Background()
	broker := NewBroker()
	c := broker.Connect()
	require.NoError(t, c.Subscribe(ctx, "a", func([]byte) {}))
	require.NoError(t, c.Subscribe(ctx, "b", func([]byte) {}))
	assert.Equal(t, []string{"a", "b"}, broker.Topics())

	require.NoError(t, c.Close())
	assert.Empty(t, broker.Topics())
	assert.ErrorIs(t, c.Publish(ctx, "a", nil), ErrClosed)
}
