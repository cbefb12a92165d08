package channel

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"nullchat/common"
	"nullchat/crypto/dh25519"
	"nullchat/crypto/secretbox"
	"nullchat/protocol/topic"
	"nullchat/state"
	"nullchat/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

// connectedPair returns two sessions that share a secret, both connected.
func connectedPair(t *testing.T) (*state.Session, *state.Session, []byte) {
	a, err := dh25519.NewPair()
	require.NoError(t, err)
	b, err := dh25519.NewPair()
	require.NoError(t, err)
	secret, err := dh25519.GetSecret(a.Priv, b.Pub)
	require.NoError(t, err)

	sa, sb := state.NewSession(), state.NewSession()
	for _, s := range []*state.Session{sa, sb} {
		s.SetSharedSecret(secret)
		s.SetStatus(state.StatusConnected)
	}
	return sa, sb, secret
}

func peerMessages(s *state.Session) []state.Message {
	var out []state.Message
	for _, m := range s.Messages() {
		if m.Sender == state.SenderPeer {
			out = append(out, m)
		}
	}
	return out
}

func TestChannelSendReceive(t *testing.T) {
	ctx := context.Background()
	broker := transport.NewBroker()
	sa, sb, _ := connectedPair(t)

	ca := New(sa, broker.Connect(), "AmberFox-1", Options{})
	cb := New(sb, broker.Connect(), "BlueWolf-2", Options{})
	require.NoError(t, ca.Open(ctx))
	require.NoError(t, cb.Open(ctx))
	assert.Equal(t, ca.Topic(), cb.Topic())

	sent, err := ca.Send(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, state.SenderMe, sent.Sender)
	assert.NotEmpty(t, sent.ID)

	select {
	case got := <-cb.Incoming():
		assert.Equal(t, "hello", got.Text)
		assert.Equal(t, state.SenderPeer, got.Sender)
	case <-time.After(waitFor):
		t.Fatal("message not delivered")
	}

	// the sender's echo is suppressed, so A holds exactly its own copy
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, sa.Messages(), 1)
	assert.Len(t, sb.Messages(), 1)
	assert.Len(t, peerMessages(sb), 1)
	assert.Empty(t, peerMessages(sa))
}

func TestChannelSelfEchoSuppressed(t *testing.T) {
	sa, _, secret := connectedPair(t)
	c := New(sa, transport.NewBroker().Connect(), "AmberFox-1", Options{})
	require.NoError(t, c.Open(context.Background()))

	key, err := topic.ChatKey(secret)
	require.NoError(t, err)
	nonce, err := secretbox.NewNonce()
	require.NoError(t, err)
	ct, err := secretbox.Seal(key, nonce, []byte("mine"))
	require.NoError(t, err)
	env, err := json.Marshal(common.MessageEnvelope{
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
		Sender:     "AmberFox-1",
	})
	require.NoError(t, err)

	c.OnReceive(env)
	assert.Empty(t, sa.Messages())
}

func TestChannelDropsBadEnvelopes(t *testing.T) {
	sa, _, secret := connectedPair(t)
	c := New(sa, transport.NewBroker().Connect(), "AmberFox-1", Options{})
	require.NoError(t, c.Open(context.Background()))

	key, err := topic.ChatKey(secret)
	require.NoError(t, err)
	nonce, err := secretbox.NewNonce()
	require.NoError(t, err)
	ct, err := secretbox.Seal(key, nonce, []byte("hi"))
	require.NoError(t, err)
	tampered := append([]byte(nil), ct...)
	tampered[len(tampered)-1] ^= 1

	otherKey := make([]byte, secretbox.KeySize)
	foreign, err := secretbox.Seal(otherKey, nonce, []byte("hi"))
	require.NoError(t, err)

	b64 := base64.StdEncoding.EncodeToString
	envelope := func(n, c string) []byte {
		b, _ := json.Marshal(common.MessageEnvelope{Nonce: n, Ciphertext: c, Sender: "BlueWolf-2"})
		return b
	}

	tests := []struct {
		name    string
		payload []byte
	}{
		{"not json", []byte("garbage")},
		{"missing nonce", envelope("", b64(ct))},
		{"bad base64", envelope("%%%", b64(ct))},
		{"short nonce", envelope(b64(nonce[:10]), b64(ct))},
		{"tampered", envelope(b64(nonce), b64(tampered))},
		{"wrong key", envelope(b64(nonce), b64(foreign))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.OnReceive(tt.payload)
			assert.Empty(t, sa.Messages())
		})
	}

	// the channel keeps working afterwards
	c.OnReceive(envelope(b64(nonce), b64(ct)))
	require.Len(t, sa.Messages(), 1)
	assert.Equal(t, "hi", sa.Messages()[0].Text)
}

func TestChannelDuplicateDelivery(t *testing.T) {
	sa, _, secret := connectedPair(t)
	c := New(sa, transport.NewBroker().Connect(), "AmberFox-1", Options{})
	require.NoError(t, c.Open(context.Background()))

	key, err := topic.ChatKey(secret)
	require.NoError(t, err)
	nonce, err := secretbox.NewNonce()
	require.NoError(t, err)
	ct, err := secretbox.Seal(key, nonce, []byte("again"))
	require.NoError(t, err)
	env, err := json.Marshal(common.MessageEnvelope{
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
		Sender:     "BlueWolf-2",
	})
	require.NoError(t, err)

	c.OnReceive(env)
	c.OnReceive(env)
	msgs := sa.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, msgs[0].Text, msgs[1].Text)
}

func TestChannelRequiresConnected(t *testing.T) {
	ctx := context.Background()
	s := state.NewSession()
	c := New(s, transport.NewBroker().Connect(), "AmberFox-1", Options{})

	assert.ErrorIs(t, c.Open(ctx), ErrNotConnected)
	_, err := c.Send(ctx, "hello")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestChannelSendErrors(t *testing.T) {
	ctx := context.Background()
	broker := transport.NewBroker()
	sa, _, _ := connectedPair(t)
	c := New(sa, broker.Connect(), "AmberFox-1", Options{})
	require.NoError(t, c.Open(ctx))

	_, err := c.Send(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	broker.SetAvailable(false)
	_, err = c.Send(ctx, "lost")
	assert.ErrorIs(t, err, transport.ErrTransportUnavailable)
	assert.Empty(t, sa.Messages())
}

func TestChannelClose(t *testing.T) {
	ctx := context.Background()
	broker := transport.NewBroker()
	sa, _, _ := connectedPair(t)
	client := broker.Connect()
	c := New(sa, client, "AmberFox-1", Options{})
	require.NoError(t, c.Open(ctx))
	chatTopic := c.Topic()
	assert.True(t, client.Subscribed(chatTopic))

	require.NoError(t, c.Close(ctx))
	assert.False(t, client.Subscribed(chatTopic))
	assert.Empty(t, c.Topic())
	_, err := c.Send(ctx, "hello")
	assert.ErrorIs(t, err, ErrNotConnected)

	// second close is a no-op
	assert.NoError(t, c.Close(ctx))
	assert.Eventually(t, func() bool { return len(broker.Topics()) == 0 }, waitFor, tick)
}

func TestChannelNoMessagesAfterClose(t *testing.T) {
	ctx := context.Background()
	sa, _, secret := connectedPair(t)
	c := New(sa, transport.NewBroker().Connect(), "AmberFox-1", Options{})
	require.NoError(t, c.Open(ctx))

	key, err := topic.ChatKey(secret)
	require.NoError(t, err)
	nonce, err := secretbox.NewNonce()
	require.NoError(t, err)
	ct, err := secretbox.Seal(key, nonce, []byte("flood"))
	require.NoError(t, err)
	env, err := json.Marshal(common.MessageEnvelope{
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
		Sender:     "BlueWolf-2",
	})
	require.NoError(t, err)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					c.OnReceive(env)
				}
			}
		}()
	}

	assert.Eventually(t, func() bool { return len(sa.Messages()) > 0 }, waitFor, tick)
	require.NoError(t, c.Close(ctx))
	sa.Reset()
	time.Sleep(20 * time.Millisecond)
	close(stop)
	wg.Wait()

	assert.Empty(t, sa.Messages())
}
