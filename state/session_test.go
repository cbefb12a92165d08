package state

import (
	"sync"
	"testing"

	"nullchat/crypto/dh25519"
	"nullchat/crypto/key_ed25519"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionReset(t *testing.T) {
	s := NewSession()
	kp, err := dh25519.NewPair()
	require.NoError(t, err)

	s.SetKeyPair(kp)
	require.NoError(t, s.SetPeer(Peer{PublicKey: kp.Pub, DisplayName: "AmberHawk-7"}))
	s.SetSharedSecret([]byte("secret"))
	s.AddMessage(Message{Text: "hi", Sender: SenderMe})
	s.SetStatus(StatusConnected)

	s.Reset()

	assert.Nil(t, s.KeyPair())
	assert.Nil(t, s.Peer())
	assert.Nil(t, s.SharedSecret())
	assert.Empty(t, s.Messages())
	assert.Equal(t, StatusIdle, s.Status())
}

func TestSessionPeerIsImmutable(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.SetPeer(Peer{DisplayName: "first"}))
	assert.ErrorIs(t, s.SetPeer(Peer{DisplayName: "second"}), ErrPeerAlreadySet)
	assert.Equal(t, "first", s.Peer().DisplayName)
}

func TestSessionReturnsCopies(t *testing.T) {
	s := NewSession()
	s.SetSharedSecret([]byte{1, 2, 3})
	got := s.SharedSecret()
	got[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, s.SharedSecret())

	kp, err := dh25519.NewPair()
	require.NoError(t, err)
	s.SetKeyPair(kp)
	copied := s.KeyPair()
	copied.Wipe()
	assert.Equal(t, kp.Priv, s.KeyPair().Priv)
}

func TestSessionConcurrentAppends(t *testing.T) {
	s := NewSession()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.AddMessage(Message{Text: "out", Sender: SenderMe})
		}()
		go func() {
			defer wg.Done()
			s.AddMessage(Message{Text: "in", Sender: SenderPeer})
		}()
	}
	wg.Wait()

	msgs := s.Messages()
	assert.Len(t, msgs, 100)
	ids := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		assert.NotEmpty(t, m.ID)
		assert.False(t, m.Timestamp.IsZero())
		ids[m.ID] = struct{}{}
	}
	assert.Len(t, ids, 100)
}

func TestIdentitySignVerify(t *testing.T) {
	pair, err := key_ed25519.NewPair()
	require.NoError(t, err)
	id := &Identity{KeyPair: *pair, DisplayName: "NeonReef-311"}

	sig, err := id.Sign([]byte("hello"))
	require.NoError(t, err)
	assert.NoError(t, id.Verify([]byte("hello"), sig))
	assert.Error(t, id.Verify([]byte("bye"), sig))
}
