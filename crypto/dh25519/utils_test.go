package dh25519

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSecretSymmetry(t *testing.T) {
	for i := 0; i < 16; i++ {
		a, err := NewPair()
		require.NoError(t, err)
		b, err := NewPair()
		require.NoError(t, err)

		ab, err := GetSecret(a.Priv, b.Pub)
		require.NoError(t, err)
		ba, err := GetSecret(b.Priv, a.Pub)
		require.NoError(t, err)

		assert.Len(t, ab, SecretSize)
		assert.Equal(t, ab, ba, "both directions of the agreement must match")
	}
}

func TestGetSecretDistinctPeers(t *testing.T) {
	a, err := NewPair()
	require.NoError(t, err)
	b, err := NewPair()
	require.NoError(t, err)
	c, err := NewPair()
	require.NoError(t, err)

	ab, err := GetSecret(a.Priv, b.Pub)
	require.NoError(t, err)
	ac, err := GetSecret(a.Priv, c.Pub)
	require.NoError(t, err)

	assert.NotEqual(t, ab, ac)
}

func TestGetSecretRejectsLowOrderPoints(t *testing.T) {
	a, err := NewPair()
	require.NoError(t, err)

	_, err = GetSecret(a.Priv, PublicKey{})
	assert.ErrorIs(t, err, ErrInvalid)

	// The point of order 1 (u = 1) yields an all-zero output.
	_, err = GetSecret(a.Priv, PublicKey{1})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestPublicKeyEncoding(t *testing.T) {
	pair, err := NewPair()
	require.NoError(t, err)

	parsed, err := ParsePublicKey(pair.Pub.String())
	require.NoError(t, err)
	assert.Equal(t, pair.Pub, parsed)

	tests := []struct {
		name string
		in   string
	}{
		{"not base64", "***"},
		{"too short", "AAAA"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePublicKey(tt.in)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestWipe(t *testing.T) {
	pair, err := NewPair()
	require.NoError(t, err)
	pair.Wipe()
	assert.Equal(t, PrivateKey{}, pair.Priv)
}
