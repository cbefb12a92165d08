package dh25519

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"nullchat/crypto/memzero"

	"golang.org/x/crypto/curve25519"
)

const (
	KeySize    = curve25519.ScalarSize
	SecretSize = curve25519.PointSize
)

var (
	ErrInvalid    = errors.New("invalid input")
	ErrInvalidKey = errors.New("invalid x25519 key")
)

type (
	// PrivateKey is a clamped 32-byte X25519 scalar
	PrivateKey [KeySize]byte
	// PublicKey is a 32-byte X25519 point
	PublicKey [KeySize]byte
	Pair      struct {
		Priv PrivateKey
		Pub  PublicKey
	}
)

// NewPair returns a fresh key agreement key pair.
// The private key is clamped per RFC 7748.
func NewPair() (*Pair, error) {
	var pair Pair
	if _, err := rand.Read(pair.Priv[:]); err != nil {
		return nil, err
	}
	clamp(&pair.Priv)

	pub, err := curve25519.X25519(pair.Priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	copy(pair.Pub[:], pub)
	return &pair, nil
}

// GetSecret computes X25519(priv, pub). Both peers obtain the same value when
// each combines its own private key with the other's public key.
func GetSecret(priv PrivateKey, pub PublicKey) ([]byte, error) {
	var zero PublicKey
	if pub == zero {
		return nil, ErrInvalid
	}
	secret, err := curve25519.X25519(priv[:], pub[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return secret, nil
}

// Wipe zeroes the private half of the pair.
func (p *Pair) Wipe() {
	if p == nil {
		return
	}
	memzero.Zero(p.Priv[:])
}

// String returns the standard base64 encoding of the public key.
func (pub PublicKey) String() string {
	return base64.StdEncoding.EncodeToString(pub[:])
}

// ParsePublicKey decodes a base64 public key and checks its length.
func ParsePublicKey(s string) (PublicKey, error) {
	var pub PublicKey
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return pub, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) != KeySize {
		return pub, fmt.Errorf("%w: got %d bytes", ErrInvalidKey, len(raw))
	}
	copy(pub[:], raw)
	return pub, nil
}

func clamp(k *PrivateKey) {
	k[0] &= 248
	k[31] &= 127
	k[31] |= 64
}
