package store

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const envelopeVersion = 1

// Tunables for scrypt key derivation.
var (
	ScryptN = 1 << 15
	ScryptR = 8
	ScryptP = 1
)

// envelope is the JSON structure stored in place of the plaintext value.
type envelope struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// Encrypted seals every value with a passphrase-derived key before handing
// it to the wrapped store. The key name is bound as associated data so a
// value cannot be replayed under another key.
type Encrypted struct {
	inner      KVStore
	passphrase string
}

func NewEncrypted(inner KVStore, passphrase string) *Encrypted {
	return &Encrypted{inner: inner, passphrase: passphrase}
}

func (s *Encrypted) Get(ctx context.Context, name string) ([]byte, bool, error) {
	b, ok, err := s.inner.Get(ctx, name)
	if err != nil || !ok {
		return nil, ok, err
	}
	pt, err := s.open(name, b)
	if err != nil {
		return nil, false, err
	}
	return pt, true, nil
}

func (s *Encrypted) Set(ctx context.Context, name string, value []byte) error {
	b, err := s.seal(name, value)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, name, b)
}

func (s *Encrypted) seal(name string, raw []byte) ([]byte, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, err
	}
	aead, err := s.aead(salt[:], ScryptN, ScryptR, ScryptP)
	if err != nil {
		return nil, err
	}
	// zero nonce; the salt makes every key single-use
	var nonce [chacha20poly1305.NonceSize]byte
	ct := aead.Seal(nil, nonce[:], raw, ad(name, salt[:]))

	return json.Marshal(envelope{
		V:      envelopeVersion,
		Salt:   salt[:],
		N:      ScryptN,
		R:      ScryptR,
		P:      ScryptP,
		Cipher: ct,
	})
}

func (s *Encrypted) open(name string, b []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, ErrWrongPassphrase
	}
	if env.V > envelopeVersion {
		return nil, fmt.Errorf("unsupported envelope version %d", env.V)
	}
	aead, err := s.aead(env.Salt, env.N, env.R, env.P)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	pt, err := aead.Open(nil, nonce[:], env.Cipher, ad(name, env.Salt))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

func (s *Encrypted) aead(salt []byte, n, r, p int) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(s.passphrase), salt, n, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	return chacha20poly1305.New(key)
}

func ad(name string, salt []byte) []byte {
	return append([]byte(name+"|"), salt...)
}

var _ KVStore = (*Encrypted)(nil)
