package secretbox

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	KeySize   = 32
	NonceSize = 24
	Overhead  = secretbox.Overhead
)

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidKeySize       = errors.New("invalid key size")
	ErrInvalidNonceSize     = errors.New("invalid nonce size")
)

// NewNonce returns a fresh random nonce. Nonces are 24 bytes, large enough
// that random generation never repeats under one key in practice.
func NewNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return nonce, nil
}

// Seal encrypts and authenticates plaintext with XSalsa20-Poly1305.
func Seal(key, nonce, plaintext []byte) ([]byte, error) {
	k, n, err := arrays(key, nonce)
	if err != nil {
		return nil, err
	}
	return secretbox.Seal(nil, plaintext, n, k), nil
}

// Open authenticates and decrypts ciphertext. Any modification of the
// ciphertext, nonce or key yields ErrAuthenticationFailed and no plaintext.
func Open(key, nonce, ciphertext []byte) ([]byte, error) {
	k, n, err := arrays(key, nonce)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < Overhead {
		return nil, ErrAuthenticationFailed
	}
	plaintext, ok := secretbox.Open(nil, ciphertext, n, k)
	if !ok {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

func arrays(key, nonce []byte) (*[KeySize]byte, *[NonceSize]byte, error) {
	if len(key) != KeySize {
		return nil, nil, ErrInvalidKeySize
	}
	if len(nonce) != NonceSize {
		return nil, nil, ErrInvalidNonceSize
	}
	var k [KeySize]byte
	var n [NonceSize]byte
	copy(k[:], key)
	copy(n[:], nonce)
	return &k, &n, nil
}
