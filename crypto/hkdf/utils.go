package hkdf

import (
	"errors"
	"io"

	"nullchat/crypto"

	"golang.org/x/crypto/hkdf"
)

var (
	ErrInvalidLength = errors.New("invalid hkdf output length")
)

// maxLength is the RFC 5869 limit of 255 hash blocks.
const maxLength = 255 * crypto.HashSize

// Derive runs HKDF-SHA512 over the input key material and returns length
// bytes of output. An empty salt is treated as HashLen zero bytes.
func Derive(salt, ikm, info []byte, length int) ([]byte, error) {
	if length <= 0 || length > maxLength {
		return nil, ErrInvalidLength
	}
	hkdfReader := hkdf.New(crypto.DefaultHashFunc, ikm, salt, info)

	out := make([]byte, length)
	if _, err := io.ReadFull(hkdfReader, out); err != nil {
		return nil, err
	}
	return out, nil
}

// New32BytesKeyFromSecret derives a 32-byte symmetric key from a secret
func New32BytesKeyFromSecret(secret, info []byte) ([]byte, error) {
	return Derive(nil, secret, info, crypto.KeySize)
}
