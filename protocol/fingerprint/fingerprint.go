package fingerprint

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"strings"

	"nullchat/crypto"
	"nullchat/crypto/key_ed25519"
	"nullchat/crypto/sha512"
)

const (
	safetyIterations = 5200
	safetyDigits     = 30
)

var (
	ErrInvalidLength = errors.New("invalid fingerprint length")
	ErrEmptySecret   = errors.New("empty shared secret")
)

// Fingerprint renders the first n bytes of SHA-512(secret) as uppercase hex
// pairs separated by spaces, e.g. "AB CD EF 01".
func Fingerprint(secret []byte, n int) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	if n < 1 || n > crypto.HashSize {
		return "", ErrInvalidLength
	}
	digest := sha512.Hash(secret)

	groups := make([]string, n)
	for i := 0; i < n; i++ {
		groups[i] = strings.ToUpper(hex.EncodeToString(digest[i : i+1]))
	}
	return strings.Join(groups, " "), nil
}

// SafetyNumber is a 30 digit number for a long-term identity key, iterated
// SHA-512 over the key and the display name. Shown on the identity screen so
// a user can recognise their own key across renames.
func SafetyNumber(pubKey key_ed25519.PublicKey, displayName []byte) (*[safetyDigits]int, error) {
	if len(pubKey) == 0 {
		return nil, errors.New("empty public key")
	}
	digest := append(append([]byte(nil), pubKey...), displayName...)
	hash := crypto.DefaultHashFunc()
	for i := 0; i < safetyIterations; i++ {
		if _, err := hash.Write(digest); err != nil {
			return nil, err
		}
		digest = hash.Sum(nil)
		hash.Reset()
	}

	var result [safetyDigits]int
	for i := 0; i < 6; i++ {
		chunk := digest[i*5 : (i+1)*5]
		num := binary.BigEndian.Uint64(append([]byte{0, 0, 0}, chunk...)) % 100000
		for j := 4; j >= 0; j-- {
			result[i*5+j] = int(num % 10)
			num /= 10
		}
	}
	return &result, nil
}

// FormatSafetyNumber groups the digits in blocks of five.
func FormatSafetyNumber(digits *[safetyDigits]int) string {
	var sb strings.Builder
	for i, d := range digits {
		if i > 0 && i%5 == 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(byte('0' + d))
	}
	return sb.String()
}
