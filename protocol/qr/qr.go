// Package qr builds and parses the pairing payload shown as a QR code.
//
// The payload is unsigned. Whoever can read the code can pair with it, and
// the fingerprint comparison is what detects a substituted key.
package qr

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nullchat/crypto/dh25519"
)

var (
	ErrInvalidPayload = errors.New("invalid qr payload")
	ErrExpired        = errors.New("qr payload expired")
)

// Payload is the flat JSON object encoded into the QR code.
type Payload struct {
	PK  string `json:"pk"`
	U   string `json:"u"`
	Exp int64  `json:"exp"`
}

// PublicKey decodes the ephemeral public key carried by the payload.
func (p *Payload) PublicKey() (dh25519.PublicKey, error) {
	pub, err := dh25519.ParsePublicKey(p.PK)
	if err != nil {
		return pub, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return pub, nil
}

// ExpiresAt returns the expiry as a time.
func (p *Payload) ExpiresAt() time.Time {
	return time.UnixMilli(p.Exp)
}

// Create returns the JSON text to render and the payload it encodes. The
// payload expires ttl after now.
func Create(pub dh25519.PublicKey, displayName string, ttl time.Duration, now time.Time) (string, *Payload, error) {
	p := &Payload{
		PK:  pub.String(),
		U:   displayName,
		Exp: now.Add(ttl).UnixMilli(),
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", nil, err
	}
	return string(b), p, nil
}

// Parse decodes scanned QR text. Malformed JSON, a missing key or expiry, or
// a key of the wrong size fail with ErrInvalidPayload; a payload whose
// expiry is before now fails with ErrExpired.
func Parse(data string, now time.Time) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.PK == "" || p.Exp == 0 {
		return nil, fmt.Errorf("%w: missing fields", ErrInvalidPayload)
	}
	if now.UnixMilli() > p.Exp {
		return nil, ErrExpired
	}
	if _, err := p.PublicKey(); err != nil {
		return nil, err
	}
	return &p, nil
}
