// Package signer_schnorr signs with the identity key: Schnorr signatures
// over the Ed25519 group.
package signer_schnorr

import (
	"encoding/base64"
	"errors"
	"fmt"

	"go.dedis.ch/kyber/v4/sign/schnorr"
	"nullchat/crypto/key_ed25519"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidPublicKey = errors.New("invalid public key")
)

// SignatureSize is one encoded point followed by one encoded scalar.
var SignatureSize = key_ed25519.Suite.PointLen() + key_ed25519.Suite.ScalarLen()

// Signature text form is standard base64.
type Signature []byte

func (s Signature) String() string {
	return base64.StdEncoding.EncodeToString(s)
}

func ParseSignature(text string) (Signature, error) {
	b, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(b) != SignatureSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSignature, len(b), SignatureSize)
	}
	return Signature(b), nil
}

// ParsePublicKey decodes a base64 identity key and checks it is a point on
// the curve.
func ParsePublicKey(text string) (key_ed25519.PublicKey, error) {
	b, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	pub := key_ed25519.PublicKey(b)
	if _, err := pub.ToPoint(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return pub, nil
}

func Sign(privKey key_ed25519.PrivateKey, msg []byte) (Signature, error) {
	privScalar, err := privKey.ToScalar()
	if err != nil {
		return nil, err
	}
	sig, err := schnorr.Sign(key_ed25519.Suite, privScalar, msg)
	if err != nil {
		return nil, err
	}
	return Signature(sig), nil
}

// Verify returns ErrInvalidSignature when sig does not check out for msg,
// and ErrInvalidPublicKey when pubKey does not decode.
func Verify(pubKey key_ed25519.PublicKey, msg []byte, sig Signature) error {
	pubPoint, err := pubKey.ToPoint()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if err := schnorr.Verify(key_ed25519.Suite, pubPoint, msg, sig); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

// VerifyText checks a signature given in text form, as printed by the
// identity commands.
func VerifyText(pubKey, msg, sig string) error {
	pub, err := ParsePublicKey(pubKey)
	if err != nil {
		return err
	}
	s, err := ParseSignature(sig)
	if err != nil {
		return err
	}
	return Verify(pub, []byte(msg), s)
}
