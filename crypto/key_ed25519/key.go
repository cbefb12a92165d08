package key_ed25519

import (
	"bytes"
	"errors"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/suites"
)

type (
	// PrivateKey is a 32-byte scalar
	PrivateKey []byte
	// PublicKey is a 32-byte point
	PublicKey []byte
	Pair      struct {
		Priv PrivateKey
		Pub  PublicKey
	}
)

var (
	Suite = suites.MustFind("Ed25519") // Use the edwards25519-curve

	ErrMismatchedPair = errors.New("public key does not match private key")
)

func New() (PrivateKey, error) {
	privK := Suite.Scalar().Pick(Suite.RandomStream())
	return privK.MarshalBinary()
}

// NewPair generates a signing key pair with both halves populated.
func NewPair() (*Pair, error) {
	priv, err := New()
	if err != nil {
		return nil, err
	}
	pub, err := priv.Public()
	if err != nil {
		return nil, err
	}
	return &Pair{Priv: priv, Pub: pub}, nil
}

func (privB PrivateKey) Public() (PublicKey, error) {
	privK, err := privB.ToScalar()
	if err != nil {
		return nil, err
	}
	pubK := Suite.Point().Mul(privK, nil)
	return pubK.MarshalBinary()
}

func (privB PrivateKey) ToScalar() (kyber.Scalar, error) {
	privK := Suite.Scalar()
	if err := privK.UnmarshalBinary(privB); err != nil {
		return nil, err
	}
	return privK, nil
}

func (pubB PublicKey) ToPoint() (kyber.Point, error) {
	pubK := Suite.Point()
	if err := pubK.UnmarshalBinary(pubB); err != nil {
		return nil, err
	}
	return pubK, nil
}

func (pubB PublicKey) Equals(other PublicKey) bool {
	return bytes.Equal(pubB, other)
}

// Validate checks that both halves decode and that Pub is derived from Priv.
func (p Pair) Validate() error {
	if _, err := p.Pub.ToPoint(); err != nil {
		return err
	}
	derived, err := p.Priv.Public()
	if err != nil {
		return err
	}
	if !derived.Equals(p.Pub) {
		return ErrMismatchedPair
	}
	return nil
}
