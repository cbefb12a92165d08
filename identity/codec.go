package identity

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"nullchat/crypto/key_ed25519"
	"nullchat/state"
)

const codecVersion = 1

type storedKeyPair struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

type storedIdentity struct {
	V        int            `json:"v"`
	KeyPair  *storedKeyPair `json:"keyPair"`
	Username string         `json:"username"`
}

// Encode maps an identity to its storable JSON form. Key bytes are base64.
func Encode(id *state.Identity) ([]byte, error) {
	if err := id.KeyPair.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIdentity, err)
	}
	return json.Marshal(storedIdentity{
		V: codecVersion,
		KeyPair: &storedKeyPair{
			PublicKey:  base64.StdEncoding.EncodeToString(id.KeyPair.Pub),
			PrivateKey: base64.StdEncoding.EncodeToString(id.KeyPair.Priv),
		},
		Username: id.DisplayName,
	})
}

// Decode is the inverse of Encode. Both key halves must decode and match,
// otherwise ErrCorruptIdentity is returned.
func Decode(b []byte) (*state.Identity, error) {
	var stored storedIdentity
	if err := json.Unmarshal(b, &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIdentity, err)
	}
	if stored.V > codecVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptIdentity, stored.V)
	}
	if stored.KeyPair == nil || stored.Username == "" {
		return nil, fmt.Errorf("%w: incomplete record", ErrCorruptIdentity)
	}

	pub, err := base64.StdEncoding.DecodeString(stored.KeyPair.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %v", ErrCorruptIdentity, err)
	}
	priv, err := base64.StdEncoding.DecodeString(stored.KeyPair.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: private key: %v", ErrCorruptIdentity, err)
	}
	pair := key_ed25519.Pair{Priv: priv, Pub: pub}
	if err := pair.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIdentity, err)
	}
	return &state.Identity{KeyPair: pair, DisplayName: stored.Username}, nil
}
