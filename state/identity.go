package state

import (
	"nullchat/crypto/key_ed25519"
	"nullchat/crypto/signer_schnorr"
)

// Identity is the long-lived device identity: a signing key pair and a
// cosmetic display name.
type Identity struct {
	KeyPair     key_ed25519.Pair
	DisplayName string
}

// Sign signs msg with the identity's private key. The pairing flow does not
// sign anything; trust in a session comes from the fingerprint comparison.
func (id *Identity) Sign(msg []byte) (signer_schnorr.Signature, error) {
	return signer_schnorr.Sign(id.KeyPair.Priv, msg)
}

// Verify checks sig over msg against the identity's public key.
func (id *Identity) Verify(msg []byte, sig signer_schnorr.Signature) error {
	return signer_schnorr.Verify(id.KeyPair.Pub, msg, sig)
}
