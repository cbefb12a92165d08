// Package topic derives relay topic names and the chat key.
//
// Every value is HKDF-SHA512 output under its own info label, so the chat
// topic reveals nothing about the chat key even though both come from the
// same shared secret.
package topic

import (
	"encoding/base64"
	"errors"
	"fmt"

	"nullchat/configs"
	"nullchat/crypto/dh25519"
	"nullchat/crypto/hkdf"
)

var (
	ErrEmptySecret = errors.New("empty shared secret")
)

// Handshake returns the rendezvous topic for an ephemeral public key. Both
// sides compute it from the sharer's key.
func Handshake(namespace string, pub dh25519.PublicKey) (string, error) {
	id, err := derive(pub[:], configs.HKDFInfoHandshakeTopic)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", namespace, configs.HandshakeSegment, id), nil
}

// Chat returns the chat topic for a shared secret.
func Chat(namespace string, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	id, err := derive(secret, configs.HKDFInfoChatTopic)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", namespace, configs.ChatSegment, id), nil
}

// ChatKey returns the 32-byte symmetric chat key for a shared secret.
func ChatKey(secret []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return hkdf.New32BytesKeyFromSecret(secret, configs.HKDFInfoChatKey)
}

func derive(ikm, info []byte) (string, error) {
	b, err := hkdf.Derive(nil, ikm, info, configs.TopicIDSize)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
