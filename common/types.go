package common

import (
	"encoding/json"
	"errors"
)

var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
)

// HandshakeEnvelope is published by the scanning side to the rendezvous
// topic of the sharing side.
type HandshakeEnvelope struct {
	PK string `json:"pk" validate:"required"`
	U  string `json:"u" validate:"required"`
}

// MessageEnvelope carries one encrypted chat message. Nonce and Ciphertext
// are standard base64 so the envelope is safe to ship as text.
type MessageEnvelope struct {
	Nonce      string `json:"nonce" validate:"required"`
	Ciphertext string `json:"ciphertext" validate:"required"`
	Sender     string `json:"sender" validate:"required"`
}

func UnmarshalHandshake(data []byte) (*HandshakeEnvelope, error) {
	var env HandshakeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrMalformedEnvelope
	}
	if env.PK == "" || env.U == "" {
		return nil, ErrMalformedEnvelope
	}
	return &env, nil
}

func UnmarshalMessage(data []byte) (*MessageEnvelope, error) {
	var env MessageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrMalformedEnvelope
	}
	if env.Nonce == "" || env.Ciphertext == "" {
		return nil, ErrMalformedEnvelope
	}
	return &env, nil
}

// Relay frame operations
const (
	OpSubscribe   = "sub"
	OpUnsubscribe = "unsub"
	OpPublish     = "pub"
	OpMessage     = "msg"
	OpError       = "err"
)

// Frame is the unit exchanged between relay clients and the relay server
// over a websocket. Payload is opaque to the relay.
type Frame struct {
	Op      string `json:"op" validate:"required"`
	Topic   string `json:"topic,omitempty"`
	Payload []byte `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}
