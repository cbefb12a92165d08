package pairing

import (
	"errors"

	"nullchat/protocol/qr"
)

var (
	// ErrInvalidPayload covers unparseable QR text and unusable handshake keys.
	ErrInvalidPayload = qr.ErrInvalidPayload
	ErrExpired        = qr.ErrExpired

	ErrInvalidTransition = errors.New("invalid pairing transition")
)
