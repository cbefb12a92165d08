package state

import (
	"errors"
	"sync"
	"time"

	"nullchat/crypto/dh25519"
	"nullchat/crypto/memzero"

	"github.com/google/uuid"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusCreatedQR Status = "created_qr"
	StatusScannedQR Status = "scanned_qr"
	StatusVerifying Status = "verifying"
	StatusConnected Status = "connected"
)

type Sender string

const (
	SenderMe   Sender = "me"
	SenderPeer Sender = "peer"
)

var (
	ErrPeerAlreadySet = errors.New("peer already set for this session")
)

// Message is a chat message held only in memory.
type Message struct {
	ID        string
	Text      string
	Sender    Sender
	Timestamp time.Time
}

// Peer is what we learn about the other device during the handshake.
type Peer struct {
	PublicKey   dh25519.PublicKey
	DisplayName string
}

// Session is the volatile state of one pairing attempt and the chat that
// follows it. All methods are safe for concurrent use.
type Session struct {
	mu       sync.RWMutex
	status   Status
	keyPair  *dh25519.Pair
	peer     *Peer
	secret   []byte
	messages []Message
}

func NewSession() *Session {
	return &Session{status: StatusIdle}
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Session) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// KeyPair returns a copy of the ephemeral key pair, or nil.
func (s *Session) KeyPair() *dh25519.Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.keyPair == nil {
		return nil
	}
	kp := *s.keyPair
	return &kp
}

func (s *Session) SetKeyPair(kp *dh25519.Pair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyPair.Wipe()
	if kp == nil {
		s.keyPair = nil
		return
	}
	owned := *kp
	s.keyPair = &owned
}

// Peer returns a copy of the peer info, or nil.
func (s *Session) Peer() *Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.peer == nil {
		return nil
	}
	p := *s.peer
	return &p
}

// SetPeer records the peer. A peer is learned once per session.
func (s *Session) SetPeer(p Peer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peer != nil {
		return ErrPeerAlreadySet
	}
	s.peer = &p
	return nil
}

// SharedSecret returns a copy of the shared secret, or nil.
func (s *Session) SharedSecret() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.secret == nil {
		return nil
	}
	return append([]byte(nil), s.secret...)
}

func (s *Session) SetSharedSecret(secret []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	memzero.Zero(s.secret)
	s.secret = append([]byte(nil), secret...)
}

// AddMessage appends m, filling in ID and Timestamp when unset, and returns
// the stored message.
func (s *Session) AddMessage(m Message) Message {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	return m
}

// Messages returns a snapshot of the message list.
func (s *Session) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Message(nil), s.messages...)
}

// Reset wipes key material, forgets the peer and the messages, and returns
// the session to idle.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyPair.Wipe()
	memzero.Zero(s.secret)
	s.keyPair = nil
	s.peer = nil
	s.secret = nil
	s.messages = nil
	s.status = StatusIdle
}
