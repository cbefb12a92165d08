// Package channel is the encrypted chat that runs once a pairing is
// confirmed. Every message is sealed with a key derived from the shared
// secret and published on a topic derived from the same secret.
package channel

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"nullchat/common"
	"nullchat/configs"
	"nullchat/crypto/memzero"
	"nullchat/crypto/secretbox"
	"nullchat/protocol/topic"
	"nullchat/state"
	"nullchat/transport"

	"github.com/sirupsen/logrus"
)

var (
	ErrNotConnected = errors.New("session not connected")
	ErrEmptyMessage = errors.New("empty message")
)

const incomingBuffer = 64

type Options struct {
	Namespace string
	Logger    logrus.FieldLogger
}

type Channel struct {
	session     *state.Session
	transport   transport.Transport
	displayName string
	namespace   string
	logger      logrus.FieldLogger
	incoming    chan state.Message

	mu    sync.RWMutex
	key   []byte
	topic string
}

func New(session *state.Session, t transport.Transport, displayName string, opts Options) *Channel {
	if opts.Namespace == "" {
		opts.Namespace = configs.Namespace
	}
	return &Channel{
		session:     session,
		transport:   t,
		displayName: displayName,
		namespace:   opts.Namespace,
		logger:      common.OrDiscard(opts.Logger),
		incoming:    make(chan state.Message, incomingBuffer),
	}
}

// Open derives the chat key and topic and subscribes. The session must be
// connected.
func (c *Channel) Open(ctx context.Context) error {
	if c.session.Status() != state.StatusConnected {
		return ErrNotConnected
	}
	secret := c.session.SharedSecret()
	defer memzero.Zero(secret)

	key, err := topic.ChatKey(secret)
	if err != nil {
		return err
	}
	chatTopic, err := topic.Chat(c.namespace, secret)
	if err != nil {
		memzero.Zero(key)
		return err
	}

	c.mu.Lock()
	memzero.Zero(c.key)
	c.key = key
	c.topic = chatTopic
	c.mu.Unlock()

	if err := c.transport.Subscribe(ctx, chatTopic, c.OnReceive); err != nil {
		c.wipe()
		return fmt.Errorf("failed to join chat: %w", err)
	}
	c.logger.WithField("topic", chatTopic).Info("chat open")
	return nil
}

// Send seals text and publishes it. The message is appended locally as soon
// as the relay accepts it, without waiting for the echo.
func (c *Channel) Send(ctx context.Context, text string) (state.Message, error) {
	if strings.TrimSpace(text) == "" {
		return state.Message{}, ErrEmptyMessage
	}

	c.mu.RLock()
	key := append([]byte(nil), c.key...)
	chatTopic := c.topic
	c.mu.RUnlock()
	defer memzero.Zero(key)

	if chatTopic == "" {
		return state.Message{}, ErrNotConnected
	}

	nonce, err := secretbox.NewNonce()
	if err != nil {
		return state.Message{}, err
	}
	ct, err := secretbox.Seal(key, nonce, []byte(text))
	if err != nil {
		return state.Message{}, err
	}
	payload, err := json.Marshal(common.MessageEnvelope{
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
		Sender:     c.displayName,
	})
	if err != nil {
		return state.Message{}, err
	}

	if err := c.transport.Publish(ctx, chatTopic, payload); err != nil {
		c.logger.WithError(err).Warn("message not sent")
		return state.Message{}, err
	}
	return c.session.AddMessage(state.Message{Text: text, Sender: state.SenderMe}), nil
}

// OnReceive handles one raw envelope from the chat topic. Our own echoes,
// malformed envelopes and envelopes that fail authentication are dropped.
func (c *Channel) OnReceive(payload []byte) {
	env, err := common.UnmarshalMessage(payload)
	if err != nil {
		c.logger.WithError(err).Debug("dropping message")
		return
	}
	if env.Sender == c.displayName {
		return
	}

	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		c.logger.WithError(err).Debug("dropping message")
		return
	}
	ct, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		c.logger.WithError(err).Debug("dropping message")
		return
	}

	// The read lock is held through the append so nothing lands in the
	// session once Close has returned.
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.key == nil {
		return
	}
	plaintext, err := secretbox.Open(c.key, nonce, ct)
	if err != nil {
		c.logger.WithError(err).WithField("sender", env.Sender).Warn("dropping message")
		return
	}

	msg := c.session.AddMessage(state.Message{Text: string(plaintext), Sender: state.SenderPeer})
	select {
	case c.incoming <- msg:
	default:
	}
}

// Close leaves the chat topic and wipes the chat key. It does not touch the
// session; callers reset it separately.
func (c *Channel) Close(ctx context.Context) error {
	chatTopic := c.wipe()
	if chatTopic == "" {
		return nil
	}
	if err := c.transport.Unsubscribe(ctx, chatTopic); err != nil {
		c.logger.WithError(err).WithField("topic", chatTopic).Warn("failed to unsubscribe")
		return err
	}
	return nil
}

// Incoming delivers each accepted peer message. Messages are also in the
// session, so a slow reader loses notifications, not messages.
func (c *Channel) Incoming() <-chan state.Message {
	return c.incoming
}

func (c *Channel) Topic() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topic
}

func (c *Channel) wipe() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	chatTopic := c.topic
	memzero.Zero(c.key)
	c.key = nil
	c.topic = ""
	return chatTopic
}
