package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nullchat/common"
	"nullchat/identity"
	"nullchat/protocol/channel"
	"nullchat/protocol/pairing"
	"nullchat/protocol/qr"
	"nullchat/state"
	"nullchat/transport"

	"github.com/sirupsen/logrus"
)

type Options struct {
	Namespace        string
	TTL              time.Duration
	FingerprintBytes int
	Now              func() time.Time
	Logger           logrus.FieldLogger
}

// Core is everything a front end needs: the device identity, one session at
// a time, the pairing state machine and the chat channel.
type Core struct {
	identities *identity.Manager
	session    *state.Session
	pairing    *pairing.Pairing
	transport  transport.Transport
	opts       Options
	logger     logrus.FieldLogger

	mu      sync.Mutex
	me      *state.Identity
	channel *channel.Channel
}

func NewCore(identities *identity.Manager, t transport.Transport, opts Options) *Core {
	session := state.NewSession()
	return &Core{
		identities: identities,
		session:    session,
		pairing: pairing.New(session, t, pairing.Options{
			Namespace:        opts.Namespace,
			TTL:              opts.TTL,
			FingerprintBytes: opts.FingerprintBytes,
			Now:              opts.Now,
			Logger:           opts.Logger,
		}),
		transport: t,
		opts:      opts,
		logger:    common.OrDiscard(opts.Logger),
	}
}

// Start loads the identity and tries to reach the relay. An unreachable
// relay is logged; the next publish or subscribe retries.
func (c *Core) Start(ctx context.Context) (*state.Identity, error) {
	id, err := c.LoadIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.transport.Connect(ctx); err != nil {
		c.logger.WithError(err).Warn("relay not reachable yet")
	}
	return id, nil
}

// LoadIdentity loads or creates the identity without touching the relay.
func (c *Core) LoadIdentity(ctx context.Context) (*state.Identity, error) {
	id, err := c.identities.LoadOrCreate(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.me = id
	c.mu.Unlock()
	return id, nil
}

func (c *Core) Identity() *state.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.me
}

func (c *Core) Share(ctx context.Context) (string, *qr.Payload, error) {
	me, err := c.self()
	if err != nil {
		return "", nil, err
	}
	return c.pairing.Share(ctx, me.DisplayName)
}

func (c *Core) Scan(ctx context.Context, data string) (*state.Peer, error) {
	me, err := c.self()
	if err != nil {
		return nil, err
	}
	return c.pairing.Scan(ctx, data, me.DisplayName)
}

func (c *Core) Fingerprint() (string, error) {
	return c.pairing.Fingerprint()
}

// Confirm accepts the fingerprint and opens the chat. If the chat cannot be
// opened the session is reset.
func (c *Core) Confirm(ctx context.Context) error {
	me, err := c.self()
	if err != nil {
		return err
	}
	if err := c.pairing.Confirm(); err != nil {
		return err
	}

	ch := channel.New(c.session, c.transport, me.DisplayName, channel.Options{
		Namespace: c.opts.Namespace,
		Logger:    c.opts.Logger,
	})
	if err := ch.Open(ctx); err != nil {
		c.pairing.Reset(ctx)
		return err
	}
	c.mu.Lock()
	c.channel = ch
	c.mu.Unlock()
	return nil
}

// Reject discards an unconfirmed attempt.
func (c *Core) Reject(ctx context.Context) error {
	return c.pairing.Cancel(ctx)
}

func (c *Core) Send(ctx context.Context, text string) (state.Message, error) {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return state.Message{}, channel.ErrNotConnected
	}
	return ch.Send(ctx, text)
}

// Incoming delivers peer messages of the open chat, or nil before Confirm.
func (c *Core) Incoming() <-chan state.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil {
		return nil
	}
	return c.channel.Incoming()
}

func (c *Core) Messages() []state.Message {
	return c.session.Messages()
}

func (c *Core) Peer() *state.Peer {
	return c.session.Peer()
}

func (c *Core) Status() state.Status {
	return c.pairing.Status()
}

func (c *Core) Remaining() time.Duration {
	return c.pairing.Remaining()
}

func (c *Core) Events() <-chan pairing.Event {
	return c.pairing.Events()
}

// Reset ends the chat, if any, and wipes the session.
func (c *Core) Reset(ctx context.Context) {
	c.mu.Lock()
	ch := c.channel
	c.channel = nil
	c.mu.Unlock()

	if ch != nil {
		if err := ch.Close(ctx); err != nil {
			c.logger.WithError(err).Warn("failed to leave chat")
		}
	}
	c.pairing.Reset(ctx)
}

// ResetIdentity ends any session and replaces the identity.
func (c *Core) ResetIdentity(ctx context.Context) (*state.Identity, error) {
	c.Reset(ctx)
	id, err := c.identities.Reset(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.me = id
	c.mu.Unlock()
	return id, nil
}

// RegenerateName picks a new display name. Only allowed between sessions,
// since the name tags outgoing messages.
func (c *Core) RegenerateName(ctx context.Context) (*state.Identity, error) {
	if s := c.pairing.Status(); s != state.StatusIdle {
		return nil, fmt.Errorf("%w: rename during %s", pairing.ErrInvalidTransition, s)
	}
	id, err := c.identities.RegenerateName(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.me = id
	c.mu.Unlock()
	return id, nil
}

func (c *Core) Close() error {
	c.Reset(context.Background())
	return c.transport.Close()
}

func (c *Core) self() (*state.Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.me == nil {
		return nil, fmt.Errorf("identity not loaded")
	}
	return c.me, nil
}
