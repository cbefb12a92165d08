// Package pairing drives a pairing attempt from QR code to a confirmed
// shared secret.
//
// The sharing side shows a QR payload and listens on a rendezvous topic
// derived from its ephemeral key. The scanning side answers on that topic
// with its own ephemeral key. Both sides then compute the same X25519
// secret and show a short fingerprint that the users compare out of band.
package pairing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"nullchat/common"
	"nullchat/configs"
	"nullchat/crypto/dh25519"
	"nullchat/protocol/fingerprint"
	"nullchat/protocol/qr"
	"nullchat/protocol/topic"
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

func (o *Options) setDefaults() {
	if o.Namespace == "" {
		o.Namespace = configs.Namespace
	}
	if o.TTL <= 0 {
		o.TTL = configs.QRTTL
	}
	if o.FingerprintBytes <= 0 {
		o.FingerprintBytes = configs.FingerprintBytes
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// attempt ties the expiry timer and the rendezvous subscription of one
// share together. Whoever sets done first owns the teardown.
type attempt struct {
	topic     string
	expiresAt time.Time
	timer     *time.Timer
	done      bool
}

type Pairing struct {
	session   *state.Session
	transport transport.Transport
	opts      Options
	logger    logrus.FieldLogger
	events    chan Event

	mu      sync.Mutex
	attempt *attempt
}

func New(session *state.Session, t transport.Transport, opts Options) *Pairing {
	opts.setDefaults()
	return &Pairing{
		session:   session,
		transport: t,
		opts:      opts,
		logger:    common.OrDiscard(opts.Logger),
		events:    make(chan Event, eventBuffer),
	}
}

// Share starts a pairing attempt as the side showing the QR code. It returns
// the JSON text to render. The attempt ends on the first valid handshake, on
// expiry, or on Cancel/Reset.
func (p *Pairing) Share(ctx context.Context, displayName string) (string, *qr.Payload, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s := p.session.Status(); s != state.StatusIdle {
		return "", nil, fmt.Errorf("%w: share from %s", ErrInvalidTransition, s)
	}
	p.drainLocked()

	kp, err := dh25519.NewPair()
	if err != nil {
		return "", nil, err
	}
	defer kp.Wipe()

	rendezvous, err := topic.Handshake(p.opts.Namespace, kp.Pub)
	if err != nil {
		return "", nil, err
	}
	text, payload, err := qr.Create(kp.Pub, displayName, p.opts.TTL, p.opts.Now())
	if err != nil {
		return "", nil, err
	}

	att := &attempt{topic: rendezvous, expiresAt: payload.ExpiresAt()}
	p.session.SetKeyPair(kp)
	p.session.SetStatus(state.StatusCreatedQR)
	p.attempt = att

	if err := p.transport.Subscribe(ctx, rendezvous, p.handshakeHandler(att)); err != nil {
		p.attempt = nil
		p.session.Reset()
		return "", nil, fmt.Errorf("failed to listen for handshake: %w", err)
	}
	att.timer = time.AfterFunc(p.opts.TTL, func() { p.expire(att) })

	p.logger.WithField("topic", rendezvous).Info("waiting for handshake")
	p.emit(Event{Kind: EventCreated, Status: state.StatusCreatedQR})
	return text, payload, nil
}

// Scan starts a pairing attempt from scanned QR text and answers the sharer.
// On success the session is in verifying and the peer is returned.
func (p *Pairing) Scan(ctx context.Context, data string, displayName string) (*state.Peer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s := p.session.Status(); s != state.StatusIdle {
		return nil, fmt.Errorf("%w: scan from %s", ErrInvalidTransition, s)
	}
	p.drainLocked()

	payload, err := qr.Parse(data, p.opts.Now())
	if err != nil {
		return nil, err
	}
	peerPub, err := payload.PublicKey()
	if err != nil {
		return nil, err
	}

	kp, err := dh25519.NewPair()
	if err != nil {
		return nil, err
	}
	defer kp.Wipe()

	secret, err := dh25519.GetSecret(kp.Priv, peerPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	rendezvous, err := topic.Handshake(p.opts.Namespace, peerPub)
	if err != nil {
		return nil, err
	}
	envelope, err := json.Marshal(common.HandshakeEnvelope{PK: kp.Pub.String(), U: displayName})
	if err != nil {
		return nil, err
	}

	peer := state.Peer{PublicKey: peerPub, DisplayName: payload.U}
	p.session.SetKeyPair(kp)
	if err := p.session.SetPeer(peer); err != nil {
		p.session.Reset()
		return nil, err
	}
	p.session.SetStatus(state.StatusScannedQR)

	if err := p.transport.Publish(ctx, rendezvous, envelope); err != nil {
		p.session.Reset()
		p.logger.WithError(err).Warn("handshake not sent")
		return nil, fmt.Errorf("failed to send handshake: %w", err)
	}

	p.session.SetSharedSecret(secret)
	p.session.SetStatus(state.StatusVerifying)
	p.logger.WithField("peer", peer.DisplayName).Info("handshake sent")
	p.emit(Event{Kind: EventVerifying, Status: state.StatusVerifying, Peer: &peer})
	return &peer, nil
}

// Confirm records that the users compared fingerprints and they matched.
func (p *Pairing) Confirm() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s := p.session.Status(); s != state.StatusVerifying {
		return fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, s)
	}
	p.session.SetStatus(state.StatusConnected)
	p.emit(Event{Kind: EventConnected, Status: state.StatusConnected, Peer: p.session.Peer()})
	return nil
}

// Cancel abandons an attempt that has not been confirmed yet. A connected
// session is ended with Reset instead.
func (p *Pairing) Cancel(ctx context.Context) error {
	p.mu.Lock()
	switch s := p.session.Status(); s {
	case state.StatusIdle:
		p.mu.Unlock()
		return nil
	case state.StatusConnected:
		p.mu.Unlock()
		return fmt.Errorf("%w: cancel from %s", ErrInvalidTransition, s)
	}
	att := p.teardownLocked()
	p.emit(Event{Kind: EventCancelled, Status: state.StatusIdle})
	p.mu.Unlock()

	p.release(ctx, att)
	return nil
}

// Reset unconditionally returns to idle and wipes all session state.
func (p *Pairing) Reset(ctx context.Context) {
	p.mu.Lock()
	att := p.teardownLocked()
	p.emit(Event{Kind: EventCancelled, Status: state.StatusIdle})
	p.mu.Unlock()

	p.release(ctx, att)
}

// Fingerprint returns the short fingerprint of the shared secret.
func (p *Pairing) Fingerprint() (string, error) {
	secret := p.session.SharedSecret()
	if secret == nil {
		return "", fmt.Errorf("%w: no shared secret", ErrInvalidTransition)
	}
	return fingerprint.Fingerprint(secret, p.opts.FingerprintBytes)
}

func (p *Pairing) Status() state.Status {
	return p.session.Status()
}

// Remaining reports how long the current QR code stays valid.
func (p *Pairing) Remaining() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attempt == nil {
		return 0
	}
	if d := p.attempt.expiresAt.Sub(p.opts.Now()); d > 0 {
		return d
	}
	return 0
}

func (p *Pairing) Events() <-chan Event {
	return p.events
}

func (p *Pairing) handshakeHandler(att *attempt) transport.Handler {
	return func(payload []byte) {
		log := p.logger.WithField("topic", att.topic)

		env, err := common.UnmarshalHandshake(payload)
		if err != nil {
			log.WithError(err).Warn("dropping handshake")
			return
		}
		peerPub, err := dh25519.ParsePublicKey(env.PK)
		if err != nil {
			log.WithError(err).Warn("dropping handshake")
			return
		}

		p.mu.Lock()
		if p.attempt != att || att.done || p.session.Status() != state.StatusCreatedQR {
			p.mu.Unlock()
			return
		}
		kp := p.session.KeyPair()
		secret, err := dh25519.GetSecret(kp.Priv, peerPub)
		kp.Wipe()
		if err != nil {
			p.mu.Unlock()
			log.WithError(err).Warn("dropping handshake")
			return
		}
		peer := state.Peer{PublicKey: peerPub, DisplayName: env.U}
		if err := p.session.SetPeer(peer); err != nil {
			p.mu.Unlock()
			return
		}
		att.done = true
		att.timer.Stop()
		p.attempt = nil
		p.session.SetSharedSecret(secret)
		p.session.SetStatus(state.StatusVerifying)
		p.emit(Event{Kind: EventVerifying, Status: state.StatusVerifying, Peer: &peer})
		p.mu.Unlock()

		p.release(context.Background(), att)
		log.WithField("peer", peer.DisplayName).Info("handshake received")
	}
}

func (p *Pairing) expire(att *attempt) {
	p.mu.Lock()
	if p.attempt != att || att.done {
		p.mu.Unlock()
		return
	}
	att.done = true
	p.attempt = nil
	p.session.Reset()
	p.emit(Event{Kind: EventExpired, Status: state.StatusIdle})
	p.mu.Unlock()

	p.release(context.Background(), att)
	p.logger.WithField("topic", att.topic).Info("qr code expired")
}

// teardownLocked detaches the running attempt, if any, and wipes the
// session. The caller releases the returned attempt after unlocking.
func (p *Pairing) teardownLocked() *attempt {
	att := p.attempt
	p.attempt = nil
	if att != nil {
		att.done = true
		if att.timer != nil {
			att.timer.Stop()
		}
	}
	p.session.Reset()
	return att
}

func (p *Pairing) release(ctx context.Context, att *attempt) {
	if att == nil {
		return
	}
	if err := p.transport.Unsubscribe(ctx, att.topic); err != nil {
		p.logger.WithError(err).WithField("topic", att.topic).Warn("failed to unsubscribe")
	}
}
