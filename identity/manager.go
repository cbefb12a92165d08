package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"nullchat/common"
	"nullchat/configs"
	"nullchat/crypto/key_ed25519"
	"nullchat/state"
	"nullchat/store"

	"github.com/sirupsen/logrus"
)

var (
	ErrCorruptIdentity = errors.New("corrupt identity record")
)

// Manager owns the device identity and keeps it in sync with the store.
type Manager struct {
	store  store.KVStore
	key    string
	logger logrus.FieldLogger

	mu      sync.Mutex
	current *state.Identity
}

func NewManager(s store.KVStore, logger logrus.FieldLogger) *Manager {
	return &Manager{store: s, key: configs.IdentityStoreKey, logger: common.OrDiscard(logger)}
}

// LoadOrCreate restores the persisted identity unchanged, or generates and
// persists a new one when none exists.
func (m *Manager) LoadOrCreate(ctx context.Context) (*state.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return m.copyCurrent(), nil
	}

	raw, ok, err := m.store.Get(ctx, m.key)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity: %w", err)
	}
	if ok {
		id, err := Decode(raw)
		if err != nil {
			return nil, err
		}
		m.current = id
		m.logger.WithField("name", id.DisplayName).Debug("identity restored")
		return m.copyCurrent(), nil
	}

	id, err := generate()
	if err != nil {
		return nil, err
	}
	if err := m.persist(ctx, id); err != nil {
		return nil, err
	}
	m.logger.WithField("name", id.DisplayName).Info("identity created")
	return m.copyCurrent(), nil
}

// Reset replaces both the key pair and the display name.
func (m *Manager) Reset(ctx context.Context) (*state.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := generate()
	if err != nil {
		return nil, err
	}
	if err := m.persist(ctx, id); err != nil {
		return nil, err
	}
	m.logger.WithField("name", id.DisplayName).Info("identity reset")
	return m.copyCurrent(), nil
}

// RegenerateName picks a new display name and keeps the key pair.
func (m *Manager) RegenerateName(ctx context.Context) (*state.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil, errors.New("identity not loaded")
	}
	name, err := NewDisplayName()
	if err != nil {
		return nil, err
	}
	id := &state.Identity{KeyPair: m.current.KeyPair, DisplayName: name}
	if err := m.persist(ctx, id); err != nil {
		return nil, err
	}
	return m.copyCurrent(), nil
}

// Current returns the loaded identity, or nil before LoadOrCreate.
func (m *Manager) Current() *state.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.copyCurrent()
}

func (m *Manager) persist(ctx context.Context, id *state.Identity) error {
	raw, err := Encode(id)
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, m.key, raw); err != nil {
		return fmt.Errorf("failed to write identity: %w", err)
	}
	m.current = id
	return nil
}

func (m *Manager) copyCurrent() *state.Identity {
	id := *m.current
	id.KeyPair = key_ed25519.Pair{
		Priv: append(key_ed25519.PrivateKey(nil), m.current.KeyPair.Priv...),
		Pub:  append(key_ed25519.PublicKey(nil), m.current.KeyPair.Pub...),
	}
	return &id
}

func generate() (*state.Identity, error) {
	pair, err := key_ed25519.NewPair()
	if err != nil {
		return nil, fmt.Errorf("failed to generate identity key: %w", err)
	}
	name, err := NewDisplayName()
	if err != nil {
		return nil, err
	}
	return &state.Identity{KeyPair: *pair, DisplayName: name}, nil
}
