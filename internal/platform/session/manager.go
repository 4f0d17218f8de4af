package session

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Manager owns the gateway's per-user stores. Stores are keyed by user id;
// a new sign-in by the same user replaces the previous tokens.
type Manager struct {
	storage Storage
	logger  zerolog.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

func NewManager(storage Storage, logger zerolog.Logger) *Manager {
	return &Manager{
		storage: storage,
		logger:  logger,
		stores:  make(map[string]*Store),
	}
}

func storageKey(userID string) string { return "user:" + userID }

// Begin logs user in and returns its store.
func (m *Manager) Begin(ctx context.Context, tokens Tokens, user User) (*Store, error) {
	store, err := m.store(ctx, user.ID, true)
	if err != nil {
		return nil, err
	}
	if err := store.Login(ctx, tokens, user); err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}
	m.logger.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("session started")
	return store, nil
}

// Resolve returns the store of userID when token belongs to it. Durable
// storage is the source of truth: a cached store is reloaded first, so
// refreshes and logouts made by another gateway instance, and records
// expired by the backend, are seen here. Stores whose session is gone are
// dropped from the cache.
func (m *Manager) Resolve(ctx context.Context, userID, token string) (*Store, error) {
	if userID == "" || token == "" {
		return nil, ErrNotFound
	}
	store, cached, err := m.lookup(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	if cached {
		if err := store.Reload(ctx); err != nil {
			return nil, err
		}
	}
	if !store.State().IsAuthenticated {
		m.forget(userID, store)
		return nil, ErrNotFound
	}
	if !store.accepts(token) {
		return nil, ErrSessionMismatch
	}
	return store, nil
}

// End logs userID out and forgets its store.
func (m *Manager) End(ctx context.Context, userID string) error {
	store, err := m.store(ctx, userID, false)
	if err != nil {
		return err
	}
	if err := store.Logout(ctx); err != nil {
		return err
	}

	m.forget(userID, store)

	m.logger.Info().Str("user_id", userID).Msg("session ended")
	return nil
}

// Len returns the number of stores held in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}

func (m *Manager) store(ctx context.Context, userID string, keep bool) (*Store, error) {
	s, _, err := m.lookup(ctx, userID, keep)
	return s, err
}

// lookup returns the cached store of userID or opens it, reporting whether
// it came from the cache. Opened stores are cached when keep is set or when
// they rehydrated a live session, so unknown ids do not grow the map.
func (m *Manager) lookup(ctx context.Context, userID string, keep bool) (*Store, bool, error) {
	if userID == "" {
		return nil, false, fmt.Errorf("session: user id required")
	}

	m.mu.Lock()
	if s, ok := m.stores[userID]; ok {
		m.mu.Unlock()
		return s, true, nil
	}
	m.mu.Unlock()

	opened, err := Open(ctx, m.storage, storageKey(userID))
	if err != nil {
		return nil, false, err
	}

	if !keep && !opened.State().IsAuthenticated {
		return opened, false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stores[userID]; ok {
		return s, true, nil
	}
	m.stores[userID] = opened
	return opened, false, nil
}

// forget drops store from the cache if it is still the one held for userID.
func (m *Manager) forget(userID string, store *Store) {
	m.mu.Lock()
	if m.stores[userID] == store {
		delete(m.stores, userID)
	}
	m.mu.Unlock()
}

func equalTokens(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
