package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// previousGrace is how long an access token replaced by a refresh keeps
// resolving its session.
const previousGrace = 30 * time.Second

// Store is one user's session. Mutations are serialized by mu and write
// durable storage first; the in-memory snapshot is swapped only after the
// write succeeds. Readers never take the lock.
type Store struct {
	storage Storage
	key     string
	now     func() time.Time

	mu    sync.Mutex
	state atomic.Pointer[Snapshot]
}

// Open returns a store bound to key. The stored record is rehydrated only
// when it carries both a user and an access token; anything else starts
// unauthenticated.
func Open(ctx context.Context, storage Storage, key string) (*Store, error) {
	s := &Store{storage: storage, key: key, now: time.Now}
	s.state.Store(&Snapshot{})

	rec, err := storage.Load(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("open session %s: %w", key, err)
	}
	if !rec.complete() {
		return s, nil
	}
	s.state.Store(&Snapshot{
		User:            rec.User,
		Tokens:          rec.Tokens,
		IsAuthenticated: true,
		UpdatedAt:       rec.UpdatedAt,
	})
	return s, nil
}

// Key is the durable storage key of the store.
func (s *Store) Key() string { return s.key }

// State returns the current snapshot.
func (s *Store) State() Snapshot {
	return *s.state.Load()
}

// Tokens returns the current backend tokens.
func (s *Store) Tokens() Tokens {
	return s.state.Load().Tokens
}

// Login persists tokens and user and marks the store authenticated.
func (s *Store) Login(ctx context.Context, tokens Tokens, user User) error {
	if tokens.AccessToken == "" {
		return ErrMissingToken
	}
	if user.ID == "" {
		return fmt.Errorf("login: user id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commit(ctx, &Snapshot{
		User:            user,
		Tokens:          tokens,
		IsAuthenticated: true,
		UpdatedAt:       s.now(),
	})
}

// UpdateTokens replaces the tokens after a refresh. An empty refresh token
// keeps the previous one.
func (s *Store) UpdateTokens(ctx context.Context, tokens Tokens) error {
	if tokens.AccessToken == "" {
		return ErrMissingToken
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state.Load()
	if !cur.IsAuthenticated {
		return ErrNotAuthenticated
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = cur.Tokens.RefreshToken
	}
	if tokens == cur.Tokens {
		return nil
	}
	return s.commit(ctx, &Snapshot{
		User:            cur.User,
		Tokens:          tokens,
		IsAuthenticated: true,
		UpdatedAt:       s.now(),
		previousAccess:  cur.Tokens.AccessToken,
		previousUntil:   s.now().Add(previousGrace),
	})
}

// Reload replaces the snapshot with the durable record, picking up logins,
// refreshes and logouts committed by other stores over the same storage.
// A missing or expired record leaves the store unauthenticated.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.storage.Load(ctx, s.key)
	switch {
	case errors.Is(err, ErrNotFound):
		rec = Record{}
	case err != nil:
		return fmt.Errorf("reload session %s: %w", s.key, err)
	}

	cur := s.state.Load()
	if !rec.complete() {
		if cur.IsAuthenticated {
			s.state.Store(&Snapshot{UpdatedAt: s.now()})
		}
		return nil
	}
	if cur.IsAuthenticated && rec.Tokens == cur.Tokens && rec.User == cur.User {
		return nil
	}

	next := &Snapshot{
		User:            rec.User,
		Tokens:          rec.Tokens,
		IsAuthenticated: true,
		UpdatedAt:       rec.UpdatedAt,
		previousAccess:  cur.previousAccess,
		previousUntil:   cur.previousUntil,
	}
	if cur.IsAuthenticated && cur.Tokens.AccessToken != rec.Tokens.AccessToken {
		next.previousAccess = cur.Tokens.AccessToken
		next.previousUntil = s.now().Add(previousGrace)
	}
	s.state.Store(next)
	return nil
}

// SetUser replaces the profile of an authenticated session.
func (s *Store) SetUser(ctx context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state.Load()
	if !cur.IsAuthenticated {
		return ErrNotAuthenticated
	}
	if user.ID != cur.User.ID {
		return fmt.Errorf("set user: id %q does not own session %q", user.ID, cur.User.ID)
	}
	next := *cur
	next.User = user
	next.UpdatedAt = s.now()
	return s.commit(ctx, &next)
}

// Logout clears durable storage and memory. When the durable delete fails
// the session stays as it was and the error is returned.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.state.Store(&Snapshot{UpdatedAt: s.now()})
	return nil
}

// accepts reports whether token is the current access token, or the one it
// replaced while that is inside the grace window.
func (s *Store) accepts(token string) bool {
	st := s.state.Load()
	if !st.IsAuthenticated || token == "" {
		return false
	}
	if equalTokens(token, st.Tokens.AccessToken) {
		return true
	}
	return st.previousAccess != "" && s.now().Before(st.previousUntil) &&
		equalTokens(token, st.previousAccess)
}

// commit must be called with mu held.
func (s *Store) commit(ctx context.Context, next *Snapshot) error {
	if err := s.storage.Save(ctx, s.key, next.record()); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.state.Store(next)
	return nil
}
