// Package session holds the authenticated user's identity and backend
// tokens. A Store is an explicit object with a lifecycle: opened from
// durable storage, mutated by Login, UpdateTokens and Logout, and read
// through immutable snapshots.
package session

import (
	"errors"
	"time"

	"github.com/akin/akin/internal/platform/auth"
)

var (
	// ErrNotFound is returned by storages when no record exists for a key.
	ErrNotFound = errors.New("session not found")
	// ErrNotAuthenticated is returned when a mutation needs a live session.
	ErrNotAuthenticated = errors.New("session not authenticated")
	// ErrSessionMismatch is returned when a presented token does not belong
	// to the stored session.
	ErrSessionMismatch = errors.New("session token mismatch")
	// ErrMissingToken is returned by Login when no access token is given.
	ErrMissingToken = errors.New("access token required")
)

// Tokens are the backend-issued credentials. The refresh token never leaves
// the gateway.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// User is the profile attached to a session. Role is filled from the profile
// lookup that follows sign-in, not from the sign-in response.
type User struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  auth.Role `json:"role"`
}

// Snapshot is an immutable view of a store. IsAuthenticated is true exactly
// when Tokens.AccessToken is non-empty.
type Snapshot struct {
	User            User
	Tokens          Tokens
	IsAuthenticated bool
	UpdatedAt       time.Time

	// access token replaced by the last refresh, still accepted until
	// previousUntil so requests in flight with the old cookie resolve.
	previousAccess string
	previousUntil  time.Time
}

// UserID is a shorthand for the session's user id.
func (s Snapshot) UserID() string { return s.User.ID }

// Record is what durable storage holds for one session.
type Record struct {
	User      User      `json:"user"`
	Tokens    Tokens    `json:"tokens"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r Record) complete() bool {
	return r.User.ID != "" && r.Tokens.AccessToken != ""
}

func (s Snapshot) record() Record {
	return Record{User: s.User, Tokens: s.Tokens, UpdatedAt: s.UpdatedAt}
}
