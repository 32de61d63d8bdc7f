package session

import (
	"time"
)

// Gate turns the stored token into a Session or an *AuthError.
type Gate struct {
	store *Store
	now   func() time.Time
}

func NewGate(store *Store) *Gate {
	return &Gate{store: store, now: time.Now}
}

// Require returns the current session. The error is an *AuthError when the
// token is missing, undecodable or expired.
func (g *Gate) Require() (*Session, error) {
	token, role, err := g.store.Load()
	if err != nil {
		return nil, &AuthError{Reason: "session file unreadable", Err: err}
	}
	if token == "" {
		return nil, &AuthError{Reason: "not logged in"}
	}

	s, err := FromToken(token, role)
	if err != nil {
		return nil, &AuthError{Reason: "session token is malformed", Err: err}
	}
	if !s.ExpiresAt.IsZero() && !g.now().Before(s.ExpiresAt) {
		return nil, &AuthError{Reason: "session expired"}
	}
	return s, nil
}
