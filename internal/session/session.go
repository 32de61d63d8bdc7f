// Package session persists the login token and derives the caller's role and
// username from it. The token is decoded without signature verification: the
// result only drives what the client displays. The backend authorizes every
// request on its own.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fleetcore-io/fleetcore/internal/model"
)

// Session is the decoded state of a logged in user.
type Session struct {
	Token    string
	Role     model.Role
	Username string

	// ExpiresAt is zero when the token carries no exp claim.
	ExpiresAt time.Time
}

// IsAdmin reports whether the session has the admin role.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == model.RoleAdmin
}

// AuthError means there is no usable session. Callers send the user to login.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication required: %s: %v", e.Reason, e.Err)
	}
	return "authentication required: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthError reports whether err is or wraps an *AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// Claims are the token payload fields the client reads.
type Claims struct {
	Role     string `json:"role"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Decode parses the token payload without verifying its signature.
func Decode(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// FromToken builds a Session from a token and the role stored next to it.
// The role claim wins over storedRole; without either the role is user.
func FromToken(token string, storedRole model.Role) (*Session, error) {
	claims, err := Decode(token)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Token:    token,
		Role:     model.RoleUser,
		Username: claims.Username,
	}
	switch {
	case claims.Role != "":
		s.Role = model.Role(claims.Role)
	case storedRole != "":
		s.Role = storedRole
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}
