package views

import (
	"context"
	"strings"

	"github.com/fleetcore-io/fleetcore/internal/model"
	"github.com/fleetcore-io/fleetcore/internal/session"
)

// AuthAPI is the part of the backend client used by the auth screens.
type AuthAPI interface {
	Login(ctx context.Context, creds model.Credentials) (*model.LoginResult, error)
	Register(ctx context.Context, reg model.Registration) error
	UpdateSettings(ctx context.Context, upd model.SettingsUpdate) error
}

// Auth drives login, registration, settings and logout against the session
// store.
type Auth struct {
	api   AuthAPI
	store *session.Store
}

func NewAuth(api AuthAPI, store *session.Store) *Auth {
	return &Auth{api: api, store: store}
}

// Login exchanges credentials for a token and persists it with the role.
func (a *Auth) Login(ctx context.Context, creds model.Credentials) (*session.Session, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Password == "" {
		return nil, &ValidationError{Message: "Username and password required"}
	}

	res, err := a.api.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	sess, err := session.FromToken(res.Token, res.Role)
	if err != nil {
		return nil, &session.AuthError{Reason: "server returned an unreadable token", Err: err}
	}
	if err := a.store.Save(res.Token, res.Role); err != nil {
		return nil, err
	}
	return sess, nil
}

func (a *Auth) Register(ctx context.Context, reg model.Registration) error {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	switch {
	case reg.Username == "":
		return invalid("username", "Username required")
	case reg.Email == "" || !strings.Contains(reg.Email, "@"):
		return invalid("email", "Valid email required")
	case reg.Password == "":
		return invalid("password", "Password required")
	}
	return a.api.Register(ctx, reg)
}

// UpdateSettings changes the caller's username and/or password.
func (a *Auth) UpdateSettings(ctx context.Context, upd model.SettingsUpdate) error {
	upd.Username = strings.TrimSpace(upd.Username)
	if upd.Username == "" && upd.Password == "" {
		return &ValidationError{Message: "Nothing to update"}
	}
	return a.api.UpdateSettings(ctx, upd)
}

// Logout forgets the stored token.
func (a *Auth) Logout() error {
	return a.store.Clear()
}
