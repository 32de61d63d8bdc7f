package model

// Role is the access level carried in the session token.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SettingsUpdate is the body of PUT /auth/settings.
type SettingsUpdate struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// LoginResult is returned by POST /auth/login.
type LoginResult struct {
	Token string `json:"token"`
	Role  Role   `json:"role"`
}
