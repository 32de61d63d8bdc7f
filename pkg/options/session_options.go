package options

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SessionOptions)(nil)

// SessionOptions locates the persisted login session.
type SessionOptions struct {
	Path string `json:"path" mapstructure:"path"`
}

func NewSessionOptions() *SessionOptions {
	return &SessionOptions{Path: DefaultSessionPath()}
}

// DefaultSessionPath is session.json in the user's fleetcore config directory.
func DefaultSessionPath() string {
	return filepath.Join(ConfigDir(), "session.json")
}

// ConfigDir is the fleetcore directory under os.UserConfigDir, falling back to
// the working directory when no home is available.
func ConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".fleetcore"
	}
	return filepath.Join(dir, "fleetcore")
}

func (o *SessionOptions) Validate() []error {
	if o == nil {
		return nil
	}
	if o.Path == "" {
		return []error{errors.New("session.path must not be empty")}
	}
	return nil
}

func (o *SessionOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Path, flagName(prefixes, "session", "path"), o.Path, "File holding the login token and role.")
}
