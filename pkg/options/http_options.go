package options

import (
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*HttpOptions)(nil)

// HttpOptions configures the optional metrics and health endpoint.
// An empty Addr disables the server.
type HttpOptions struct {
	Addr string `json:"addr" mapstructure:"addr"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

func NewHttpOptions() *HttpOptions {
	return &HttpOptions{
		ShutdownTimeout: 5 * time.Second,
	}
}

func (o *HttpOptions) Enabled() bool {
	return o != nil && o.Addr != ""
}

func (o *HttpOptions) Validate() []error {
	if !o.Enabled() {
		return nil
	}

	var errs []error
	if err := ValidateAddress(o.Addr); err != nil {
		errs = append(errs, err)
	}
	return errs
}

func (o *HttpOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Addr, flagName(prefixes, "metrics", "addr"), o.Addr,
		"Serve /metrics, /healthz and /readyz on this address (e.g. 127.0.0.1:9090). Empty disables it.")
	fs.DurationVar(&o.ShutdownTimeout, flagName(prefixes, "metrics", "shutdown-timeout"), o.ShutdownTimeout,
		"Grace period for the metrics server to shut down.")
}
