package options

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*APIOptions)(nil)

// APIOptions configures the REST backend the client talks to.
type APIOptions struct {
	// Server is the backend origin, e.g. http://localhost:5000.
	Server string `json:"server" mapstructure:"server"`

	// Prefix is appended to Server to form the API base URL.
	Prefix string `json:"prefix" mapstructure:"prefix"`

	// Timeout bounds each request. Zero disables the client timeout.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	InsecureSkipVerify bool `json:"insecure-skip-verify" mapstructure:"insecure-skip-verify"`
}

func NewAPIOptions() *APIOptions {
	return &APIOptions{
		Server:  "http://localhost:5000",
		Prefix:  "/api",
		Timeout: 15 * time.Second,
	}
}

func (o *APIOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if err := ValidateURL(o.Server, "http", "https"); err != nil {
		errs = append(errs, err)
	}
	if o.Prefix != "" && !strings.HasPrefix(o.Prefix, "/") {
		errs = append(errs, errors.New("api.prefix must start with '/'"))
	}
	if o.Timeout < 0 {
		errs = append(errs, errors.New("api.timeout must not be negative"))
	}
	return errs
}

func (o *APIOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Server, flagName(prefixes, "api", "server"), o.Server, "Origin of the fleet backend.")
	fs.StringVar(&o.Prefix, flagName(prefixes, "api", "prefix"), o.Prefix, "Path prefix of the REST API on the backend.")
	fs.DurationVar(&o.Timeout, flagName(prefixes, "api", "timeout"), o.Timeout, "Timeout for a single API request.")
	fs.BoolVar(&o.InsecureSkipVerify, flagName(prefixes, "api", "insecure-skip-verify"), o.InsecureSkipVerify,
		"Skip TLS certificate verification. Only for development backends.")
}

// BaseURL returns Server joined with Prefix.
func (o *APIOptions) BaseURL() (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(o.Server, "/"))
	if err != nil {
		return nil, err
	}
	return u.JoinPath(o.Prefix), nil
}
