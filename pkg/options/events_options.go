package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

const (
	TransportSocketIO = "socketio"
	TransportMQTT     = "mqtt"
	TransportNone     = "none"
)

var _ IOptions = (*EventsOptions)(nil)

// EventsOptions selects and configures the real-time event transport.
type EventsOptions struct {
	// Transport is socketio, mqtt or none.
	Transport string `json:"transport" mapstructure:"transport"`

	// URL of the Socket.IO server. Empty means the API server origin.
	URL string `json:"url" mapstructure:"url"`

	// Path is the Socket.IO endpoint path.
	Path string `json:"path" mapstructure:"path"`

	ReconnectInitial time.Duration `json:"reconnect-initial" mapstructure:"reconnect-initial"`
	ReconnectMax     time.Duration `json:"reconnect-max" mapstructure:"reconnect-max"`
}

func NewEventsOptions() *EventsOptions {
	return &EventsOptions{
		Transport:        TransportSocketIO,
		Path:             "/socket.io/",
		ReconnectInitial: time.Second,
		ReconnectMax:     30 * time.Second,
	}
}

func (o *EventsOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Transport {
	case TransportSocketIO, TransportMQTT, TransportNone:
	default:
		errs = append(errs, fmt.Errorf("events.transport must be one of %s, %s, %s; got %q",
			TransportSocketIO, TransportMQTT, TransportNone, o.Transport))
	}
	if o.URL != "" {
		if err := ValidateURL(o.URL, "http", "https", "ws", "wss"); err != nil {
			errs = append(errs, err)
		}
	}
	if o.ReconnectInitial <= 0 || o.ReconnectMax < o.ReconnectInitial {
		errs = append(errs, fmt.Errorf("events.reconnect-initial must be positive and not exceed events.reconnect-max"))
	}
	return errs
}

func (o *EventsOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Transport, flagName(prefixes, "events", "transport"), o.Transport,
		"Real-time event transport: socketio, mqtt or none.")
	fs.StringVar(&o.URL, flagName(prefixes, "events", "url"), o.URL,
		"Socket.IO server URL. Defaults to the API server origin.")
	fs.StringVar(&o.Path, flagName(prefixes, "events", "path"), o.Path, "Socket.IO endpoint path.")
	fs.DurationVar(&o.ReconnectInitial, flagName(prefixes, "events", "reconnect-initial"), o.ReconnectInitial,
		"Initial delay before reconnecting a dropped event connection.")
	fs.DurationVar(&o.ReconnectMax, flagName(prefixes, "events", "reconnect-max"), o.ReconnectMax,
		"Upper bound for the reconnect delay.")
}
