package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"

	"github.com/fleetcore-io/fleetcore/pkg/mqtt"
)

var _ IOptions = (*MqttOptions)(nil)

// MqttOptions configures the MQTT event transport.
type MqttOptions struct {
	Broker   string `json:"broker" mapstructure:"broker"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`

	// ClientID is generated per process when empty.
	ClientID string `json:"client-id" mapstructure:"client-id"`

	KeepAlive      time.Duration `json:"keep-alive" mapstructure:"keep-alive"`
	ConnectTimeout time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`
	SessionExpiry  uint32        `json:"session-expiry" mapstructure:"session-expiry"`
	CleanStart     bool          `json:"clean-start" mapstructure:"clean-start"`

	// InsecureSkipVerify accepts any broker certificate. Testing only.
	InsecureSkipVerify bool `json:"insecure-skip-verify" mapstructure:"insecure-skip-verify"`

	// TopicRoot prefixes every event topic: {TopicRoot}/events/{entity}/{action}.
	TopicRoot string `json:"topic-root" mapstructure:"topic-root"`
}

func NewMqttOptions() *MqttOptions {
	return &MqttOptions{
		Broker:         "tcp://localhost:1883",
		KeepAlive:      60 * time.Second,
		ConnectTimeout: 5 * time.Second,
		CleanStart:     true,
		TopicRoot:      "fleet/v1",
	}
}

func (o *MqttOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if err := ValidateURL(o.Broker, "tcp", "mqtt", "ssl", "tls", "mqtts", "ws", "wss"); err != nil {
		errs = append(errs, err)
	}
	if o.TopicRoot == "" {
		errs = append(errs, errors.New("mqtt.topic-root must not be empty"))
	}
	return errs
}

func (o *MqttOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Broker, flagName(prefixes, "mqtt", "broker"), o.Broker, "The URL of the MQTT broker.")
	fs.StringVar(&o.Username, flagName(prefixes, "mqtt", "username"), o.Username, "The username for MQTT authentication.")
	fs.StringVar(&o.Password, flagName(prefixes, "mqtt", "password"), o.Password, "The password for MQTT authentication.")
	fs.StringVar(&o.ClientID, flagName(prefixes, "mqtt", "client-id"), o.ClientID, "Explicit client ID (generated when empty).")
	fs.DurationVar(&o.KeepAlive, flagName(prefixes, "mqtt", "keep-alive"), o.KeepAlive, "MQTT keep alive interval.")
	fs.DurationVar(&o.ConnectTimeout, flagName(prefixes, "mqtt", "connect-timeout"), o.ConnectTimeout, "Timeout for establishing the MQTT connection.")
	fs.Uint32Var(&o.SessionExpiry, flagName(prefixes, "mqtt", "session-expiry"), o.SessionExpiry, "MQTT session expiry interval in seconds.")
	fs.BoolVar(&o.CleanStart, flagName(prefixes, "mqtt", "clean-start"), o.CleanStart, "Start a clean MQTT session.")
	fs.BoolVar(&o.InsecureSkipVerify, flagName(prefixes, "mqtt", "insecure-skip-verify"), o.InsecureSkipVerify, "Skip TLS certificate verification.")
	fs.StringVar(&o.TopicRoot, flagName(prefixes, "mqtt", "topic-root"), o.TopicRoot, "Topic prefix under which fleet events are published.")
}

// ToClientConfig converts the options into a pkg/mqtt client configuration.
func (o *MqttOptions) ToClientConfig() *mqtt.ClientConfig {
	return &mqtt.ClientConfig{
		BrokerURL:          o.Broker,
		Username:           o.Username,
		Password:           o.Password,
		ClientID:           o.ClientID,
		KeepAlive:          uint16(o.KeepAlive.Seconds()),
		SessionExpiry:      o.SessionExpiry,
		ConnectTimeout:     o.ConnectTimeout,
		CleanStart:         o.CleanStart,
		InsecureSkipVerify: o.InsecureSkipVerify,
	}
}
