package options

import (
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/fleetcore-io/fleetcore/pkg/log"
	"github.com/fleetcore-io/fleetcore/pkg/options"
)

// FleetctlOptions gathers every setting of the fleetctl command tree.
type FleetctlOptions struct {
	API     *options.APIOptions     `json:"api" mapstructure:"api"`
	Events  *options.EventsOptions  `json:"events" mapstructure:"events"`
	MQTT    *options.MqttOptions    `json:"mqtt" mapstructure:"mqtt"`
	Session *options.SessionOptions `json:"session" mapstructure:"session"`
	S3      *options.S3Options      `json:"s3" mapstructure:"s3"`
	Metrics *options.HttpOptions    `json:"metrics" mapstructure:"metrics"`
	Log     *log.Options            `json:"log" mapstructure:"log"`

	// ConfigFile overrides the default config file location.
	ConfigFile string `json:"-" mapstructure:"-"`
}

func NewFleetctlOptions() *FleetctlOptions {
	logOpts := log.NewOptions()
	logOpts.Name = "fleetctl"

	return &FleetctlOptions{
		API:     options.NewAPIOptions(),
		Events:  options.NewEventsOptions(),
		MQTT:    options.NewMqttOptions(),
		Session: options.NewSessionOptions(),
		S3:      options.NewS3Options(),
		Metrics: options.NewHttpOptions(),
		Log:     logOpts,
	}
}

// DefaultConfigFile is fleetctl.yaml in the fleetcore config directory.
func DefaultConfigFile() string {
	return filepath.Join(options.ConfigDir(), "fleetctl.yaml")
}

func (o *FleetctlOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.API.AddFlags(fss.FlagSet("api"))
	o.Events.AddFlags(fss.FlagSet("events"))
	o.MQTT.AddFlags(fss.FlagSet("mqtt"))
	o.Session.AddFlags(fss.FlagSet("session"))
	o.S3.AddFlags(fss.FlagSet("s3"))
	o.Metrics.AddFlags(fss.FlagSet("metrics"))
	o.Log.AddFlags(fss.FlagSet("log"))

	fs := fss.FlagSet("global")
	fs.StringVar(&o.ConfigFile, "config", o.ConfigFile,
		"Config file. Defaults to "+DefaultConfigFile()+" when present.")
	return fss
}

// AddFlags registers all named flag sets on fs.
func (o *FleetctlOptions) AddFlags(fs *pflag.FlagSet) cliflag.NamedFlagSets {
	fss := o.Flags()
	for _, f := range fss.FlagSets {
		fs.AddFlagSet(f)
	}
	return fss
}

// Complete fills values derived from other options.
func (o *FleetctlOptions) Complete() error {
	o.API.Server = strings.TrimRight(o.API.Server, "/")
	if o.Events.URL == "" {
		o.Events.URL = o.API.Server
	}
	if o.Session.Path == "" {
		o.Session.Path = options.DefaultSessionPath()
	}
	return nil
}

func (o *FleetctlOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.API.Validate()...)
	errs = append(errs, o.Events.Validate()...)
	if o.Events.Transport == options.TransportMQTT {
		errs = append(errs, o.MQTT.Validate()...)
	}
	errs = append(errs, o.Session.Validate()...)
	errs = append(errs, o.S3.Validate()...)
	errs = append(errs, o.Metrics.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}
