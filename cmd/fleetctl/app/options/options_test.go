package options

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetcore-io/fleetcore/pkg/options"
)

func TestDefaultsAreValid(t *testing.T) {
	o := NewFleetctlOptions()
	require.NoError(t, o.Complete())
	assert.NoError(t, o.Validate())
	assert.Equal(t, o.API.Server, o.Events.URL)
}

func TestFlagsCoverEveryGroup(t *testing.T) {
	o := NewFleetctlOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fss := o.AddFlags(fs)

	assert.ElementsMatch(t, []string{"api", "events", "mqtt", "session", "s3", "metrics", "log", "global"}, fss.Order)
	for _, name := range []string{"api.server", "events.transport", "mqtt.broker", "session.path", "s3.bucket-name", "metrics.addr", "log.level", "config"} {
		assert.NotNil(t, fs.Lookup(name), name)
	}

	require.NoError(t, fs.Parse([]string{"--api.server=https://fleet.example.com/", "--events.transport=none"}))
	require.NoError(t, o.Complete())
	assert.Equal(t, "https://fleet.example.com", o.API.Server)
	assert.Equal(t, "https://fleet.example.com", o.Events.URL)
	assert.NoError(t, o.Validate())
}

func TestValidateAggregates(t *testing.T) {
	o := NewFleetctlOptions()
	o.Events.Transport = "carrier-pigeon"
	o.Log.Level = "loud"
	o.Metrics.Addr = "not an address"

	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "events.transport")
	assert.Contains(t, err.Error(), "loud")
}

func TestMQTTValidatedOnlyWhenSelected(t *testing.T) {
	o := NewFleetctlOptions()
	o.MQTT.Broker = ""
	require.NoError(t, o.Complete())
	assert.NoError(t, o.Validate())

	o.Events.Transport = options.TransportMQTT
	assert.Error(t, o.Validate())
}
