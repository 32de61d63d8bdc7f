package options

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{":9090", false},
		{"127.0.0.1:9090", false},
		{"localhost:80", false},
		{"0.0.0.0:70000", true},
		{"no-port", true},
		{"example.com:80", true},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			err := ValidateAddress(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAPIOptionsBaseURL(t *testing.T) {
	o := NewAPIOptions()
	o.Server = "https://fleet.example.com/"

	u, err := o.BaseURL()
	require.NoError(t, err)
	assert.Equal(t, "https://fleet.example.com/api", u.String())
	assert.Empty(t, o.Validate())

	o.Server = "fleet.example.com"
	o.Prefix = "api"
	assert.Len(t, o.Validate(), 2)
}

func TestEventsOptionsValidate(t *testing.T) {
	o := NewEventsOptions()
	assert.Empty(t, o.Validate())

	o.Transport = "carrier-pigeon"
	o.URL = "ftp://events"
	assert.Len(t, o.Validate(), 2)
}

func TestHttpOptionsDisabledByDefault(t *testing.T) {
	o := NewHttpOptions()
	assert.False(t, o.Enabled())
	assert.Empty(t, o.Validate())

	o.Addr = "bad"
	assert.NotEmpty(t, o.Validate())
}

func TestAddFlagsHonoursPrefix(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	NewAPIOptions().AddFlags(fs)
	NewS3Options().AddFlags(fs, "export")

	assert.NotNil(t, fs.Lookup("api.server"))
	assert.NotNil(t, fs.Lookup("export.bucket-name"))
	assert.Nil(t, fs.Lookup("s3.bucket-name"))
}

func TestMqttToClientConfig(t *testing.T) {
	o := NewMqttOptions()
	cfg := o.ToClientConfig()
	assert.Equal(t, o.Broker, cfg.BrokerURL)
	assert.EqualValues(t, 60, cfg.KeepAlive)
}
