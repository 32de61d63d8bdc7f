package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventTopicRoundTrip(t *testing.T) {
	b := NewTopicBuilder("/fleet/v1/")

	assert.Equal(t, "fleet/v1/events/vehicle/created", b.Event("vehicle:created"))
	assert.Equal(t, "fleet/v1/events/#", b.EventsWildcard())

	for _, name := range []string{"vehicle:created", "vehicle:deleted", "command:received", "command:updated"} {
		got, ok := b.EventName(b.Event(name))
		assert.True(t, ok)
		assert.Equal(t, name, got)
	}

	_, ok := b.EventName("fleet/v1/telemetry/vehicle")
	assert.False(t, ok)
	_, ok = b.EventName("fleet/v1/events/")
	assert.False(t, ok)
}
