package topic

import (
	"fmt"
	"strings"
)

// SegmentEvents is the branch under the root that carries fleet events.
// Structure: {root}/events/{entity}/{action}
const SegmentEvents = "events"

// TopicBuilder maps fleet event names (entity:action) to MQTT topics and back.
type TopicBuilder struct {
	// root is the base namespace, e.g. "fleet/v1".
	root string
}

func NewTopicBuilder(root string) *TopicBuilder {
	return &TopicBuilder{root: strings.Trim(root, "/")}
}

// Event returns the topic an event name is published on.
// "vehicle:created" becomes "{root}/events/vehicle/created".
func (b *TopicBuilder) Event(name string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, SegmentEvents, strings.ReplaceAll(name, ":", "/"))
}

// EventsWildcard subscribes to every event: {root}/events/#
func (b *TopicBuilder) EventsWildcard() string {
	return fmt.Sprintf("%s/%s/%s", b.root, SegmentEvents, MultiWildcard)
}

// EventName reverses Event. ok is false for topics outside the events branch.
func (b *TopicBuilder) EventName(topic string) (name string, ok bool) {
	prefix := b.root + "/" + SegmentEvents + "/"
	rest, found := strings.CutPrefix(topic, prefix)
	if !found || rest == "" {
		return "", false
	}
	return strings.ReplaceAll(rest, "/", ":"), true
}
