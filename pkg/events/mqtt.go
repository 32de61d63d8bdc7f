package events

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/fleetcore-io/fleetcore/pkg/mqtt"
	"github.com/fleetcore-io/fleetcore/pkg/mqtt/topic"
)

var _ Transport = (*MQTTTransport)(nil)

// MQTTTransport receives events published under {root}/events/#.
type MQTTTransport struct {
	client mqtt.Client
	topics *topic.TopicBuilder
	log    logr.Logger
}

func NewMQTTTransport(client mqtt.Client, topics *topic.TopicBuilder, log logr.Logger) *MQTTTransport {
	return &MQTTTransport{client: client, topics: topics, log: log}
}

func (t *MQTTTransport) Name() string { return "mqtt" }

func (t *MQTTTransport) Connected() bool { return t.client.IsConnected() }

func (t *MQTTTransport) Run(ctx context.Context, emit func(context.Context, Event)) error {
	t.client.OnReconnect(func() {
		t.log.Info("Event broker connection restored")
		emit(ctx, Event{Name: Reconnected})
	})
	if err := t.client.Start(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		t.client.Disconnect(shutdownCtx)
	}()

	filter := t.topics.EventsWildcard()
	err := t.client.Subscribe(ctx, filter, 1, func(ctx context.Context, topic string, payload []byte) {
		name, ok := t.topics.EventName(topic)
		if !ok {
			t.log.V(1).Info("Ignoring message outside the events branch", "topic", topic)
			return
		}
		emit(ctx, Event{Name: name, Payload: payload})
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}
