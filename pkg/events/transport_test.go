package events_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetcore-io/fleetcore/pkg/events"
	"github.com/fleetcore-io/fleetcore/pkg/mqtt"
	"github.com/fleetcore-io/fleetcore/pkg/mqtt/topic"
	"github.com/fleetcore-io/fleetcore/pkg/socketio"
	"github.com/fleetcore-io/fleetcore/pkg/socketio/socketiotest"
)

func collect(svc *events.Service, name string) <-chan events.Event {
	ch := make(chan events.Event, 16)
	svc.On(name, func(_ context.Context, e events.Event) { ch <- e })
	return ch
}

func TestSocketIOServiceDeliversAndReconnects(t *testing.T) {
	srv := socketiotest.NewServer()
	defer srv.Close()

	var attempts int
	var mu sync.Mutex
	header := func() http.Header {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		return http.Header{"Authorization": []string{"Bearer abc"}}
	}

	tr := events.NewSocketIOTransport(socketio.Config{URL: srv.URL}, 10*time.Millisecond, 50*time.Millisecond, header, logr.Discard())

	var observed []string
	var obsMu sync.Mutex
	svc := events.NewService(tr, events.WithObserver(func(name string, _ int) {
		obsMu.Lock()
		observed = append(observed, name)
		obsMu.Unlock()
	}))
	created := collect(svc, events.VehicleCreated)
	reconnected := collect(svc, events.Reconnected)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.True(t, srv.WaitConnected(5*time.Second))
	require.Eventually(t, svc.Ready, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Emit(events.VehicleCreated, map[string]string{"plate_no": "AB-1"}))
	select {
	case e := <-created:
		assert.JSONEq(t, `{"plate_no":"AB-1"}`, string(e.Payload))
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}

	srv.DropClients()
	require.True(t, srv.WaitConnected(5*time.Second), "transport should reconnect")
	require.Eventually(t, func() bool { return srv.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	select {
	case <-reconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("reconnect not announced")
	}

	require.NoError(t, srv.Emit(events.VehicleCreated, nil))
	select {
	case <-created:
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered after reconnect")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}

	mu.Lock()
	assert.GreaterOrEqual(t, attempts, 2)
	mu.Unlock()
	obsMu.Lock()
	assert.Equal(t, []string{events.VehicleCreated, events.Reconnected, events.VehicleCreated}, observed)
	obsMu.Unlock()
}

func TestSocketIOMalformedEventKeepsConnection(t *testing.T) {
	srv := socketiotest.NewServer()
	defer srv.Close()

	var dials int
	var mu sync.Mutex
	header := func() http.Header {
		mu.Lock()
		defer mu.Unlock()
		dials++
		return nil
	}

	tr := events.NewSocketIOTransport(socketio.Config{URL: srv.URL}, 10*time.Millisecond, 50*time.Millisecond, header, logr.Discard())
	svc := events.NewService(tr)
	updated := collect(svc, events.VehicleUpdated)
	reconnected := collect(svc, events.Reconnected)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Run(ctx) }()

	require.True(t, srv.WaitConnected(5*time.Second))
	require.Eventually(t, svc.Ready, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Raw(`42[1,"x"]`))
	require.NoError(t, srv.Raw(`42["vehicle:updated",{broken`))
	require.NoError(t, srv.Emit(events.VehicleUpdated, map[string]int{"id": 3}))

	select {
	case e := <-updated:
		assert.JSONEq(t, `{"id":3}`, string(e.Payload))
	case <-time.After(5 * time.Second):
		t.Fatal("event after malformed packets not delivered")
	}

	assert.True(t, svc.Ready())
	assert.Equal(t, 1, srv.Clients())
	assert.Empty(t, reconnected)
	mu.Lock()
	assert.Equal(t, 1, dials)
	mu.Unlock()
}

type fakeMQTT struct {
	mu       sync.Mutex
	started  bool
	handlers map[string]mqtt.MessageHandler
	subbed   chan struct{}

	onReconnect func()
}

func (f *fakeMQTT) Start(context.Context) error { f.started = true; return nil }
func (f *fakeMQTT) Disconnect(context.Context)  {}
func (f *fakeMQTT) Publish(context.Context, string, int, bool, []byte) error {
	return nil
}
func (f *fakeMQTT) Subscribe(_ context.Context, filter string, _ int, h mqtt.MessageHandler) error {
	f.mu.Lock()
	f.handlers[filter] = h
	f.mu.Unlock()
	close(f.subbed)
	return nil
}
func (f *fakeMQTT) Unsubscribe(context.Context, string) error { return nil }
func (f *fakeMQTT) AwaitConnection(context.Context) error     { return nil }
func (f *fakeMQTT) IsConnected() bool                         { return true }

func (f *fakeMQTT) OnReconnect(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onReconnect = fn
}

func (f *fakeMQTT) reconnect() {
	f.mu.Lock()
	fn := f.onReconnect
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (f *fakeMQTT) deliver(ctx context.Context, topicName string, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for filter, h := range f.handlers {
		if mqtt.TopicMatches(filter, topicName) {
			h(ctx, topicName, payload)
		}
	}
}

func TestMQTTServiceMapsTopicsToEventNames(t *testing.T) {
	client := &fakeMQTT{handlers: map[string]mqtt.MessageHandler{}, subbed: make(chan struct{})}
	topics := topic.NewTopicBuilder("fleet/v1")
	svc := events.NewService(events.NewMQTTTransport(client, topics, logr.Discard()))
	updated := collect(svc, events.CommandUpdated)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Run(ctx) }()

	select {
	case <-client.subbed:
	case <-time.After(5 * time.Second):
		t.Fatal("transport never subscribed")
	}
	assert.True(t, svc.Ready())

	client.deliver(ctx, "fleet/v1/events/command/updated", []byte(`{"id":7}`))
	client.deliver(ctx, "fleet/v1/events/vehicle/created", nil)

	select {
	case e := <-updated:
		assert.Equal(t, events.CommandUpdated, e.Name)
		assert.JSONEq(t, `{"id":7}`, string(e.Payload))
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}
	assert.Empty(t, updated)
}

func TestMQTTReconnectIsAnnounced(t *testing.T) {
	client := &fakeMQTT{handlers: map[string]mqtt.MessageHandler{}, subbed: make(chan struct{})}
	svc := events.NewService(events.NewMQTTTransport(client, topic.NewTopicBuilder("fleet/v1"), logr.Discard()))
	reconnected := collect(svc, events.Reconnected)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Run(ctx) }()

	select {
	case <-client.subbed:
	case <-time.After(5 * time.Second):
		t.Fatal("transport never subscribed")
	}
	assert.Empty(t, reconnected)

	client.reconnect()
	select {
	case e := <-reconnected:
		assert.Equal(t, events.Reconnected, e.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("reconnect not announced")
	}
}
