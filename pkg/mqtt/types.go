package mqtt

import (
	"context"
)

// MessageHandler processes a message received on a subscribed topic.
// Handlers run on the client's receive goroutine in arrival order and must
// return quickly.
type MessageHandler func(ctx context.Context, topic string, payload []byte)

// Client is the subset of MQTT the fleet event transport relies on.
// It hides the autopaho connection manager.
type Client interface {
	// Start connects in the background and returns immediately.
	Start(ctx context.Context) error

	Disconnect(ctx context.Context)

	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Subscribe registers handler for a topic filter. Registered filters are
	// sent again every time the connection comes back up.
	Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error

	Unsubscribe(ctx context.Context, topic string) error

	// AwaitConnection blocks until connected or ctx is done.
	AwaitConnection(ctx context.Context) error

	IsConnected() bool

	// OnReconnect registers fn to run after a dropped connection is back up
	// and the stored filters have been subscribed again. It is not called
	// for the first connection.
	OnReconnect(fn func())
}
