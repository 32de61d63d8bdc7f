// Package events delivers named real-time notifications from the fleet event
// service to in-process handlers. Events carry no state the client relies on:
// a handler treats an event as a hint that some server data changed and
// re-fetches. Delivery is at-least-once, so handlers must be idempotent.
package events

import (
	"context"
	"encoding/json"
)

// Event names pushed by the fleet backend.
const (
	VehicleCreated  = "vehicle:created"
	VehicleUpdated  = "vehicle:updated"
	VehicleDeleted  = "vehicle:deleted"
	CommandReceived = "command:received"
	CommandUpdated  = "command:updated"
)

// Reconnected is emitted locally by a transport when a dropped connection is
// re-established. Events published in between were missed, so every view
// treats it as an invalidation.
const Reconnected = "transport:reconnected"

var (
	// VehicleEvents invalidate vehicle lists.
	VehicleEvents = []string{VehicleCreated, VehicleUpdated, VehicleDeleted}
	// CommandEvents invalidate command lists.
	CommandEvents = []string{CommandReceived, CommandUpdated}
)

// All returns every known event name.
func All() []string {
	all := make([]string, 0, len(VehicleEvents)+len(CommandEvents))
	all = append(all, VehicleEvents...)
	return append(all, CommandEvents...)
}

// Event is a single notification. Payload is passed through uninterpreted.
type Event struct {
	Name    string
	Payload json.RawMessage
}

// Handler reacts to an event. Handlers run on the transport's receive
// goroutine, in arrival order, and must not block.
type Handler func(ctx context.Context, e Event)

// Subscription is the handle returned by Subscriber.On.
type Subscription interface {
	// Unsubscribe removes the handler. It is safe to call more than once.
	Unsubscribe()
}

// Subscriber registers handlers by event name.
type Subscriber interface {
	On(name string, h Handler) Subscription

	// Off removes every handler for the given names, or every handler at all
	// when no name is given.
	Off(names ...string)
}
