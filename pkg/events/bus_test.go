package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusDispatchInRegistrationOrder(t *testing.T) {
	bus := NewBus()
	var order []string

	bus.On(VehicleCreated, func(_ context.Context, e Event) { order = append(order, "first:"+e.Name) })
	bus.On(VehicleCreated, func(_ context.Context, e Event) { order = append(order, "second:"+e.Name) })
	bus.On(VehicleDeleted, func(_ context.Context, e Event) { order = append(order, "other") })

	n := bus.Dispatch(context.Background(), Event{Name: VehicleCreated})

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"first:vehicle:created", "second:vehicle:created"}, order)
}

func TestBusUnsubscribeRemovesOneHandler(t *testing.T) {
	bus := NewBus()
	calls := map[string]int{}

	a := bus.On(CommandUpdated, func(context.Context, Event) { calls["a"]++ })
	bus.On(CommandUpdated, func(context.Context, Event) { calls["b"]++ })

	a.Unsubscribe()
	a.Unsubscribe()
	bus.Dispatch(context.Background(), Event{Name: CommandUpdated})

	assert.Equal(t, map[string]int{"b": 1}, calls)
	assert.Equal(t, 1, bus.Handlers(CommandUpdated))
}

func TestBusOff(t *testing.T) {
	bus := NewBus()
	for _, name := range All() {
		bus.On(name, func(context.Context, Event) {})
	}

	bus.Off(VehicleCreated, VehicleUpdated)
	assert.Zero(t, bus.Handlers(VehicleCreated))
	assert.Equal(t, 1, bus.Handlers(CommandReceived))

	bus.Off()
	for _, name := range All() {
		assert.Zero(t, bus.Handlers(name), name)
	}
}

func TestHandlerMayUnsubscribeItself(t *testing.T) {
	bus := NewBus()
	calls := 0
	var sub Subscription
	sub = bus.On(VehicleUpdated, func(context.Context, Event) {
		calls++
		sub.Unsubscribe()
	})

	bus.Dispatch(context.Background(), Event{Name: VehicleUpdated})
	bus.Dispatch(context.Background(), Event{Name: VehicleUpdated})
	assert.Equal(t, 1, calls)
}

func TestGroupCloseReleasesOnlyItsHandlers(t *testing.T) {
	bus := NewBus()
	bus.On(VehicleCreated, func(context.Context, Event) {})

	g := NewGroup(bus)
	for _, name := range VehicleEvents {
		g.On(name, func(context.Context, Event) {})
	}
	assert.Equal(t, 2, bus.Handlers(VehicleCreated))

	g.Close()
	assert.Equal(t, 1, bus.Handlers(VehicleCreated))
	assert.Zero(t, bus.Handlers(VehicleDeleted))

	g.On(VehicleDeleted, func(context.Context, Event) {}).Unsubscribe()
	assert.Zero(t, bus.Handlers(VehicleDeleted), "closed group must not subscribe")
}

func TestGroupOffByName(t *testing.T) {
	bus := NewBus()
	g := NewGroup(bus)
	g.On(CommandReceived, func(context.Context, Event) {})
	g.On(CommandUpdated, func(context.Context, Event) {})

	g.Off(CommandReceived)
	assert.Zero(t, bus.Handlers(CommandReceived))
	assert.Equal(t, 1, bus.Handlers(CommandUpdated))
}
