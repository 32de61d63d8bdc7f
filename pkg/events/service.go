package events

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
)

// Transport maintains the connection to the event service and hands every
// received event to emit. Run returns when ctx is done; transient connection
// failures are retried inside Run.
type Transport interface {
	Name() string
	Run(ctx context.Context, emit func(ctx context.Context, e Event)) error
	Connected() bool
}

// Service owns the single long-lived event connection of a process and fans
// events out to the handlers registered on its Bus.
type Service struct {
	*Bus

	transport Transport
	log       logr.Logger
	observe   func(name string, handlers int)
}

type ServiceOption func(*Service)

func WithLogger(l logr.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

// WithObserver is called for every received event with the number of
// handlers it reached.
func WithObserver(fn func(name string, handlers int)) ServiceOption {
	return func(s *Service) { s.observe = fn }
}

func NewService(t Transport, opts ...ServiceOption) *Service {
	s := &Service{
		Bus:       NewBus(),
		transport: t,
		log:       logr.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until ctx is done or the transport fails permanently.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info("Starting event transport", "transport", s.transport.Name())

	err := s.transport.Run(ctx, s.deliver)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("event transport %s: %w", s.transport.Name(), err)
	}
	return nil
}

// Ready reports whether the transport is currently connected.
func (s *Service) Ready() bool {
	return s.transport.Connected()
}

func (s *Service) deliver(ctx context.Context, e Event) {
	n := s.Dispatch(ctx, e)
	s.log.V(1).Info("Event received", "event", e.Name, "handlers", n)
	if s.observe != nil {
		s.observe(e.Name, n)
	}
}

// NopTransport never delivers anything. It serves one-shot commands that do
// not need live updates.
type NopTransport struct{}

func (NopTransport) Name() string { return "none" }

func (NopTransport) Run(ctx context.Context, _ func(context.Context, Event)) error {
	<-ctx.Done()
	return nil
}

func (NopTransport) Connected() bool { return false }
