// Package server runs the long lived pieces of a watch session side by side:
// the event transport, the metrics endpoint and the renderer.
package server

import (
	"context"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
)

// Runnable blocks until ctx is done or it fails.
type Runnable interface {
	Start(ctx context.Context) error
}

// RunnableFunc adapts a function to Runnable.
type RunnableFunc func(ctx context.Context) error

func (f RunnableFunc) Start(ctx context.Context) error { return f(ctx) }

// Manager starts runnables together. The first failure stops the rest.
type Manager struct {
	runnables []Runnable
	log       logr.Logger
}

func NewManager(log logr.Logger) *Manager {
	return &Manager{log: log}
}

// Add registers r. Nil runnables are skipped so optional parts can be added
// unconditionally.
func (m *Manager) Add(r Runnable) {
	if r == nil {
		return
	}
	m.runnables = append(m.runnables, r)
}

// Start launches every runnable and waits for all of them to return.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range m.runnables {
		g.Go(func() error {
			return r.Start(ctx)
		})
	}

	m.log.V(1).Info("All runnables starting", "count", len(m.runnables))
	return g.Wait()
}
