package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-logr/logr"

	"github.com/fleetcore-io/fleetcore/internal/session"
	"github.com/fleetcore-io/fleetcore/internal/synchronizer"
	"github.com/fleetcore-io/fleetcore/pkg/events"
)

// Run mounts the views on sub, shows the dashboard until the user quits or
// ctx is done, and unmounts everything. When the stored session changes
// underneath, the dashboard exits with an *session.AuthError.
func Run(ctx context.Context, cfg Config, sub events.Subscriber, store *session.Store, log logr.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := New(ctx, cfg)
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())

	// Listeners must not block, so changes are coalesced and forwarded by
	// a single goroutine.
	pending := make(chan struct{}, 1)
	notify := func(synchronizer.Status) {
		select {
		case pending <- struct{}{}:
		default:
		}
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-pending:
				p.Send(syncMsg{})
			}
		}
	}()

	defer cfg.Dashboard.OnChange(notify)()
	defer cfg.Vehicles.OnChange(notify)()
	defer cfg.Commands.OnChange(notify)()

	cfg.Dashboard.Mount(sub)
	cfg.Vehicles.Mount(sub)
	cfg.Commands.Mount(sub)
	defer cfg.Dashboard.Unmount()
	defer cfg.Vehicles.Unmount()
	defer cfg.Commands.Unmount()

	gate := session.NewGate(store)
	go func() {
		err := store.Watch(ctx, log, func() {
			if current, err := gate.Require(); err != nil || current.Token != cfg.Session.Token {
				p.Send(sessionEndedMsg{})
			}
		})
		if err != nil {
			log.Error(err, "Session watcher stopped")
		}
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	if m.SessionEnded() {
		return &session.AuthError{Reason: "logged out while the dashboard was open"}
	}
	return nil
}
