package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/fleetcore-io/fleetcore/internal/apiclient"
	"github.com/fleetcore-io/fleetcore/internal/pkg/metrics"
	"github.com/fleetcore-io/fleetcore/internal/server"
	"github.com/fleetcore-io/fleetcore/internal/synchronizer"
	"github.com/fleetcore-io/fleetcore/pkg/events"
	"github.com/fleetcore-io/fleetcore/pkg/log"
	genericoptions "github.com/fleetcore-io/fleetcore/pkg/options"
)

// watchable is the part of a view a live renderer needs.
type watchable interface {
	Mount(sub events.Subscriber)
	Unmount()
	OnChange(fn func(synchronizer.Status)) func()
	Status() synchronizer.Status
}

func newWatchCommand(f *factory) *cobra.Command {
	var lf listFlags

	cmd := &cobra.Command{
		Use:   "watch vehicles|commands|stats",
		Short: "Print a view again every time the fleet changes",
		Long: `watch follows the fleet event stream and prints the chosen view after
every refetch. With --metrics.addr it also serves /metrics, /healthz and
/readyz for the duration of the session.`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"vehicles", "commands", "stats"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				view   watchable
				render func(io.Writer) error
			)
			switch args[0] {
			case "vehicles":
				v, err := f.vehiclesView()
				if err != nil {
					return err
				}
				if err := applyQuery(v.List, &lf); err != nil {
					return err
				}
				view, render = v, func(w io.Writer) error { return printList(w, v.List, outputTable) }
			case "commands":
				v, err := f.commandsView()
				if err != nil {
					return err
				}
				if err := applyQuery(v.List, &lf); err != nil {
					return err
				}
				view, render = v, func(w io.Writer) error { return printList(w, v.List, outputTable) }
			case "stats":
				d, err := f.dashboardView()
				if err != nil {
					return err
				}
				view, render = d, func(w io.Writer) error {
					s, _ := d.Stats()
					printStats(w, s)
					return nil
				}
			}

			svc, err := f.EventService()
			if err != nil {
				return err
			}
			return runWatch(cmd.Context(), f, svc, view, render, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&lf.search, "search", "", "Only rows containing this text, ignoring case.")
	cmd.Flags().StringVar(&lf.sort, "sort", "", "Sort field. Defaults to the view's default sort.")
	cmd.Flags().StringVar(&lf.order, "order", "", "Sort order, asc or desc.")
	return cmd
}

func runWatch(ctx context.Context, f *factory, svc *events.Service, view watchable, render func(io.Writer) error, out, errOut io.Writer) error {
	l := log.WithName("watch").Logr()

	ready := svc.Ready
	if f.opts.Events.Transport == genericoptions.TransportNone {
		ready = nil
	}
	metrics.RegisterEventConnection(svc.Ready)

	m := server.NewManager(l)
	m.Add(server.RunnableFunc(svc.Run))
	if srv := server.NewHTTPServer(f.opts.Metrics, metrics.Registry, ready, log.WithName("metrics").Logr()); srv != nil {
		m.Add(srv)
	}
	m.Add(server.RunnableFunc(func(ctx context.Context) error {
		return renderLoop(ctx, svc, view, render, out, errOut)
	}))
	return m.Start(ctx)
}

// renderLoop mounts view on sub and renders every newly settled snapshot.
// Failed refetches are reported and the loop keeps going, except for a 401
// which ends it.
func renderLoop(ctx context.Context, sub events.Subscriber, view watchable, render func(io.Writer) error, out, errOut io.Writer) error {
	pending := make(chan struct{}, 1)
	defer view.OnChange(func(synchronizer.Status) {
		select {
		case pending <- struct{}{}:
		default:
		}
	})()

	view.Mount(sub)
	defer view.Unmount()

	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pending:
		}

		st := view.Status()
		switch st.State {
		case synchronizer.StateError:
			if apiclient.IsUnauthorized(st.Err) {
				return st.Err
			}
			red.Fprintf(errOut, "%s refresh failed: %s\n", time.Now().Format(time.TimeOnly), apiclient.Message(st.Err))
		case synchronizer.StateReady:
			if st.UpdatedAt.Equal(last) {
				continue
			}
			last = st.UpdatedAt
			fmt.Fprintf(out, "\n# %s\n", st.UpdatedAt.Local().Format(time.TimeOnly))
			if err := render(out); err != nil {
				return err
			}
		}
	}
}
