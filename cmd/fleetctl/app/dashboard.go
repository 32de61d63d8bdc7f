package app

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fleetcore-io/fleetcore/internal/tui"
	"github.com/fleetcore-io/fleetcore/internal/views"
	"github.com/fleetcore-io/fleetcore/pkg/log"
)

func newDashboardCommand(f *factory) *cobra.Command {
	var upload bool

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Open the interactive fleet dashboard",
		Long: `dashboard shows the overview counters, the vehicle list and the command
queue in one full screen view kept live by the fleet event stream. Logs go
to fleetctl.log in the configuration directory while it is open.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationLogToFile: ""},
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, api, err := f.authenticated()
			if err != nil {
				return err
			}
			svc, err := f.EventService()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sink, err := f.Sink(ctx, upload)
			if err != nil {
				return err
			}

			l := log.WithName("views").Logr()
			cfg := tui.Config{
				Session:   sess,
				Dashboard: views.NewDashboardView(api, l),
				Vehicles:  views.NewVehiclesView(api, sess, l),
				Commands:  views.NewCommandsView(api, sess, l),
				Sink:      sink,
			}

			go func() {
				if err := svc.Run(ctx); err != nil {
					log.Error(err, "Event stream stopped")
				}
			}()
			return tui.Run(ctx, cfg, svc, f.Store(), log.WithName("tui").Logr())
		},
	}

	cmd.Flags().BoolVar(&upload, "upload", false, "Upload exports to the configured object store instead of the working directory.")
	return cmd
}
