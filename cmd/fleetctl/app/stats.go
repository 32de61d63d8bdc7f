package app

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fleetcore-io/fleetcore/internal/model"
	"github.com/fleetcore-io/fleetcore/internal/views"
	"github.com/fleetcore-io/fleetcore/pkg/log"
)

func (f *factory) dashboardView() (*views.DashboardView, error) {
	_, api, err := f.authenticated()
	if err != nil {
		return nil, err
	}
	return views.NewDashboardView(api, log.WithName("views").Logr()), nil
}

func newStatsCommand(f *factory) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show fleet overview counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := f.dashboardView()
			if err != nil {
				return err
			}
			defer d.Unmount()

			d.Mount(nil)
			if err := settle(cmd.Context(), d); err != nil {
				return err
			}
			s, _ := d.Stats()
			if output == outputJSON {
				return printJSON(cmd.OutOrStdout(), s)
			}
			printStats(cmd.OutOrStdout(), s)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table or json.")
	return cmd
}

func printStats(w io.Writer, s model.Stats) {
	printTable(w,
		[]string{"TOTAL", "ACTIVE", "MAINTENANCE", "OFFLINE", "QUEUED COMMANDS"},
		[][]string{{
			strconv.Itoa(s.Total),
			strconv.Itoa(s.Active),
			strconv.Itoa(s.Maintenance),
			strconv.Itoa(s.Offline),
			strconv.Itoa(s.Queued),
		}},
	)
}
