package app

import (
	"context"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/term"

	"github.com/fleetcore-io/fleetcore/cmd/fleetctl/app/options"
	"github.com/fleetcore-io/fleetcore/pkg/log"
	genericoptions "github.com/fleetcore-io/fleetcore/pkg/options"
)

const (
	commandName = "fleetctl"
	commandDesc = `fleetctl manages a vehicle fleet from the terminal. It lists, edits and
exports vehicles, files and answers operator commands, and can keep any of
those views live by following the fleet event stream.`

	// annotationLogToFile moves logging off the terminal for full screen
	// commands.
	annotationLogToFile = "fleetctl/log-to-file"
)

// NewFleetctlCommand builds the command tree. ctx is cancelled on SIGINT or
// SIGTERM.
func NewFleetctlCommand(ctx context.Context) *cobra.Command {
	opts := options.NewFleetctlOptions()
	f := newFactory(opts)

	cmd := &cobra.Command{
		Use:           commandName,
		Short:         "Fleet management client",
		Long:          commandDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(cmd, opts); err != nil {
				return err
			}
			if err := opts.Complete(); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			if _, ok := cmd.Annotations[annotationLogToFile]; ok {
				redirectLogs(opts)
			}
			log.Init(opts.Log)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = log.Sync()
		},
	}
	cmd.SetContext(ctx)

	namedFlagSets := opts.AddFlags(cmd.PersistentFlags())
	cols, _, _ := term.TerminalSize(cmd.OutOrStdout())
	cliflag.SetUsageAndHelpFunc(cmd, namedFlagSets, cols)

	cmd.AddCommand(
		newLoginCommand(f),
		newRegisterCommand(f),
		newLogoutCommand(f),
		newWhoamiCommand(f),
		newSettingsCommand(f),
		newVehiclesCommand(f),
		newCommandsCommand(f),
		newStatsCommand(f),
		newWatchCommand(f),
		newDashboardCommand(f),
	)
	return cmd
}

// redirectLogs sends logs to a file next to the session when they would
// otherwise land on the terminal.
func redirectLogs(opts *options.FleetctlOptions) {
	if !slices.Equal(opts.Log.OutputPaths, []string{"stderr"}) {
		return
	}
	dir := genericoptions.ConfigDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return
	}
	opts.Log.OutputPaths = []string{filepath.Join(dir, "fleetctl.log")}
	opts.Log.EnableColor = false
}
