package app

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/fleetcore-io/fleetcore/internal/model"
	"github.com/fleetcore-io/fleetcore/internal/projection"
	"github.com/fleetcore-io/fleetcore/internal/views"
	"github.com/fleetcore-io/fleetcore/pkg/log"
)

func newCommandsCommand(f *factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "commands",
		Aliases: []string{"command", "c"},
		Short:   "File and answer operator commands",
		Long: `Operators file text commands for the fleet administrators, who answer
them. Regular users only see the commands they filed.`,
	}
	cmd.AddCommand(
		newCommandsListCommand(f),
		newCommandsSendCommand(f),
		newCommandsReplyCommand(f),
		newCommandsExportCommand(f),
	)
	return cmd
}

func (f *factory) commandsView() (*views.CommandsView, error) {
	sess, api, err := f.authenticated()
	if err != nil {
		return nil, err
	}
	return views.NewCommandsView(api, sess, log.WithName("views").Logr()), nil
}

func newCommandsListCommand(f *factory) *cobra.Command {
	var lf listFlags

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List commands",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := f.commandsView()
			if err != nil {
				return err
			}
			defer v.Unmount()

			if err := loadList(cmd.Context(), v.List, &lf); err != nil {
				return err
			}
			return printList(cmd.OutOrStdout(), v.List, lf.output)
		},
	}

	lf.addQueryFlags(cmd, projection.Commands.SortFields(), projection.Commands.DefaultQuery())
	lf.addOutputFlag(cmd)
	return cmd
}

func newCommandsSendCommand(f *factory) *cobra.Command {
	var requester string

	cmd := &cobra.Command{
		Use:   "send MESSAGE...",
		Short: "File a command",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := f.commandsView()
			if err != nil {
				return err
			}
			defer v.Unmount()

			message := strings.Join(args, " ")
			if cmd.Flags().Changed("as") {
				err = v.SendOnBehalf(cmd.Context(), requester, message)
			} else {
				err = v.Send(cmd.Context(), message)
			}
			if err != nil {
				return err
			}
			success(cmd, "Command sent")
			return nil
		},
	}

	cmd.Flags().StringVar(&requester, "as", "", "File the command on behalf of this user (admin).")
	return cmd
}

func newCommandsReplyCommand(f *factory) *cobra.Command {
	return &cobra.Command{
		Use:   "reply ID RESPONSE...",
		Short: "Answer a queued command (admin)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := f.commandsView()
			if err != nil {
				return err
			}
			defer v.Unmount()

			// Reply checks the command against the current snapshot.
			v.Mount(nil)
			if err := settle(cmd.Context(), v); err != nil {
				return err
			}
			id := model.ID(args[0])
			if err := v.Reply(cmd.Context(), id, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			success(cmd, "Command %s answered", id)
			return nil
		},
	}
}

func newCommandsExportCommand(f *factory) *cobra.Command {
	var (
		lf listFlags
		ef exportFlags
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the command list as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := f.commandsView()
			if err != nil {
				return err
			}
			defer v.Unmount()

			if err := loadList(cmd.Context(), v.List, &lf); err != nil {
				return err
			}
			return ef.run(cmd, f, v.Export)
		},
	}

	lf.addQueryFlags(cmd, projection.Commands.SortFields(), projection.Commands.DefaultQuery())
	ef.addFlags(cmd, "commands.csv")
	return cmd
}
