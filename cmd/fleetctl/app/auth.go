package app

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fleetcore-io/fleetcore/internal/model"
)

func newLoginCommand(f *factory) *cobra.Command {
	var creds model.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if creds.Password == "" {
				pw, err := prompt(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
				if err != nil {
					return err
				}
				creds.Password = pw
			}

			auth, err := f.Auth()
			if err != nil {
				return err
			}
			sess, err := auth.Login(cmd.Context(), creds)
			if err != nil {
				return err
			}
			success(cmd, "Logged in as %s (%s)", sess.Username, sess.Role)
			return nil
		},
	}

	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "Account name.")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "Password. Read from stdin when omitted.")
	return cmd
}

func newRegisterCommand(f *factory) *cobra.Command {
	var reg model.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if reg.Password == "" {
				pw, err := prompt(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
				if err != nil {
					return err
				}
				reg.Password = pw
			}

			auth, err := f.Auth()
			if err != nil {
				return err
			}
			if err := auth.Register(cmd.Context(), reg); err != nil {
				return err
			}
			success(cmd, "Account %s created, run 'fleetctl login' to sign in", reg.Username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&reg.Username, "username", "u", "", "Account name.")
	cmd.Flags().StringVar(&reg.Email, "email", "", "Contact e-mail address.")
	cmd.Flags().StringVarP(&reg.Password, "password", "p", "", "Password. Read from stdin when omitted.")
	return cmd
}

func newLogoutCommand(f *factory) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth, err := f.Auth()
			if err != nil {
				return err
			}
			if err := auth.Logout(); err != nil {
				return err
			}
			success(cmd, "Logged out")
			return nil
		},
	}
}

func newWhoamiCommand(f *factory) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := f.Session()
			if err != nil {
				return err
			}

			expires := "never"
			if !sess.ExpiresAt.IsZero() {
				expires = sess.ExpiresAt.Local().Format(time.RFC1123)
			}
			printTable(cmd.OutOrStdout(),
				[]string{"USER", "ROLE", "EXPIRES"},
				[][]string{{sess.Username, string(sess.Role), expires}},
			)
			return nil
		},
	}
}

func newSettingsCommand(f *factory) *cobra.Command {
	var (
		upd         model.SettingsUpdate
		askPassword bool
	)

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Change the username or password of the logged in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := f.Session(); err != nil {
				return err
			}
			if askPassword {
				pw, err := prompt(cmd.InOrStdin(), cmd.ErrOrStderr(), "New password: ")
				if err != nil {
					return err
				}
				upd.Password = pw
			}

			auth, err := f.Auth()
			if err != nil {
				return err
			}
			if err := auth.UpdateSettings(cmd.Context(), upd); err != nil {
				return err
			}
			success(cmd, "Settings updated")
			return nil
		},
	}

	cmd.Flags().StringVarP(&upd.Username, "username", "u", "", "New account name.")
	cmd.Flags().BoolVar(&askPassword, "password", false, "Prompt for a new password.")
	return cmd
}

// prompt reads one line from in. The line is echoed; pipe secrets in rather
// than typing them on shared terminals.
func prompt(in io.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
