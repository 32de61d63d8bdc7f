package app

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fleetcore-io/fleetcore/cmd/fleetctl/app/options"
)

const envPrefix = "FLEET"

// loadConfig resolves every option with the precedence flag > environment >
// config file > default and decodes the result into opts.
func loadConfig(cmd *cobra.Command, opts *options.FleetctlOptions) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	explicit := opts.ConfigFile != ""
	if explicit {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigFile(options.DefaultConfigFile())
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	if err := v.Unmarshal(opts); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	return nil
}
