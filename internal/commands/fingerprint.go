package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zoobzio/shroud"
	"github.com/zoobzio/shroud/internal/config"
)

// NewFingerprintCommand creates a new cobra command for the fingerprint subcommand.
func NewFingerprintCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print a non-reversible identifier for the key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			key, err := cfg.KeyBytes()
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), shroud.Fingerprint(key))
			return err
		},
	}
}
