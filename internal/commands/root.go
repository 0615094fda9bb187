package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zoobzio/shroud"
	"github.com/zoobzio/shroud/internal/config"
)

// NewRootCommand creates the root command with common configuration.
// Flags of whichever command runs are bound into v before it executes.
func NewRootCommand(v *viper.Viper, version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "shroud [flags] command [flags]",
		Short:         "Field encryption for medical records",
		Long:          `Encrypts and decrypts values and the sensitive fields of JSON records with RC5-32/12.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return v.BindPFlags(cmd.Flags())
		},
	}

	root.PersistentFlags().StringP("key", "k", "", "Encryption key as raw text")
	root.PersistentFlags().String("key-hex", "", "Encryption key, hex-encoded")
	root.PersistentFlags().Bool("compat", false, "Fall back to legacy output instead of failing on bad ciphertext")
	root.PersistentFlags().IntP("parallel", "j", runtime.NumCPU(), "Number of records decrypted in parallel")

	root.AddCommand(
		NewEncryptCommand(v),
		NewDecryptCommand(v),
		NewRecordCommand(v),
		NewFingerprintCommand(v),
	)

	return root
}

// fieldEncryptor loads and validates the configuration bound into v.
func fieldEncryptor(v *viper.Viper) (*shroud.FieldEncryptor, config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, config.Config{}, err
	}

	enc, err := cfg.FieldEncryptor()
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("configuring encryptor: %w", err)
	}

	return enc, cfg, nil
}
