package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zoobzio/shroud"
	"github.com/zoobzio/shroud/json"
)

var errNotRecords = errors.New("input must be a JSON object or an array")

// NewRecordCommand creates the record command and its encrypt and decrypt
// subcommands.
func NewRecordCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record command [flags]",
		Short: "Encrypt or decrypt the sensitive fields of JSON records",
		Long: `Reads a JSON object or an array of objects from stdin and writes the result to stdout.
Only the allow-listed string fields are changed; --fields replaces the allow-list.`,
	}

	cmd.PersistentFlags().StringSlice("fields", nil, "Field names to encrypt (default: the built-in allow-list)")

	cmd.AddCommand(
		&cobra.Command{
			Use:     "encrypt",
			Aliases: []string{"enc"},
			Short:   "Encrypt JSON records read from stdin",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runRecord(cmd, v, encryptRecords)
			},
		},
		&cobra.Command{
			Use:     "decrypt",
			Aliases: []string{"dec"},
			Short:   "Decrypt JSON records read from stdin",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runRecord(cmd, v, decryptRecords)
			},
		},
	)

	return cmd
}

type recordFunc func(cmd *cobra.Command, enc *shroud.FieldEncryptor, in any) (any, error)

func runRecord(cmd *cobra.Command, v *viper.Viper, fn recordFunc) error {
	enc, _, err := fieldEncryptor(v)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	codec := json.New()

	var in any
	if err := codec.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("parsing input: %w", err)
	}

	out, err := fn(cmd, enc, in)
	if err != nil {
		return err
	}

	encoded, err := codec.Marshal(out)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return err
}

func encryptRecords(cmd *cobra.Command, enc *shroud.FieldEncryptor, in any) (any, error) {
	ctx := cmd.Context()

	switch v := in.(type) {
	case map[string]any:
		return enc.EncryptRecord(ctx, v), nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			if m, ok := item.(map[string]any); ok {
				out[i] = enc.EncryptRecord(ctx, m)
				continue
			}
			out[i] = item
		}
		return out, nil
	default:
		return nil, errNotRecords
	}
}

func decryptRecords(cmd *cobra.Command, enc *shroud.FieldEncryptor, in any) (any, error) {
	ctx := cmd.Context()

	switch v := in.(type) {
	case map[string]any:
		return enc.DecryptRecord(ctx, v)
	case []any:
		return enc.DecryptPayload(ctx, v)
	default:
		return nil, errNotRecords
	}
}
