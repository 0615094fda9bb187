package commands

import (
	"bufio"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// maxLine bounds a single stdin value.
const maxLine = 16 << 20

// NewEncryptCommand creates a new cobra command for the encrypt subcommand.
func NewEncryptCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:     "encrypt [flags] [values...]",
		Aliases: []string{"enc"},
		Short:   "Encrypt values, one per line",
		Long:    "Encrypts each argument, or each line of stdin when no arguments are given.",
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, _, err := fieldEncryptor(v)
			if err != nil {
				return err
			}
			stream := enc.Stream()

			return eachValue(cmd, args, func(value string) (string, error) {
				return stream.Encode(value), nil
			})
		},
	}
}

// NewDecryptCommand creates a new cobra command for the decrypt subcommand.
func NewDecryptCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:     "decrypt [flags] [values...]",
		Aliases: []string{"dec"},
		Short:   "Decrypt values, one per line",
		Long: `Decrypts each argument, or each line of stdin when no arguments are given.
With --compat a value that does not decrypt is printed in its legacy fallback form.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, cfg, err := fieldEncryptor(v)
			if err != nil {
				return err
			}
			stream, mode := enc.Stream(), cfg.Mode()

			return eachValue(cmd, args, func(value string) (string, error) {
				out, err := stream.DecodeMode(value, mode)
				if err != nil && !cfg.Compat {
					return "", err
				}
				return out, nil
			})
		},
	}
}

// eachValue applies fn to args, or to stdin lines when args is empty, and
// prints one result per line.
func eachValue(cmd *cobra.Command, args []string, fn func(string) (string, error)) (err error) {
	w := bufio.NewWriter(cmd.OutOrStdout())
	defer func() {
		if ferr := w.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("writing output: %w", ferr)
		}
	}()

	emit := func(n int, value string) error {
		out, err := fn(value)
		if err != nil {
			return fmt.Errorf("value %d: %w", n, err)
		}
		_, err = fmt.Fprintln(w, out)
		return err
	}

	if len(args) > 0 {
		for i, arg := range args {
			if err := emit(i+1, arg); err != nil {
				return err
			}
		}
		return nil
	}

	return eachLine(cmd.InOrStdin(), emit)
}

func eachLine(r io.Reader, fn func(int, string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	n := 0
	for scanner.Scan() {
		n++
		if err := fn(n, scanner.Text()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}
