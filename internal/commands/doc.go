// Package commands provides the command-line interface for the shroud tool.
//
// It implements commands for:
//   - encrypting and decrypting single values
//   - encrypting and decrypting JSON records
//   - printing a key fingerprint
//
// Flags and SHROUD_* environment variables are merged through viper.
package commands
