// Package config holds the command-line configuration.
package config

import (
	"encoding/hex"
	"fmt"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/zoobzio/shroud"
)

// EnvPrefix is prepended to every environment variable, as in SHROUD_KEY_HEX.
const EnvPrefix = "SHROUD"

// Config is resolved from flags and environment.
type Config struct {
	Key      string   `mapstructure:"key" validate:"required_without=KeyHex,exclusive=KeyHex"`
	KeyHex   string   `mapstructure:"key-hex" validate:"required_without=Key,omitempty,hexkey"`
	Compat   bool     `mapstructure:"compat"`
	Parallel int      `mapstructure:"parallel" validate:"gte=1"`
	Fields   []string `mapstructure:"fields" validate:"dive,required"`
}

// Load reads a Config from v. Keys not bound to a flag fall back to the
// SHROUD_* environment and then to the defaults.
func Load(v *viper.Viper) (Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("key", "")
	v.SetDefault("key-hex", "")
	v.SetDefault("compat", false)
	v.SetDefault("parallel", runtime.NumCPU())
	v.SetDefault("fields", []string{})

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration against the struct tags.
func (c Config) Validate() error {
	validate := validator.New()

	if err := validate.RegisterValidation("exclusive", validateExclusive); err != nil {
		return fmt.Errorf("registering exclusive validation: %w", err)
	}
	if err := validate.RegisterValidation("hexkey", validateHexKey); err != nil {
		return fmt.Errorf("registering hexkey validation: %w", err)
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}

	return nil
}

// KeyBytes returns the key material, decoding KeyHex when it is set.
func (c Config) KeyBytes() ([]byte, error) {
	if c.KeyHex != "" {
		key, err := hex.DecodeString(c.KeyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid key format: %w", err)
		}
		return key, nil
	}
	return []byte(c.Key), nil
}

// Mode returns the decode mode selected by Compat.
func (c Config) Mode() shroud.Mode {
	if c.Compat {
		return shroud.ModeCompat
	}
	return shroud.ModeStrict
}

// FieldEncryptor validates c and builds the encryptor it describes.
func (c Config) FieldEncryptor() (*shroud.FieldEncryptor, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	key, err := c.KeyBytes()
	if err != nil {
		return nil, err
	}

	opts := []shroud.FieldOption{
		shroud.WithMode(c.Mode()),
		shroud.WithParallel(c.Parallel),
	}
	if len(c.Fields) > 0 {
		opts = append(opts, shroud.WithFields(c.Fields...))
	}

	return shroud.NewFieldEncryptor(key, opts...), nil
}
