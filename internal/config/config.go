// Package config resolves runtime settings from flags, environment
// variables and an optional pixwap.yaml in the working directory.
// Precedence follows viper: flag > env > file > default.
package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Raster strategy names accepted by the --raster flag.
const (
	RasterAuto   = "auto"
	RasterBitmap = "bitmap"
	RasterSpill  = "spill"
)

// Config holds the settings shared by every subcommand.
type Config struct {
	// Locale is a BCP 47 tag used to order directory listings. Empty
	// means the undetermined locale, which sorts by Unicode collation.
	Locale string `mapstructure:"locale"`

	// LogLimit caps the number of retained conversion log entries.
	LogLimit int `mapstructure:"log_limit"`

	// Raster selects the decode strategy: auto, bitmap or spill.
	Raster string `mapstructure:"raster"`
}

// InitFlags registers the persistent flags backing the config keys.
func InitFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("locale", "", "BCP 47 tag for listing order (e.g. da, sv)")
	cmd.PersistentFlags().Int("log-limit", 20, "conversion log entries to retain")
	cmd.PersistentFlags().String("raster", RasterAuto, "decode strategy: auto, bitmap or spill")
}

// Load resolves the effective configuration for cmd. A missing config
// file is fine; a malformed one is not.
func Load(cmd *cobra.Command) (*Config, error) {
	// Opportunistic: a .env in the working directory feeds the PIXWAP_*
	// variables below.
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("locale", "")
	v.SetDefault("log_limit", 20)
	v.SetDefault("raster", RasterAuto)

	_ = v.BindEnv("locale", "PIXWAP_LOCALE")
	_ = v.BindEnv("log_limit", "PIXWAP_LOG_LIMIT")
	_ = v.BindEnv("raster", "PIXWAP_RASTER")

	v.SetConfigName("pixwap")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	root := cmd.Root()
	for key, flag := range map[string]string{
		"locale":    "locale",
		"log_limit": "log-limit",
		"raster":    "raster",
	} {
		f := root.PersistentFlags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", flag, err)
		}
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Raster {
	case RasterAuto, RasterBitmap, RasterSpill:
	default:
		return fmt.Errorf("unknown raster strategy %q", c.Raster)
	}
	if c.LogLimit < 1 {
		return fmt.Errorf("log limit must be positive, got %d", c.LogLimit)
	}
	return nil
}

// Collator builds the collator matching the configured locale. Unknown
// tags degrade to the undetermined locale rather than failing.
func (c *Config) Collator() *collate.Collator {
	tag := language.Und
	if c.Locale != "" {
		tag = language.Make(c.Locale)
	}
	return collate.New(tag)
}
