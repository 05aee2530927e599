// Package config loads the server settings from an optional TOML file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/youruser/bannerapp/internal/export"
	"github.com/youruser/bannerapp/internal/validate"
)

// Config is the on-disk configuration.
//
//	listen        = ":8080"
//	max_upload_mb = 10
//	validation    = "aspect"   # or "exact"
//	naming        = "index"    # or "source"
//	session_ttl   = "2h"
type Config struct {
	Listen      string   `toml:"listen"`
	MaxUploadMB int64    `toml:"max_upload_mb"`
	Validation  string   `toml:"validation"`
	Naming      string   `toml:"naming"`
	SessionTTL  Duration `toml:"session_ttl"`
}

// Duration is a time.Duration written as a string ("90m") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:      ":8080",
		MaxUploadMB: 10,
		Validation:  validate.ModeAspect.String(),
		Naming:      export.NameByIndex.String(),
		SessionTTL:  Duration{2 * time.Hour},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// PORT, when set, overrides the port in Listen.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		if undec := md.Undecoded(); len(undec) > 0 {
			keys := make([]string, len(undec))
			for i, k := range undec {
				keys[i] = k.String()
			}
			return cfg, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Listen = ":" + port
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges and enum fields.
func (c Config) Validate() error {
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive, got %d", c.MaxUploadMB)
	}
	if c.SessionTTL.Duration <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %s", c.SessionTTL)
	}
	if _, err := validate.ParseMode(c.Validation); err != nil {
		return err
	}
	if _, err := export.ParseNaming(c.Naming); err != nil {
		return err
	}
	return nil
}

// ValidationMode returns the parsed validation mode.
func (c Config) ValidationMode() validate.Mode {
	m, _ := validate.ParseMode(c.Validation)
	return m
}

// NamingMode returns the parsed archive naming.
func (c Config) NamingMode() export.Naming {
	n, _ := export.ParseNaming(c.Naming)
	return n
}

// MaxUploadBytes returns the per-file upload limit.
func (c Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}
