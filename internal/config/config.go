// Package config loads the optional xcp configuration file.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/bamsammich/xcp/internal/event"
)

// Config represents the optional xcp configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Theme    ThemeConfig    `toml:"theme"`
}

// DefaultsConfig holds persistent flag defaults. Nil means "not set".
type DefaultsConfig struct {
	OnError   *string `toml:"on_error"`
	Retries   *int    `toml:"retries"`
	BWLimit   *string `toml:"bwlimit"`
	Verify    *bool   `toml:"verify"`
	Preserve  *bool   `toml:"preserve"`
	ChunkSize *string `toml:"chunk_size"`
}

// ThemeConfig holds optional color overrides.
type ThemeConfig struct {
	Green  *string `toml:"green"`
	Blue   *string `toml:"blue"`
	Yellow *string `toml:"yellow"`
	Teal   *string `toml:"teal"`
	Mauve  *string `toml:"mauve"`
	Muted  *string `toml:"muted"`
	Dim    *string `toml:"dim"`
	Bright *string `toml:"bright"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "xcp", "config.toml")
}

// Load reads the config file from the XDG path. A missing file yields a zero
// Config and no error.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile decodes the file at path and validates it.
func LoadFile(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values that have a fixed vocabulary or format.
func (c Config) Validate() error {
	d := c.Defaults
	if d.OnError != nil {
		if _, err := event.ParseControl(*d.OnError); err != nil {
			return fmt.Errorf("defaults.on_error: %w", err)
		}
	}
	if d.Retries != nil && *d.Retries < 0 {
		return fmt.Errorf("defaults.retries: must be >= 0, got %d", *d.Retries)
	}
	if d.BWLimit != nil {
		if _, err := ParseSize(*d.BWLimit); err != nil {
			return fmt.Errorf("defaults.bwlimit: %w", err)
		}
	}
	if d.ChunkSize != nil {
		n, err := ParseSize(*d.ChunkSize)
		if err != nil {
			return fmt.Errorf("defaults.chunk_size: %w", err)
		}
		if n == 0 {
			return errors.New("defaults.chunk_size: must be positive")
		}
	}
	return nil
}

var sizeUnits = map[string]uint64{
	"":  1,
	"K": 1 << 10,
	"M": 1 << 20,
	"G": 1 << 30,
	"T": 1 << 40,
}

// ParseSize parses a human-readable size such as "512", "64K", "100MB",
// "1.5GiB". Units are powers of 1024.
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty size string")
	}

	num := strings.ToUpper(s)
	num = strings.TrimSuffix(num, "IB")
	num = strings.TrimSuffix(num, "B")

	unit := ""
	if n := len(num); n > 0 {
		if _, ok := sizeUnits[num[n-1:]]; ok {
			unit = num[n-1:]
			num = num[:n-1]
		}
	}
	num = strings.TrimSpace(num)
	if num == "" {
		return 0, fmt.Errorf("invalid size: %q", s)
	}

	mult := sizeUnits[unit]
	if n, err := strconv.ParseUint(num, 10, 64); err == nil {
		return n * mult, nil
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || !(f >= 0) || math.IsInf(f, 1) {
		return 0, fmt.Errorf("invalid size: %q", s)
	}
	return uint64(f * float64(mult)), nil
}
