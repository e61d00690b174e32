package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the optional sparsecp configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
}

// DefaultsConfig holds persistent flag defaults. Nil fields were not set.
type DefaultsConfig struct {
	Force      *bool   `toml:"force"`
	Verify     *bool   `toml:"verify"`
	Plain      *bool   `toml:"plain"`
	Workers    *int    `toml:"workers"`
	PageSize   *int    `toml:"page_size"`
	BufferSize *string `toml:"buffer_size"`
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
	return filepath.Join(dir, "sparsecp", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. A missing file yields a zero Config.
func LoadFile(path string) (Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	return cfg, nil
}

// WriteExample writes a config file with every key set from defaults.
func WriteExample(w io.Writer, defaults DefaultsConfig) error {
	if _, err := fmt.Fprintf(w, "# sparsecp configuration (%s)\n# Command-line flags override these values.\n\n", Path()); err != nil {
		return err
	}
	return toml.NewEncoder(w).Encode(Config{Defaults: defaults})
}
