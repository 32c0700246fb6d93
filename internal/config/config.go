package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds application settings.
type Config struct {
	// DataDir is where the catalog database and managed storage live.
	DataDir string `koanf:"data_dir"`

	// ListenAddr is the bind address for the local API.
	ListenAddr string `koanf:"listen_addr"`
}

// DatabasePath returns the catalog database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "library.db")
}

// LibraryDir returns the managed storage directory that holds copies of
// imported books.
func (c *Config) LibraryDir() string {
	return filepath.Join(c.DataDir, "books_library")
}

// Load reads configuration files in order of priority (last wins) and
// applies defaults for anything unset.
func Load() (*Config, error) {
	return load(configPaths())
}

func load(paths []string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{
		DataDir:    filepath.Join(xdg.DataHome, "booklib"),
		ListenAddr: "127.0.0.1:8390",
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.DataDir != "" {
		cfg.DataDir = expandPath(cfg.DataDir)
	}

	return cfg, nil
}

func configPaths() []string {
	paths := []string{}

	// 1. ~/.config/booklib/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "booklib", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
