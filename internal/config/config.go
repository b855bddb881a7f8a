package config

import (
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	LibraryRoots    []string `koanf:"library_roots"`     // directories scanned for audio files
	DatabasePath    string   `koanf:"database_path"`     // empty means the user data directory
	ArtworkCacheDir string   `koanf:"artwork_cache_dir"` // empty means the user cache directory
	SettingsDir     string   `koanf:"settings_dir"`      // empty means the user config directory

	Indexer IndexerConfig `koanf:"indexer"`

	LogLevel string `koanf:"log_level"` // "debug", "info", "warn", "error"
}

// IndexerConfig tunes the indexing engine.
type IndexerConfig struct {
	BatchSize int `koanf:"batch_size"` // tracks per write transaction (default: 10)
	Workers   int `koanf:"workers"`    // concurrent metadata extractions (default: 4)
	PageSize  int `koanf:"page_size"`  // media enumeration page size (default: 500)
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	configPaths := getConfigPaths()

	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	for i, root := range cfg.LibraryRoots {
		cfg.LibraryRoots[i] = expandPath(root)
	}
	cfg.DatabasePath = expandPath(cfg.DatabasePath)
	cfg.ArtworkCacheDir = expandPath(cfg.ArtworkCacheDir)
	cfg.SettingsDir = expandPath(cfg.SettingsDir)

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/trackdex/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "trackdex", "config.toml"))
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
