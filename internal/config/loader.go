package config

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// checkConfigFilePermissions returns an error if a config file has
// overly permissive permissions (group/world readable); load treats
// that like a read failure, so Load falls back to defaults.
func checkConfigFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return nil // file access errors are handled by the caller
	}
	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		return fmt.Errorf("config file %s has overly permissive mode %04o; expected 0600 — fix with: chmod 600 %s", path, mode, path)
	}
	return nil
}

// Load reads and parses the YAML config file at path. If the file
// cannot be read or parsed, Load logs a warning and returns defaults
// rather than failing the caller — a node should still start with a
// generated alias and default port even when its config is missing or
// corrupt.
func Load(path, fallbackAlias string) *Config {
	cfg, err := load(path)
	if err != nil {
		slog.Warn("config: using defaults", "path", path, "error", err)
		return Default(fallbackAlias)
	}
	return cfg
}

func load(path string) (*Config, error) {
	if err := checkConfigFilePermissions(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if cfg.Version > CurrentConfigVersion {
		return nil, fmt.Errorf("%w: version %d is newer than supported version %d; please upgrade localshare", ErrConfigVersionTooNew, cfg.Version, CurrentConfigVersion)
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.DiscoveryServiceType == "" {
		cfg.DiscoveryServiceType = DefaultDiscoveryServiceType
	}
	return &cfg, nil
}

// Save marshals cfg to YAML and writes it to path using a temp-file-then-
// rename sequence so a crash mid-write never leaves a truncated config
// on disk. On failure the caller's in-memory Config is left untouched.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp := fmt.Sprintf("%s.tmp-%d", path, rand.Int63())
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp config into place: %w", err)
	}
	return nil
}

// Validate checks that a Config is usable.
func Validate(cfg *Config) error {
	if cfg.Alias == "" {
		return fmt.Errorf("alias is required")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port %d out of range", cfg.Port)
	}
	if cfg.DiscoveryServiceType == "" {
		return fmt.Errorf("discovery_service_type is required")
	}
	return nil
}

// FindConfigFile searches for a localshare config file in standard
// locations. Search order: explicitPath (if given), ./localshare.yaml,
// ~/.config/localshare/config.yaml, /etc/localshare/config.yaml.
func FindConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("%w: %s", ErrConfigNotFound, explicitPath)
		}
		return explicitPath, nil
	}

	searchPaths := []string{"localshare.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "localshare", "config.yaml"))
	}
	searchPaths = append(searchPaths, filepath.Join("/etc", "localshare", "config.yaml"))

	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("%w; searched the default locations — run 'localshare serve' to create one, or pass --config <path>", ErrConfigNotFound)
}

// DefaultConfigDir returns the default localshare config directory
// (~/.config/localshare).
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "localshare"), nil
}

// DefaultDownloadDir returns the default directory incoming files are
// written to (~/Downloads/LocalShare).
func DefaultDownloadDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, "Downloads", "LocalShare"), nil
}
