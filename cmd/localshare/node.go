package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/localshare/localshare/internal/config"
	"github.com/localshare/localshare/internal/identity"
)

// resolvedConfig bundles the on-disk config together with the path it
// was loaded from (or will be created at), so callers that modify and
// re-save it don't need to re-derive the path.
type resolvedConfig struct {
	path string
	cfg  *config.Config
}

// loadOrInitConfig finds the config file at explicitPath, or any of the
// standard search locations, loading it if found. If none exists it
// creates one at the default location with a hostname-derived alias,
// the same "start with sane defaults rather than fail" posture
// config.Load already takes for a corrupt file.
func loadOrInitConfig(explicitPath string) (*resolvedConfig, error) {
	if path, err := config.FindConfigFile(explicitPath); err == nil {
		return &resolvedConfig{path: path, cfg: config.Load(path, defaultAlias())}, nil
	}

	path := explicitPath
	if path == "" {
		dir, err := config.DefaultConfigDir()
		if err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}

	downloadDir, err := config.DefaultDownloadDir()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	cfg := config.Default(defaultAlias())
	cfg.DownloadDir = downloadDir
	if err := config.Save(path, cfg); err != nil {
		return nil, fmt.Errorf("config error: failed to create default config: %w", err)
	}
	return &resolvedConfig{path: path, cfg: cfg}, nil
}

// defaultAlias derives a display alias from the machine's hostname,
// falling back to a fixed name if the hostname cannot be read.
func defaultAlias() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "localshare-node"
	}
	return h
}

// fingerprintPath returns the fingerprint file colocated with the
// config file named by rc.
func (rc *resolvedConfig) fingerprintPath() string {
	return filepath.Join(filepath.Dir(rc.path), "fingerprint")
}

// loadIdentity resolves config and fingerprint together into an
// identity.Identity, creating a download directory and a fingerprint
// file on first run.
func loadIdentity(explicitConfigPath string) (*resolvedConfig, *identity.Identity, error) {
	rc, err := loadOrInitConfig(explicitConfigPath)
	if err != nil {
		return nil, nil, err
	}

	downloadDir := rc.cfg.DownloadDir
	if downloadDir == "" {
		d, err := config.DefaultDownloadDir()
		if err != nil {
			return nil, nil, fmt.Errorf("config error: %w", err)
		}
		downloadDir = d
	}
	if err := os.MkdirAll(downloadDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	id, err := identity.New(rc.cfg.Alias, rc.cfg.Port, downloadDir, rc.fingerprintPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load identity: %w", err)
	}
	return rc, id, nil
}
