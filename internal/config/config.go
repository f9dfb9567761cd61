package config

// CurrentConfigVersion is the latest configuration schema version.
// Bump this when adding fields that require migration.
const CurrentConfigVersion = 1

// DefaultDiscoveryServiceType is the mDNS/DNS-SD service type this
// node registers under and browses for.
const DefaultDiscoveryServiceType = "_localshare._tcp.local."

// DefaultPort is the TCP port the ingest server listens on when no
// port is configured.
const DefaultPort = 53317

// Config is the on-disk configuration for a localshare node.
type Config struct {
	Version               int    `yaml:"version,omitempty"`
	Alias                 string `yaml:"alias"`
	Port                  int    `yaml:"port"`
	DownloadDir           string `yaml:"download_dir"`
	FingerprintFile       string `yaml:"fingerprint_file"`
	DiscoveryServiceType  string `yaml:"discovery_service_type,omitempty"`
	RequireConsent        *bool  `yaml:"require_consent,omitempty"`
	MetricsEnabled        bool   `yaml:"metrics_enabled,omitempty"`
	MetricsListenAddress  string `yaml:"metrics_listen_address,omitempty"`
}

// IsConsentRequired reports whether incoming transfers must be accepted
// by the user before any bytes are written to disk. Defaults to true —
// silent, consent-free writes are never the default posture.
func (c *Config) IsConsentRequired() bool {
	if c.RequireConsent == nil {
		return true
	}
	return *c.RequireConsent
}

// Default returns a Config populated with sane defaults for a
// freshly-installed node. alias is generated by the caller (typically
// from the hostname) since it has no sensible static default.
func Default(alias string) *Config {
	return &Config{
		Version:              CurrentConfigVersion,
		Alias:                alias,
		Port:                 DefaultPort,
		DiscoveryServiceType: DefaultDiscoveryServiceType,
	}
}
