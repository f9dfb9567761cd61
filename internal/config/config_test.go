package config

import "testing"

func TestDefault(t *testing.T) {
	cfg := Default("my-laptop")
	if cfg.Alias != "my-laptop" {
		t.Errorf("Alias = %q, want %q", cfg.Alias, "my-laptop")
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.DiscoveryServiceType != DefaultDiscoveryServiceType {
		t.Errorf("DiscoveryServiceType = %q, want %q", cfg.DiscoveryServiceType, DefaultDiscoveryServiceType)
	}
	if !cfg.IsConsentRequired() {
		t.Error("IsConsentRequired() = false, want true by default")
	}
}

func TestIsConsentRequired_ExplicitFalse(t *testing.T) {
	f := false
	cfg := Config{RequireConsent: &f}
	if cfg.IsConsentRequired() {
		t.Error("IsConsentRequired() = true, want false when explicitly disabled")
	}
}
