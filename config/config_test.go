package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Setenv("AUTH_POOL_ID", "us-east-1_AbCdEfGhI")
	t.Setenv("CLIENT_TENANT_MAP_PATH", "/gatekit/client-tenant-map")
	t.Setenv("TENANT_USAGE_KEY_MAP_PATH", "/gatekit/tenant-usage-key-map")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Region != "us-east-1" {
		t.Fatalf("region = %q, want default us-east-1", cfg.Region)
	}
	if cfg.MappingTTL != 5*time.Minute {
		t.Fatalf("ttl = %v, want 5m", cfg.MappingTTL)
	}
	want := "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_AbCdEfGhI/.well-known/jwks.json"
	if cfg.JWKSURL() != want {
		t.Fatalf("jwks url = %q, want %q", cfg.JWKSURL(), want)
	}
}

func TestLoadMissingPoolID(t *testing.T) {
	setRequired(t)
	t.Setenv("AUTH_POOL_ID", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for missing AUTH_POOL_ID")
	}
}

func TestLoadTTLOverride(t *testing.T) {
	setRequired(t)
	t.Setenv("MAPPING_CACHE_TTL", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MappingTTL != 90*time.Second {
		t.Fatalf("ttl = %v, want 90s", cfg.MappingTTL)
	}
}

func TestLoadBadTTL(t *testing.T) {
	setRequired(t)
	t.Setenv("MAPPING_CACHE_TTL", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for invalid MAPPING_CACHE_TTL")
	}
}
