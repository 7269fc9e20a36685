// Package config loads authorizer settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/meterline/gatekit/keyset"
)

const (
	defaultRegion     = "us-east-1"
	defaultMappingTTL = 5 * time.Minute
)

// Config carries the settings needed to assemble an authorizer.
type Config struct {
	// Region and PoolID locate the signer's well-known key set endpoint.
	Region string
	PoolID string

	// ClientTenantMapPath is the parameter holding the caller→tenant
	// JSON object. TenantUsageKeyMapPath holds tenant→usage-key.
	ClientTenantMapPath   string
	TenantUsageKeyMapPath string

	// MappingTTL is how long mapping parameters are cached.
	MappingTTL time.Duration
}

// JWKSURL returns the key set endpoint for the configured pool.
func (c Config) JWKSURL() string {
	return keyset.EndpointURL(c.Region, c.PoolID)
}

// Load reads configuration from the environment:
//
//	AUTH_REGION               signer region (default us-east-1)
//	AUTH_POOL_ID              signer user pool id (required)
//	CLIENT_TENANT_MAP_PATH    caller→tenant parameter path (required)
//	TENANT_USAGE_KEY_MAP_PATH tenant→usage-key parameter path (required)
//	MAPPING_CACHE_TTL         optional Go duration, default 5m
func Load() (Config, error) {
	cfg := Config{
		Region:                getenv("AUTH_REGION"),
		PoolID:                getenv("AUTH_POOL_ID"),
		ClientTenantMapPath:   getenv("CLIENT_TENANT_MAP_PATH"),
		TenantUsageKeyMapPath: getenv("TENANT_USAGE_KEY_MAP_PATH"),
		MappingTTL:            defaultMappingTTL,
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	if cfg.PoolID == "" {
		return Config{}, errors.New("config: AUTH_POOL_ID is required")
	}
	if cfg.ClientTenantMapPath == "" {
		return Config{}, errors.New("config: CLIENT_TENANT_MAP_PATH is required")
	}
	if cfg.TenantUsageKeyMapPath == "" {
		return Config{}, errors.New("config: TENANT_USAGE_KEY_MAP_PATH is required")
	}
	if raw := getenv("MAPPING_CACHE_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			return Config{}, fmt.Errorf("config: invalid MAPPING_CACHE_TTL %q", raw)
		}
		cfg.MappingTTL = ttl
	}
	return cfg, nil
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
