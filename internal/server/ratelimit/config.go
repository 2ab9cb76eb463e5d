package ratelimit

import (
	"strings"
	"time"

	"github.com/jonathan/benefit-optimizer/internal/config"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// class names the bucket an endpoint config shares across all paths it matches
func (e *EndpointConfig) class() string {
	return e.Method + " " + e.Path
}

// FromConfig builds the limiter configuration from the application config.
func FromConfig(cfg config.RateLimitConfig) *Config {
	if !cfg.Enabled {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    cfg.DefaultLimit,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		Whitelist:       ipSet(cfg.Whitelist),
		Blacklist:       ipSet(cfg.Blacklist),
		EndpointConfigs: DefaultEndpointConfigs(cfg.OptimizeLimit),
	}
}

// DefaultEndpointConfigs returns the endpoint-specific configurations.
// Optimization endpoints share optimizeLimit requests per minute.
func DefaultEndpointConfigs(optimizeLimit int) []EndpointConfig {
	burst := max(1, optimizeLimit/6)
	return []EndpointConfig{
		// Tier 1: optimizations
		{Path: "/optimize", Method: "POST", Limit: optimizeLimit, Window: time.Minute, Burst: burst},
		{Path: "/optimize/batch", Method: "POST", Limit: max(1, optimizeLimit/10), Window: time.Minute, Burst: 1},
		{Path: "/bundles", Method: "POST", Limit: optimizeLimit, Window: time.Minute, Burst: burst},
		{Path: "/bundles/", Method: "PUT", Limit: optimizeLimit, Window: time.Minute, Burst: burst},

		// Tier 2: other writes
		{Path: "/bundles/", Method: "PATCH", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/bundles/", Method: "DELETE", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/bundles/compare", Method: "POST", Limit: 100, Window: time.Minute, Burst: 10},

		// Tier 3: reads use the default limit
		// Tier 4: health and metrics are unlimited, handled in the matcher
	}
}

// ipSet turns a list of IP addresses into a set, ignoring blanks.
func ipSet(ips []string) map[string]bool {
	result := make(map[string]bool, len(ips))
	for _, ip := range ips {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			result[ip] = true
		}
	}
	return result
}
