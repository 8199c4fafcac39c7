// Package config handles environment variable loading for ports, file
// paths, quotas and container resource caps.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
)

// Config holds all configuration values for the application.
type Config struct {
	// Path of the persisted instance table
	StoreFile string

	// Optional path of a JSON image catalog; empty means built-in defaults
	CatalogFile string

	// HTTP server port for the controller
	HTTPPort int

	// Maximum live instances per owner
	Quota int

	// Timeout for session negotiation inside a container
	SessionTimeout time.Duration

	// Grace period given to a container on stop
	StopTimeout time.Duration

	// Resource caps applied to every sandbox container
	MemoryLimitBytes int64
	CPUQuota         int64
	CPUShares        int64
	MaxRestarts      int

	// Per-owner request rate limit in requests per second; 0 disables
	RateLimit      float64
	RateLimitBurst int

	// Owner ids that hold the administrative override
	AdminIDs []string

	// SHA-256 hash of the admin override token (empty disables token auth)
	AdminTokenHash string

	// OTLP collector address for tracing
	OTELEndpoint string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		StoreFile:      "instances.json",
		HTTPPort:       7070,
		Quota:          1,
		SessionTimeout: 30 * time.Second,
		StopTimeout:    5 * time.Second,
		CPUQuota:       400000,
		CPUShares:      1024,
		MaxRestarts:    3,
		RateLimitBurst: 5,
		OTELEndpoint:   "localhost:4317",
	}

	if v := os.Getenv("SANDPLANE_STORE_FILE"); v != "" {
		cfg.StoreFile = v
	}
	cfg.CatalogFile = os.Getenv("SANDPLANE_CATALOG_FILE")

	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		cfg.HTTPPort = p
	}

	if v := os.Getenv("SANDPLANE_QUOTA"); v != "" {
		q, err := strconv.Atoi(v)
		if err != nil || q < 1 {
			return nil, fmt.Errorf("invalid SANDPLANE_QUOTA: %q", v)
		}
		cfg.Quota = q
	}

	if v := os.Getenv("SANDPLANE_SESSION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SANDPLANE_SESSION_TIMEOUT: %w", err)
		}
		cfg.SessionTimeout = d
	}

	if v := os.Getenv("SANDPLANE_STOP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SANDPLANE_STOP_TIMEOUT: %w", err)
		}
		cfg.StopTimeout = d
	}

	// Memory limit accepts human labels such as "8g" or "512m".
	memLabel := os.Getenv("SANDPLANE_MEMORY_LIMIT")
	if memLabel == "" {
		memLabel = "8g"
	}
	memBytes, err := units.RAMInBytes(memLabel)
	if err != nil {
		return nil, fmt.Errorf("invalid SANDPLANE_MEMORY_LIMIT %q: %w", memLabel, err)
	}
	cfg.MemoryLimitBytes = memBytes

	if v := os.Getenv("SANDPLANE_CPU_QUOTA"); v != "" {
		q, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SANDPLANE_CPU_QUOTA: %w", err)
		}
		cfg.CPUQuota = q
	}

	if v := os.Getenv("SANDPLANE_CPU_SHARES"); v != "" {
		s, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SANDPLANE_CPU_SHARES: %w", err)
		}
		cfg.CPUShares = s
	}

	if v := os.Getenv("SANDPLANE_MAX_RESTARTS"); v != "" {
		r, err := strconv.Atoi(v)
		if err != nil || r < 0 {
			return nil, fmt.Errorf("invalid SANDPLANE_MAX_RESTARTS: %q", v)
		}
		cfg.MaxRestarts = r
	}

	if v := os.Getenv("SANDPLANE_RATE_LIMIT"); v != "" {
		rl, err := strconv.ParseFloat(v, 64)
		if err != nil || rl < 0 {
			return nil, fmt.Errorf("invalid SANDPLANE_RATE_LIMIT: %q", v)
		}
		cfg.RateLimit = rl
	}

	if v := os.Getenv("SANDPLANE_RATE_LIMIT_BURST"); v != "" {
		b, err := strconv.Atoi(v)
		if err != nil || b < 1 {
			return nil, fmt.Errorf("invalid SANDPLANE_RATE_LIMIT_BURST: %q", v)
		}
		cfg.RateLimitBurst = b
	}

	if v := os.Getenv("SANDPLANE_ADMIN_IDS"); v != "" {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cfg.AdminIDs = append(cfg.AdminIDs, id)
			}
		}
	}
	cfg.AdminTokenHash = os.Getenv("SANDPLANE_ADMIN_TOKEN_HASH")

	if v := os.Getenv("SANDPLANE_OTEL_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}

	return cfg, nil
}
