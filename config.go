package goPerm

import (
	"errors"
	"strings"
	"time"
)

// Config holds the engine's runtime settings. Build copies it; later changes to
// the caller's value have no effect on a built engine.
type Config struct {
	Cache     CacheConfig
	Overrides OverridesConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig controls the Redis-backed effective-permission cache.
//
// The cache is only active when Enabled is true and a Redis client was supplied
// to the builder.
type CacheConfig struct {
	Enabled          bool
	RedisPrefix      string
	TTL              time.Duration
	OperationTimeout time.Duration
}

/*
====================================
OVERRIDES CONFIG
====================================
*/

// OverridesConfig controls how SetOverrides treats names missing from the
// registry. When Strict is false they are skipped and logged; when true the
// whole request is rejected with [ErrUnknownFeature] or [ErrUnknownAction].
type OverridesConfig struct {
	Strict bool
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls asynchronous audit event dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Cache: CacheConfig{
			Enabled:          true,
			RedisPrefix:      "perm",
			TTL:              30 * time.Minute,
			OperationTimeout: 250 * time.Millisecond,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

// Validate reports the first invalid setting in c.
func (c *Config) Validate() error {
	// Cache
	if c.Cache.Enabled {
		if strings.TrimSpace(c.Cache.RedisPrefix) == "" {
			return errors.New("Cache RedisPrefix must not be empty")
		}
		if strings.Contains(c.Cache.RedisPrefix, " ") {
			return errors.New("Cache RedisPrefix must not contain spaces")
		}
		if c.Cache.TTL <= 0 {
			return errors.New("Cache TTL must be > 0")
		}
		if c.Cache.TTL < time.Second {
			return errors.New("Cache TTL must be >= 1s")
		}
	}
	if c.Cache.OperationTimeout < 0 {
		return errors.New("Cache OperationTimeout must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
