package goPerm

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults valid",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "blank prefix invalid",
			mutate: func(c *Config) {
				c.Cache.RedisPrefix = "   "
			},
			wantValid: false,
		},
		{
			name: "prefix with space invalid",
			mutate: func(c *Config) {
				c.Cache.RedisPrefix = "perm cache"
			},
			wantValid: false,
		},
		{
			name: "blank prefix ignored when cache disabled",
			mutate: func(c *Config) {
				c.Cache.Enabled = false
				c.Cache.RedisPrefix = ""
			},
			wantValid: true,
		},
		{
			name: "zero ttl invalid",
			mutate: func(c *Config) {
				c.Cache.TTL = 0
			},
			wantValid: false,
		},
		{
			name: "sub-second ttl invalid",
			mutate: func(c *Config) {
				c.Cache.TTL = 500 * time.Millisecond
			},
			wantValid: false,
		},
		{
			name: "negative timeout invalid",
			mutate: func(c *Config) {
				c.Cache.OperationTimeout = -time.Millisecond
			},
			wantValid: false,
		},
		{
			name: "zero timeout valid",
			mutate: func(c *Config) {
				c.Cache.OperationTimeout = 0
			},
			wantValid: true,
		},
		{
			name: "audit enabled without buffer invalid",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "latency histograms require metrics",
			mutate: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.EnableLatencyHistograms = true
			},
			wantValid: false,
		},
		{
			name: "metrics with histograms valid",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.EnableLatencyHistograms = true
			},
			wantValid: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDefaultConfigCacheSettings(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.Cache.Enabled {
		t.Fatal("expected cache enabled by default")
	}
	if cfg.Cache.TTL != 30*time.Minute {
		t.Fatalf("expected 30m ttl, got %v", cfg.Cache.TTL)
	}
	if cfg.Cache.RedisPrefix != "perm" {
		t.Fatalf("expected prefix perm, got %q", cfg.Cache.RedisPrefix)
	}
}
