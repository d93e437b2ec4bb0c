package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeConfig writes a config file under a temp project root and chdirs there
// so Load() picks it up. Restores the working directory on cleanup.
func writeConfig(t *testing.T, yaml string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("mkdir config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config", "dev.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(cwd) })
}

// TestLoad_Defaults verifies every default when the config file is minimal.
func TestLoad_Defaults(t *testing.T) {
	writeConfig(t, "store:\n  backend: in_memory\n")
	t.Setenv("ENV_NAME", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("MEMCACHED_ADDRS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.CacheBackend != "in_memory" {
		t.Errorf("CacheBackend = %q, want in_memory", cfg.CacheBackend)
	}
	if cfg.CacheTTL != 900*time.Second {
		t.Errorf("CacheTTL = %v, want 15m", cfg.CacheTTL)
	}
	if cfg.DashboardWindowHours != 24 || cfg.DashboardIntervalHours != 2 {
		t.Errorf("dashboard window/interval = %d/%d, want 24/2", cfg.DashboardWindowHours, cfg.DashboardIntervalHours)
	}
	if cfg.MapWindow != 30*time.Minute || cfg.MapInterval != 30*time.Minute {
		t.Errorf("map window/interval = %v/%v, want 30m/30m", cfg.MapWindow, cfg.MapInterval)
	}
	if cfg.MaxSpeedMps != 8 || cfg.SampleIntervalSeconds != 60 {
		t.Errorf("distance config = %v/%v, want 8/60", cfg.MaxSpeedMps, cfg.SampleIntervalSeconds)
	}
}

// TestLoad_FullFile verifies that explicit YAML values override defaults.
func TestLoad_FullFile(t *testing.T) {
	writeConfig(t, `
server:
  port: "9090"
store:
  backend: in_memory
cache:
  backend: memcached
  ttl: 10m
  memcached:
    addrs: "mc1:11211,mc2:11211"
    timeout: 250ms
    max_idle_conns: 4
dashboard:
  window_hours: 48
  interval_hours: 4
distance:
  max_speed_mps: 12.5
  sample_interval_seconds: 30
map:
  window: 15m
  interval: 20m
  data_dir: /var/lib/maps
reliability:
  request_timeout: 8s
  rate_limit_rps: 50
  rate_limit_burst: 100
`)
	t.Setenv("ENV_NAME", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("MEMCACHED_ADDRS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.CacheBackend != "memcached" || cfg.MemcachedAddrs != "mc1:11211,mc2:11211" {
		t.Errorf("cache = %q/%q, want memcached/mc1,mc2", cfg.CacheBackend, cfg.MemcachedAddrs)
	}
	if cfg.CacheTTL != 10*time.Minute {
		t.Errorf("CacheTTL = %v, want 10m", cfg.CacheTTL)
	}
	if cfg.DashboardWindowHours != 48 || cfg.DashboardIntervalHours != 4 {
		t.Errorf("dashboard = %d/%d, want 48/4", cfg.DashboardWindowHours, cfg.DashboardIntervalHours)
	}
	if cfg.MapWindow != 15*time.Minute || cfg.MapDataDir != "/var/lib/maps" {
		t.Errorf("map = %v/%q, want 15m//var/lib/maps", cfg.MapWindow, cfg.MapDataDir)
	}
	if cfg.RateLimitRPS != 50 || cfg.RateLimitBurst != 100 {
		t.Errorf("rate limit = %d/%d, want 50/100", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

// TestLoad_EnvOverrides verifies that env vars win over the config file.
func TestLoad_EnvOverrides(t *testing.T) {
	writeConfig(t, "store:\n  backend: in_memory\ncache:\n  backend: in_memory\n")
	t.Setenv("ENV_NAME", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("CACHE_BACKEND", "memcached")
	t.Setenv("MEMCACHED_ADDRS", "envhost:11211")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if cfg.CacheBackend != "memcached" {
		t.Errorf("CacheBackend = %q, want memcached (env override)", cfg.CacheBackend)
	}
	if cfg.MemcachedAddrs != "envhost:11211" {
		t.Errorf("MemcachedAddrs = %q, want envhost:11211", cfg.MemcachedAddrs)
	}
}

// TestLoad_Validation verifies rejection of invalid backends and a missing
// postgres DSN.
func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "bad store backend", yaml: "store:\n  backend: dynamo\n"},
		{name: "bad cache backend", yaml: "store:\n  backend: in_memory\ncache:\n  backend: redis\n"},
		{name: "postgres without dsn", yaml: "store:\n  backend: postgres\n"},
		{name: "interval exceeds window", yaml: "store:\n  backend: in_memory\ndashboard:\n  window_hours: 2\n  interval_hours: 6\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			writeConfig(t, tc.yaml)
			t.Setenv("ENV_NAME", "")
			t.Setenv("STORE_BACKEND", "")
			t.Setenv("CACHE_BACKEND", "")
			t.Setenv("POSTGRES_DSN", "")
			if _, err := Load(); err == nil {
				t.Fatal("Load() error = nil, want validation error")
			}
		})
	}
}
