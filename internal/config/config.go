package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	StoreBackend      string // "in_memory" or "postgres"
	PostgresDSN       string
	PostgresMaxConns  int
	StoreConnTimeout  time.Duration
	StoreQueryTimeout time.Duration

	CacheBackend          string // "in_memory" or "memcached"
	CacheTTL              time.Duration
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	DashboardWindowHours    int
	DashboardIntervalHours  int
	MaxSpeedMps             float64
	SampleIntervalSeconds   float64

	MapWindow   time.Duration
	MapInterval time.Duration
	MapDataDir  string

	CoalesceEnabled bool
	CoalesceTimeout time.Duration

	WarmCache    bool
	WarmInterval time.Duration
	TrackedUsers []string

	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration

	RequestTimeout time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Store struct {
		Backend      string `yaml:"backend"`
		DSN          string `yaml:"dsn"`
		MaxConns     int    `yaml:"max_conns"`
		ConnTimeout  string `yaml:"conn_timeout"`
		QueryTimeout string `yaml:"query_timeout"`
	} `yaml:"store"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Dashboard struct {
		WindowHours   int `yaml:"window_hours"`
		IntervalHours int `yaml:"interval_hours"`
	} `yaml:"dashboard"`

	Distance struct {
		MaxSpeedMps           float64 `yaml:"max_speed_mps"`
		SampleIntervalSeconds float64 `yaml:"sample_interval_seconds"`
	} `yaml:"distance"`

	Map struct {
		Window   string `yaml:"window"`
		Interval string `yaml:"interval"`
		DataDir  string `yaml:"data_dir"`
	} `yaml:"map"`

	Coalescing struct {
		Enabled bool   `yaml:"enabled"`
		Timeout string `yaml:"timeout"`
	} `yaml:"coalescing"`

	Warming struct {
		Enabled      bool     `yaml:"enabled"`
		Interval     string   `yaml:"interval"`
		TrackedUsers []string `yaml:"tracked_users"`
	} `yaml:"warming"`

	CircuitBreaker struct {
		Enabled          bool   `yaml:"enabled"`
		FailureThreshold int    `yaml:"failure_threshold"`
		SuccessThreshold int    `yaml:"success_threshold"`
		Timeout          string `yaml:"timeout"`
	} `yaml:"circuit_breaker"`

	Reliability struct {
		RequestTimeout string `yaml:"request_timeout"`
		RateLimitRPS   int    `yaml:"rate_limit_rps"`
		RateLimitBurst int    `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev).
// The postgres DSN may come from POSTGRES_DSN env or the config file.
// Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.StoreBackend = strings.TrimSpace(strings.ToLower(os.Getenv("STORE_BACKEND")))
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = strings.TrimSpace(strings.ToLower(fc.Store.Backend))
	}
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = "postgres"
	}
	cfg.PostgresDSN = strings.TrimSpace(os.Getenv("POSTGRES_DSN"))
	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = strings.TrimSpace(fc.Store.DSN)
	}
	cfg.PostgresMaxConns = fc.Store.MaxConns
	if cfg.PostgresMaxConns <= 0 {
		cfg.PostgresMaxConns = 10
	}
	cfg.StoreConnTimeout = parseDuration(fc.Store.ConnTimeout, 5*time.Second)
	cfg.StoreQueryTimeout = parseDuration(fc.Store.QueryTimeout, 3*time.Second)

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 900*time.Second)
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.DashboardWindowHours = fc.Dashboard.WindowHours
	if cfg.DashboardWindowHours <= 0 {
		cfg.DashboardWindowHours = 24
	}
	cfg.DashboardIntervalHours = fc.Dashboard.IntervalHours
	if cfg.DashboardIntervalHours <= 0 {
		cfg.DashboardIntervalHours = 2
	}

	cfg.MaxSpeedMps = fc.Distance.MaxSpeedMps
	if cfg.MaxSpeedMps <= 0 {
		cfg.MaxSpeedMps = 8 // faster than anyone walks or runs with a node
	}
	cfg.SampleIntervalSeconds = fc.Distance.SampleIntervalSeconds
	if cfg.SampleIntervalSeconds <= 0 {
		cfg.SampleIntervalSeconds = 60
	}

	cfg.MapWindow = parseDuration(fc.Map.Window, 30*time.Minute)
	cfg.MapInterval = parseDuration(fc.Map.Interval, 30*time.Minute)
	cfg.MapDataDir = strings.TrimSpace(fc.Map.DataDir)
	if cfg.MapDataDir == "" {
		cfg.MapDataDir = "data/maps"
	}

	cfg.CoalesceEnabled = fc.Coalescing.Enabled
	cfg.CoalesceTimeout = parseDuration(fc.Coalescing.Timeout, 5*time.Second)

	cfg.WarmCache = fc.Warming.Enabled
	cfg.WarmInterval = parseDuration(fc.Warming.Interval, 10*time.Minute)
	cfg.TrackedUsers = fc.Warming.TrackedUsers

	cfg.CircuitBreakerEnabled = fc.CircuitBreaker.Enabled
	cfg.CircuitBreakerFailureThreshold = fc.CircuitBreaker.FailureThreshold
	cfg.CircuitBreakerSuccessThreshold = fc.CircuitBreaker.SuccessThreshold
	cfg.CircuitBreakerTimeout = parseDuration(fc.CircuitBreaker.Timeout, 30*time.Second)

	cfg.RequestTimeout = parseDuration(fc.Reliability.RequestTimeout, 5*time.Second)
	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS < 0 {
		cfg.RateLimitRPS = 0
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = cfg.RateLimitRPS * 2
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing
// fails or the result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
func validate(cfg *Config) error {
	switch cfg.StoreBackend {
	case "in_memory", "postgres":
	default:
		return fmt.Errorf("store.backend must be in_memory or postgres, got %q", cfg.StoreBackend)
	}
	if cfg.StoreBackend == "postgres" && cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN required (set env or config store.dsn)")
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	if cfg.DashboardIntervalHours > cfg.DashboardWindowHours {
		return fmt.Errorf("dashboard.interval_hours (%d) must not exceed dashboard.window_hours (%d)",
			cfg.DashboardIntervalHours, cfg.DashboardWindowHours)
	}
	if cfg.RequestTimeout <= cfg.StoreQueryTimeout {
		cfg.RequestTimeout = cfg.StoreQueryTimeout + time.Second
	}
	return nil
}
