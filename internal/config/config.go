package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/geozone/internal/tracker"
	"github.com/udisondev/geozone/internal/zone"
)

// Engine holds configuration of the geofencing engine.
type Engine struct {
	// Index
	Backend        string             `yaml:"backend"` // "grid" or "rtree"
	BackendOptions zone.BackendConfig `yaml:"backend_options"`
	QueryCacheSize int                `yaml:"query_cache_size"` // 0 disables the cache

	// Registry
	SimplifyTolerance float64 `yaml:"simplify_tolerance"` // 0 disables simplification

	// Tracker
	MovementEpsilon float64                 `yaml:"movement_epsilon"`
	Verify          bool                    `yaml:"verify"`
	Schedule        tracker.SchedulerConfig `yaml:"schedule"`

	// Stats
	StatsWindow      int `yaml:"stats_window"`       // samples per moving average
	StatsRateHistory int `yaml:"stats_rate_history"` // seconds of QPS/CPS history
}

// DefaultEngine returns Engine config with sensible defaults.
func DefaultEngine() Engine {
	return Engine{
		Backend:          zone.BackendGrid,
		BackendOptions:   zone.DefaultBackendConfig(),
		QueryCacheSize:   4096,
		MovementEpsilon:  tracker.DefaultMovementEpsilon,
		Schedule:         tracker.DefaultSchedulerConfig(),
		StatsWindow:      100,
		StatsRateHistory: 60,
	}
}

// Validate checks values Default cannot repair silently.
func (e Engine) Validate() error {
	switch e.Backend {
	case "", zone.BackendGrid, zone.BackendRTree:
	default:
		return fmt.Errorf("unknown backend %q", e.Backend)
	}
	if e.MovementEpsilon < 0 {
		return fmt.Errorf("movement_epsilon must be >= 0, got %v", e.MovementEpsilon)
	}
	if e.SimplifyTolerance < 0 {
		return fmt.Errorf("simplify_tolerance must be >= 0, got %v", e.SimplifyTolerance)
	}
	return nil
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	URL string `yaml:"url"` // full DSN, overrides the fields below

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Server holds all configuration for the geozone binary.
type Server struct {
	LogLevel string `yaml:"log_level"`

	// Zone sources. With both set, file zones are stored in the DB first.
	ZonesFile string         `yaml:"zones_file"` // .yaml/.yml or .geojson/.json
	UseDB     bool           `yaml:"use_db"`
	Database  DatabaseConfig `yaml:"database"`

	// HTTP (/metrics, /stats); empty disables the listener
	MetricsAddr string `yaml:"metrics_addr"`

	// Position trace replay
	TraceFile    string        `yaml:"trace_file"`
	TickInterval time.Duration `yaml:"tick_interval"`

	Engine Engine `yaml:"engine"`
}

// DefaultServer returns Server config with sensible defaults.
func DefaultServer() Server {
	return Server{
		LogLevel:     "info",
		MetricsAddr:  "127.0.0.1:9090",
		TickInterval: 100 * time.Millisecond,
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "geozone",
			Password: "geozone",
			DBName:   "geozone",
			SSLMode:  "disable",
		},
		Engine: DefaultEngine(),
	}
}

// LoadServer loads server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Engine.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}
