package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFilename is the file searched for in the working directory and its
// parents, following the tasker convention.
const ConfigFilename = ".tasker.yml"

// ErrNotFound is returned by Locate when no config file exists in the start
// directory or any of its parents.
var ErrNotFound = errors.New("no " + ConfigFilename + " found")

// Config holds the application configuration.
type Config struct {
	Database DatabaseConfig
	Monitor  MonitorConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

// DatabaseConfig describes how to reach the tasker database. URL wins when
// set; otherwise a postgres DSN is assembled from the individual fields.
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// DSN returns the connection string passed to the sql driver.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// MonitorConfig tunes the polling reconciler.
type MonitorConfig struct {
	PollInterval        time.Duration
	MinPollInterval     time.Duration
	HeartbeatStaleAfter time.Duration
	LogTailLines        int
	FullResyncSchedule  string
}

// ServerConfig tunes the HTTP surface.
type ServerConfig struct {
	Port         string
	SSEKeepalive time.Duration
}

// LoggingConfig tunes the service's own log output.
type LoggingConfig struct {
	Path       string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// fileConfig mirrors the YAML layout of .tasker.yml. Durations are strings
// ("10s", "2m") so the file stays hand-editable.
type fileConfig struct {
	Database struct {
		URL      string `yaml:"url"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Name     string `yaml:"dbname"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`
	Monitor struct {
		PollInterval        string `yaml:"poll_interval"`
		MinPollInterval     string `yaml:"min_poll_interval"`
		HeartbeatStaleAfter string `yaml:"heartbeat_stale_after"`
		LogTailLines        int    `yaml:"log_tail_lines"`
		FullResyncSchedule  string `yaml:"full_resync_schedule"`
	} `yaml:"monitor"`
	Server struct {
		Port         string `yaml:"port"`
		SSEKeepalive string `yaml:"sse_keepalive"`
	} `yaml:"server"`
	Logging struct {
		Path       string `yaml:"path"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"logging"`
}

// Load resolves, parses and validates the configuration. The config file is
// optional when TASKER_DB_URL supplies a connection string.
func Load() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return LoadFrom(wd)
}

// LoadFrom behaves like Load but starts the file search at startDir.
func LoadFrom(startDir string) (*Config, error) {
	cfg := defaultConfig()

	path, err := Locate(startDir)
	switch {
	case err == nil:
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	case errors.Is(err, ErrNotFound):
		if os.Getenv("TASKER_DB_URL") == "" {
			return nil, fmt.Errorf("%w under %s and TASKER_DB_URL is not set", ErrNotFound, startDir)
		}
	default:
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Locate finds the config file. TASKER_CONFIG names an explicit file;
// otherwise startDir and its parents are searched for .tasker.yml.
func Locate(startDir string) (string, error) {
	if explicit := os.Getenv("TASKER_CONFIG"); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("TASKER_CONFIG %s: %w", explicit, err)
		}
		return explicit, nil
	}

	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ConfigFilename)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			Name:    "tasker",
			User:    "tasker",
			SSLMode: "disable",
		},
		Monitor: MonitorConfig{
			PollInterval:        10 * time.Second,
			MinPollInterval:     2 * time.Second,
			HeartbeatStaleAfter: 90 * time.Second,
			LogTailLines:        200,
		},
		Server: ServerConfig{
			Port:         "8080",
			SSEKeepalive: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 10,
			MaxAgeDays: 7,
		},
	}
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.Database.URL != "" {
		cfg.Database.URL = fc.Database.URL
	}
	if fc.Database.Host != "" {
		cfg.Database.Host = fc.Database.Host
	}
	if fc.Database.Port != 0 {
		cfg.Database.Port = fc.Database.Port
	}
	if fc.Database.Name != "" {
		cfg.Database.Name = fc.Database.Name
	}
	if fc.Database.User != "" {
		cfg.Database.User = fc.Database.User
	}
	if fc.Database.Password != "" {
		cfg.Database.Password = fc.Database.Password
	}
	if fc.Database.SSLMode != "" {
		cfg.Database.SSLMode = fc.Database.SSLMode
	}

	if err := setDuration(&cfg.Monitor.PollInterval, fc.Monitor.PollInterval, path, "monitor.poll_interval"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Monitor.MinPollInterval, fc.Monitor.MinPollInterval, path, "monitor.min_poll_interval"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Monitor.HeartbeatStaleAfter, fc.Monitor.HeartbeatStaleAfter, path, "monitor.heartbeat_stale_after"); err != nil {
		return err
	}
	if fc.Monitor.LogTailLines != 0 {
		cfg.Monitor.LogTailLines = fc.Monitor.LogTailLines
	}
	if fc.Monitor.FullResyncSchedule != "" {
		cfg.Monitor.FullResyncSchedule = fc.Monitor.FullResyncSchedule
	}

	if fc.Server.Port != "" {
		cfg.Server.Port = fc.Server.Port
	}
	if err := setDuration(&cfg.Server.SSEKeepalive, fc.Server.SSEKeepalive, path, "server.sse_keepalive"); err != nil {
		return err
	}

	if fc.Logging.Path != "" {
		cfg.Logging.Path = fc.Logging.Path
	}
	if fc.Logging.Level != "" {
		cfg.Logging.Level = fc.Logging.Level
	}
	if fc.Logging.MaxSizeMB != 0 {
		cfg.Logging.MaxSizeMB = fc.Logging.MaxSizeMB
	}
	if fc.Logging.MaxBackups != 0 {
		cfg.Logging.MaxBackups = fc.Logging.MaxBackups
	}
	if fc.Logging.MaxAgeDays != 0 {
		cfg.Logging.MaxAgeDays = fc.Logging.MaxAgeDays
	}

	return nil
}

func setDuration(dst *time.Duration, raw, path, key string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config %s: %s: %w", path, key, err)
	}
	*dst = d
	return nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Database.URL = getEnv("TASKER_DB_URL", cfg.Database.URL)
	cfg.Database.Host = getEnv("TASKER_DB_HOST", cfg.Database.Host)
	cfg.Database.Name = getEnv("TASKER_DB_NAME", cfg.Database.Name)
	cfg.Database.User = getEnv("TASKER_DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("TASKER_DB_PASSWORD", cfg.Database.Password)
	if port := os.Getenv("TASKER_DB_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &cfg.Database.Port)
	}
	cfg.Server.Port = getEnv("TASKER_SERVER_PORT", cfg.Server.Port)
	if raw := os.Getenv("TASKER_POLL_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			cfg.Monitor.PollInterval = d
		}
	}
	cfg.Logging.Path = getEnv("TASKER_LOG_PATH", cfg.Logging.Path)
	cfg.Logging.Level = getEnv("TASKER_LOG_LEVEL", cfg.Logging.Level)
}

func (c *Config) validate() error {
	if c.Monitor.PollInterval <= 0 {
		return errors.New("monitor.poll_interval must be positive")
	}
	if c.Monitor.MinPollInterval < 0 {
		return errors.New("monitor.min_poll_interval must not be negative")
	}
	if c.Monitor.MinPollInterval > c.Monitor.PollInterval {
		return fmt.Errorf("monitor.min_poll_interval %s exceeds monitor.poll_interval %s",
			c.Monitor.MinPollInterval, c.Monitor.PollInterval)
	}
	if c.Monitor.LogTailLines < 0 {
		return errors.New("monitor.log_tail_lines must not be negative")
	}
	if c.Server.SSEKeepalive <= 0 {
		return errors.New("server.sse_keepalive must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
