// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Environment variables honored beyond the viper TETHER_* auto-binding.
// TETHER_SESSION and TETHER_OWNER_PID are also written into the environment
// of every process tether spawns (the daemon and the watchdog).
const (
	EnvSession          = "TETHER_SESSION"
	EnvOwnerPID         = "TETHER_OWNER_PID"
	EnvIdleTimeout      = "TETHER_IDLE_TIMEOUT_SECONDS"
	EnvWatchdogInterval = "TETHER_WATCHDOG_INTERVAL_SECONDS"
)

// Config holds the entire application configuration.
type Config struct {
	DataDir  string         `mapstructure:"data_dir" yaml:"data_dir"`
	Session  SessionConfig  `mapstructure:"session" yaml:"session"`
	Daemon   DaemonConfig   `mapstructure:"daemon" yaml:"daemon"`
	Watchdog WatchdogConfig `mapstructure:"watchdog" yaml:"watchdog"`
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
}

// SessionConfig names the session identity and tunes the socket client.
type SessionConfig struct {
	ID        string `mapstructure:"id" yaml:"id"`
	SocketDir string `mapstructure:"socket_dir" yaml:"socket_dir"`
	// CommandTimeout bounds a single command round trip. Browser navigation
	// and generation can legitimately run for minutes.
	CommandTimeout time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`
	// ProbeTimeout bounds the open+close liveness probe.
	ProbeTimeout time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
}

// DaemonConfig describes how the automation daemon is spawned and reclaimed.
type DaemonConfig struct {
	// Command is the argv used to spawn the automation daemon. The session
	// identity is passed through the child's environment, not argv.
	Command         []string      `mapstructure:"command" yaml:"command"`
	StartupTimeout  time.Duration `mapstructure:"startup_timeout" yaml:"startup_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// WatchdogConfig tunes the idle watchdog. The two intervals are plain seconds
// so they can be overridden by the integer-valued environment variables the
// surrounding tooling exports.
type WatchdogConfig struct {
	IdleTimeoutSeconds  int `mapstructure:"idle_timeout_seconds" yaml:"idle_timeout_seconds"`
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" yaml:"poll_interval_seconds"`
}

// IdleTimeout returns the idle timeout as a duration.
func (w WatchdogConfig) IdleTimeout() time.Duration {
	return time.Duration(w.IdleTimeoutSeconds) * time.Second
}

// PollInterval returns the poll interval as a duration.
func (w WatchdogConfig) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalSeconds) * time.Second
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// SocketPath returns the deterministic socket endpoint for a session identity.
func (c *Config) SocketPath(session string) string {
	return filepath.Join(c.Session.SocketDir, fmt.Sprintf("tether-%s.sock", session))
}

// RunDir is where per-session activity and watchdog records live.
func (c *Config) RunDir() string { return filepath.Join(c.DataDir, "run") }

// AuthDir is where per-identity storage-state files live.
func (c *Config) AuthDir() string { return filepath.Join(c.DataDir, "auth") }

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir())

	// -- Session --
	v.SetDefault("session.id", "default")
	v.SetDefault("session.socket_dir", os.TempDir())
	v.SetDefault("session.command_timeout", "120s")
	v.SetDefault("session.probe_timeout", "2s")

	// -- Daemon --
	v.SetDefault("daemon.command", []string{"agent-browser-daemon"})
	v.SetDefault("daemon.startup_timeout", "30s")
	v.SetDefault("daemon.shutdown_timeout", "10s")

	// -- Watchdog --
	v.SetDefault("watchdog.idle_timeout_seconds", 600)
	v.SetDefault("watchdog.poll_interval_seconds", 30)

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "tether")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
}

// NewFromViper creates a configuration instance from a viper object.
func NewFromViper(v *viper.Viper) (*Config, error) {
	// The session identity and watchdog intervals have fixed env names that
	// predate the TETHER_* auto-binding; bind them explicitly.
	_ = v.BindEnv("session.id", EnvSession)
	_ = v.BindEnv("watchdog.idle_timeout_seconds", EnvIdleTimeout)
	_ = v.BindEnv("watchdog.poll_interval_seconds", EnvWatchdogInterval)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults only.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Session.ID == "" {
		return fmt.Errorf("session.id must not be empty")
	}
	if len(c.Daemon.Command) == 0 {
		return fmt.Errorf("daemon.command must name the automation daemon binary")
	}
	if c.Session.CommandTimeout <= 0 {
		return fmt.Errorf("session.command_timeout must be a positive duration")
	}
	if c.Session.ProbeTimeout <= 0 {
		return fmt.Errorf("session.probe_timeout must be a positive duration")
	}
	if c.Watchdog.IdleTimeoutSeconds <= 0 {
		return fmt.Errorf("watchdog.idle_timeout_seconds must be a positive integer")
	}
	if c.Watchdog.PollIntervalSeconds <= 0 {
		return fmt.Errorf("watchdog.poll_interval_seconds must be a positive integer")
	}
	return nil
}

func defaultDataDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return filepath.Join(os.TempDir(), "tether")
	}
	return filepath.Join(home, ".tether")
}
