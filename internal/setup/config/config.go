// Package config loads the application configuration from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrBotTokenMissing       = errors.New("config file is missing bot token")
)

// CurrentVersion is the config file version this build expects.
const CurrentVersion = 1

// Config represents the entire application configuration.
type Config struct {
	Version     int         `koanf:"version"`
	Debug       Debug       `koanf:"debug"`
	Bot         Bot         `koanf:"bot"`
	PostgreSQL  PostgreSQL  `koanf:"postgresql"`
	Enforcement Enforcement `koanf:"enforcement"`
}

// Debug contains logging configuration.
type Debug struct {
	LogLevel      string `koanf:"log_level"`        // Log level (debug, info, warn, error)
	LogDir        string `koanf:"log_dir"`          // Directory for log files (empty for console only)
	MaxLogsToKeep int    `koanf:"max_logs_to_keep"` // Maximum log files to keep
}

// Bot contains chat platform configuration.
type Bot struct {
	Token       string  `koanf:"token"`       // Bot API token for authentication
	Superadmins []int64 `koanf:"superadmins"` // User IDs with unrestricted access
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	Host         string `koanf:"host"`           // Database hostname
	Port         int    `koanf:"port"`           // Database port
	User         string `koanf:"user"`           // Database username
	Password     string `koanf:"password"`       // Database password
	DBName       string `koanf:"db_name"`        // Database name
	MaxOpenConns int    `koanf:"max_open_conns"` // Maximum open connections
	MaxIdleConns int    `koanf:"max_idle_conns"` // Maximum idle connections
	MaxLifetime  int    `koanf:"max_lifetime"`   // Connection lifetime in minutes
	MaxIdleTime  int    `koanf:"max_idle_time"`  // Idle timeout in minutes
}

// Configured reports whether a database connection is configured at all.
// With no database the process runs with enforcement disabled.
func (p *PostgreSQL) Configured() bool {
	return p.Host != "" && p.DBName != ""
}

// Enforcement contains the moderation timing parameters. Zero values fall
// back to the defaults below.
type Enforcement struct {
	RaidWindow           int `koanf:"raid_window"`            // Raid detection window in seconds
	RaidThreshold        int `koanf:"raid_threshold"`         // Joins within the window that trigger an alert
	SweepInterval        int `koanf:"sweep_interval"`         // Seconds between reconciliation sweeps
	NotificationCooldown int `koanf:"notification_cooldown"`  // Minutes between repeated ban notices per user
	SeenLimit            int `koanf:"seen_limit"`             // Users examined per room per sweep
	PendingInputTimeout  int `koanf:"pending_input_timeout"`  // Minutes before a command prompt expires
}

// Default enforcement parameters.
const (
	DefaultRaidWindow           = 30 * time.Second
	DefaultRaidThreshold        = 10
	DefaultSweepInterval        = 60 * time.Second
	DefaultNotificationCooldown = 30 * time.Minute
	DefaultSeenLimit            = 5000
	DefaultPendingInputTimeout  = 5 * time.Minute
)

// RaidWindowDuration returns the raid window, defaulted.
func (e *Enforcement) RaidWindowDuration() time.Duration {
	if e.RaidWindow <= 0 {
		return DefaultRaidWindow
	}

	return time.Duration(e.RaidWindow) * time.Second
}

// RaidThresholdCount returns the raid threshold, defaulted.
func (e *Enforcement) RaidThresholdCount() int {
	if e.RaidThreshold <= 0 {
		return DefaultRaidThreshold
	}

	return e.RaidThreshold
}

// SweepIntervalDuration returns the sweep interval, defaulted.
func (e *Enforcement) SweepIntervalDuration() time.Duration {
	if e.SweepInterval <= 0 {
		return DefaultSweepInterval
	}

	return time.Duration(e.SweepInterval) * time.Second
}

// NotificationCooldownDuration returns the ban notice cooldown, defaulted.
func (e *Enforcement) NotificationCooldownDuration() time.Duration {
	if e.NotificationCooldown <= 0 {
		return DefaultNotificationCooldown
	}

	return time.Duration(e.NotificationCooldown) * time.Minute
}

// SeenLimitCount returns the per-room sweep limit, defaulted.
func (e *Enforcement) SeenLimitCount() int {
	if e.SeenLimit <= 0 {
		return DefaultSeenLimit
	}

	return e.SeenLimit
}

// PendingInputTimeoutDuration returns the prompt expiry, defaulted.
func (e *Enforcement) PendingInputTimeoutDuration() time.Duration {
	if e.PendingInputTimeout <= 0 {
		return DefaultPendingInputTimeout
	}

	return time.Duration(e.PendingInputTimeout) * time.Minute
}

// LoadConfig loads the configuration from chatguard.toml.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		".chatguard",
		homeDir + "/.chatguard/config",
		"/etc/chatguard/config",
		"/app/config",
		"/config",
		".",
	}

	var usedConfigPath string

	for _, path := range configPaths {
		configPath := fmt.Sprintf("%s/chatguard.toml", path)
		if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
			usedConfigPath = path
			break
		}
	}

	if usedConfigPath == "" {
		return nil, "", fmt.Errorf("%w: chatguard.toml", ErrConfigFileNotFound)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion(config.Version); err != nil {
		return nil, "", err
	}

	if config.Bot.Token == "" {
		return nil, "", ErrBotTokenMissing
	}

	return &config, usedConfigPath, nil
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(version int) error {
	if version == 0 {
		return fmt.Errorf("%w: chatguard.toml", ErrConfigVersionMissing)
	}

	if version != CurrentVersion {
		return fmt.Errorf("%w: chatguard.toml (got: %d, expected: %d)",
			ErrConfigVersionMismatch, version, CurrentVersion)
	}

	return nil
}
