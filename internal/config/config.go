// Package config handles configuration loading from environment variables and
// mounted secrets.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the bridge.
type Config struct {
	// Account credentials, opaque to everything below main
	Username string
	Password string

	// Polling cadence
	PollInterval   time.Duration
	EnergyInterval time.Duration

	// Energy accumulator state file
	EnergyStatePath string

	// Local HTTP server
	ListenAddr string

	// Optional MQTT bridge; disabled when Broker is empty
	MQTTBroker   string
	MQTTUsername string
	MQTTPassword string

	// Logging configuration
	LogLevel  string // debug, info, warn, error
	LogFormat string // text, json
}

// LoadConfig loads configuration from environment variables and mounted
// secrets. Secrets take precedence for the credentials; everything else comes
// from the environment with defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		PollInterval:    60 * time.Second,
		EnergyInterval:  30 * time.Minute,
		EnergyStatePath: "melcloud-energy.json",
		ListenAddr:      ":9810",
		LogLevel:        "info",
		LogFormat:       "text",
	}

	username, password, err := tryLoadFromSecrets()
	if err == nil && username != "" && password != "" {
		cfg.Username = username
		cfg.Password = password
	} else {
		cfg.Username = os.Getenv("MELCLOUD_USERNAME")
		cfg.Password = os.Getenv("MELCLOUD_PASSWORD")
	}

	if addr := os.Getenv("MELCLOUD_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if level := os.Getenv("MELCLOUD_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if format := os.Getenv("MELCLOUD_LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}
	if path := os.Getenv("MELCLOUD_ENERGY_STATE"); path != "" {
		cfg.EnergyStatePath = path
	}

	if interval := os.Getenv("MELCLOUD_POLL_INTERVAL"); interval != "" {
		if seconds, err := strconv.Atoi(interval); err == nil && seconds > 0 {
			cfg.PollInterval = time.Duration(seconds) * time.Second
		}
	}
	if interval := os.Getenv("MELCLOUD_ENERGY_INTERVAL"); interval != "" {
		if minutes, err := strconv.Atoi(interval); err == nil && minutes > 0 {
			cfg.EnergyInterval = time.Duration(minutes) * time.Minute
		}
	}

	cfg.MQTTBroker = os.Getenv("MELCLOUD_MQTT_BROKER")
	cfg.MQTTUsername = os.Getenv("MELCLOUD_MQTT_USERNAME")
	cfg.MQTTPassword = os.Getenv("MELCLOUD_MQTT_PASSWORD")

	return cfg, nil
}

// Validate checks that all required configuration fields are set and the
// cadences stay conservative; the vendor publishes no rate limit, so the
// fixed intervals are the only defense.
func (c *Config) Validate() error {
	if c.Username == "" {
		return errors.New("username is required (set MELCLOUD_USERNAME or mount a secret)")
	}
	if c.Password == "" {
		return errors.New("password is required (set MELCLOUD_PASSWORD or mount a secret)")
	}
	if c.PollInterval < 15*time.Second {
		return errors.New("poll interval must be at least 15 seconds")
	}
	if c.EnergyInterval < 5*time.Minute {
		return errors.New("energy interval must be at least 5 minutes")
	}
	return nil
}
