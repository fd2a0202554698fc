package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig_EnvVars(t *testing.T) {
	os.Setenv("MELCLOUD_USERNAME", "test@example.com")
	os.Setenv("MELCLOUD_PASSWORD", "testpass123")
	os.Setenv("MELCLOUD_ADDR", ":9999")
	os.Setenv("MELCLOUD_POLL_INTERVAL", "30")
	os.Setenv("MELCLOUD_ENERGY_INTERVAL", "15")
	os.Setenv("MELCLOUD_LOG_LEVEL", "debug")
	os.Setenv("MELCLOUD_LOG_FORMAT", "json")
	defer func() {
		os.Unsetenv("MELCLOUD_USERNAME")
		os.Unsetenv("MELCLOUD_PASSWORD")
		os.Unsetenv("MELCLOUD_ADDR")
		os.Unsetenv("MELCLOUD_POLL_INTERVAL")
		os.Unsetenv("MELCLOUD_ENERGY_INTERVAL")
		os.Unsetenv("MELCLOUD_LOG_LEVEL")
		os.Unsetenv("MELCLOUD_LOG_FORMAT")
	}()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Username != "test@example.com" {
		t.Errorf("Username = %v, want test@example.com", cfg.Username)
	}
	if cfg.Password != "testpass123" {
		t.Errorf("Password = %v, want testpass123", cfg.Password)
	}
	if cfg.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %v, want :9999", cfg.ListenAddr)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %v, want 30s", cfg.PollInterval)
	}
	if cfg.EnergyInterval != 15*time.Minute {
		t.Errorf("EnergyInterval = %v, want 15m", cfg.EnergyInterval)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %v, want json", cfg.LogFormat)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	os.Unsetenv("MELCLOUD_ADDR")
	os.Unsetenv("MELCLOUD_POLL_INTERVAL")
	os.Unsetenv("MELCLOUD_ENERGY_INTERVAL")
	os.Unsetenv("MELCLOUD_LOG_LEVEL")
	os.Unsetenv("MELCLOUD_LOG_FORMAT")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.ListenAddr != ":9810" {
		t.Errorf("ListenAddr = %v, want :9810", cfg.ListenAddr)
	}
	if cfg.PollInterval != 60*time.Second {
		t.Errorf("PollInterval = %v, want 60s", cfg.PollInterval)
	}
	if cfg.EnergyInterval != 30*time.Minute {
		t.Errorf("EnergyInterval = %v, want 30m", cfg.EnergyInterval)
	}
	if cfg.EnergyStatePath != "melcloud-energy.json" {
		t.Errorf("EnergyStatePath = %v, want melcloud-energy.json", cfg.EnergyStatePath)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestValidate_MissingCredentials(t *testing.T) {
	cfg := &Config{
		Password:       "password",
		PollInterval:   time.Minute,
		EnergyInterval: 30 * time.Minute,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for missing username, got nil")
	}

	cfg = &Config{
		Username:       "user@example.com",
		PollInterval:   time.Minute,
		EnergyInterval: 30 * time.Minute,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for missing password, got nil")
	}
}

func TestValidate_IntervalFloors(t *testing.T) {
	cfg := &Config{
		Username:       "user@example.com",
		Password:       "password",
		PollInterval:   5 * time.Second,
		EnergyInterval: 30 * time.Minute,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for poll interval < 15s, got nil")
	}

	cfg.PollInterval = time.Minute
	cfg.EnergyInterval = time.Minute
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for energy interval < 5m, got nil")
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := &Config{
		Username:       "user@example.com",
		Password:       "password",
		PollInterval:   time.Minute,
		EnergyInterval: 30 * time.Minute,
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}
