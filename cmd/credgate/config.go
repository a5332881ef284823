package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all credgate configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	LogLevel      string `json:"log_level"`
	DBPath        string `json:"db_path"`
	OpBinary      string `json:"op_binary"`
	OpTimeoutSec  int    `json:"op_timeout_sec"`
	RetentionDays int    `json:"retention_days"`
	SweepSchedule string `json:"sweep_schedule"`
}

func defaultConfig() Config {
	return Config{
		LogLevel:      "info",
		DBPath:        filepath.Join(credgateDir(), "audit.db"),
		OpBinary:      "op",
		OpTimeoutSec:  15,
		RetentionDays: 30,
		SweepSchedule: "0 3 * * *",
	}
}

func credgateDir() string {
	if v := os.Getenv("CREDGATE_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".credgate"
	}
	return filepath.Join(home, ".credgate")
}

func settingsPath() string { return filepath.Join(credgateDir(), "settings.json") }
func keyPath() string      { return filepath.Join(credgateDir(), "master.key") }
func vaultPath() string    { return filepath.Join(credgateDir(), "vault.json") }
func serversPath() string  { return filepath.Join(credgateDir(), "servers.json") }
func policyPath() string   { return filepath.Join(credgateDir(), "policy.json") }

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("CREDGATE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CREDGATE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CREDGATE_OP_BINARY"); v != "" {
		cfg.OpBinary = v
	}
	if v := os.Getenv("CREDGATE_OP_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.OpTimeoutSec = n
		}
	}
	if v := os.Getenv("CREDGATE_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RetentionDays = n
		}
	}
	if v := os.Getenv("CREDGATE_SWEEP_SCHEDULE"); v != "" {
		cfg.SweepSchedule = v
	}

	return cfg
}

func (c Config) opTimeout() time.Duration {
	return time.Duration(c.OpTimeoutSec) * time.Second
}

func (c Config) retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}
