// QRCall - QR-Triggered Call Signaling Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/qrcall

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/qrcall/config.yaml",
	"/etc/qrcall/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. Defaults are
// loaded first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      5000,
			Timeout:   30 * time.Second,
			PublicURL: "http://localhost:5000",
		},
		Security: SecurityConfig{
			JWTSecret:      "",
			SessionTimeout: 7 * 24 * time.Hour,
			CORSOrigins:    []string{"*"},
		},
		RTC: RTCConfig{
			AppID:     "",
			AppSecret: "",
			TokenTTL:  time.Hour,
		},
		Push: PushConfig{
			GatewayURL:    "",
			ServerKey:     "",
			Timeout:       10 * time.Second,
			RatePerSecond: 50,
		},
		Database: DatabaseConfig{
			Path:     "/data/qrcall",
			InMemory: false,
		},
		Calls: CallsConfig{
			RingTimeout:   60 * time.Second,
			SweepInterval: 15 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Disabled: false,
			Auth:     RateLimitBudget{Points: 5, Window: time.Minute, Block: 15 * time.Minute},
			General:  RateLimitBudget{Points: 100, Window: time.Minute, Block: time.Minute},
			Call:     RateLimitBudget{Points: 10, Window: time.Minute, Block: 5 * time.Minute},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if exists)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated
// slices when they arrive as env var strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables return "" and are skipped, so random environment
// variables cannot pollute the config.
func envTransformFunc(key string) string {
	envMappings := map[string]string{
		// Server
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",
		"public_url":   "server.public_url",

		// Security
		"jwt_secret":      "security.jwt_secret",
		"session_timeout": "security.session_timeout",
		"cors_origins":    "security.cors_origins",

		// Media token issuer
		"rtc_app_id":     "rtc.app_id",
		"rtc_app_secret": "rtc.app_secret",
		"rtc_token_ttl":  "rtc.token_ttl",

		// Push gateway
		"push_gateway_url": "push.gateway_url",
		"push_server_key":  "push.server_key",
		"push_timeout":     "push.timeout",
		"push_rate":        "push.rate_per_second",

		// Database
		"badger_path":      "database.path",
		"badger_in_memory": "database.in_memory",

		// Call lifecycle
		"call_ring_timeout":   "calls.ring_timeout",
		"call_sweep_interval": "calls.sweep_interval",

		// Rate limiting
		"disable_rate_limit":  "rate_limit.disabled",
		"rate_auth_points":    "rate_limit.auth.points",
		"rate_auth_window":    "rate_limit.auth.window",
		"rate_auth_block":     "rate_limit.auth.block",
		"rate_general_points": "rate_limit.general.points",
		"rate_general_window": "rate_limit.general.window",
		"rate_general_block":  "rate_limit.general.block",
		"rate_call_points":    "rate_limit.call.points",
		"rate_call_window":    "rate_limit.call.window",
		"rate_call_block":     "rate_limit.call.block",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
