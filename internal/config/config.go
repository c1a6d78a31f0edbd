// Package config loads honeypot configuration from config.yaml and
// HONEYPOT_ environment variables, env taking precedence.
package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	LLM        LLMConfig        `koanf:"llm"`
	Engagement EngagementConfig `koanf:"engagement"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	Collector  CollectorConfig  `koanf:"collector"`
	Session    SessionConfig    `koanf:"session"`
}

type ServerConfig struct {
	Port   int    `koanf:"port"`
	APIKey string `koanf:"api_key"`
}

type LLMConfig struct {
	APIKey         string `koanf:"api_key"`
	BaseURL        string `koanf:"base_url"`
	Model          string `koanf:"model"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
}

type EngagementConfig struct {
	// Threshold is the scammer turn count at which a detected session
	// is reported to the collector.
	Threshold int `koanf:"threshold"`
}

type RateLimitConfig struct {
	PerMinute int  `koanf:"per_minute"`
	PerDay    int  `koanf:"per_day"`
	FailOpen  bool `koanf:"fail_open"`
}

type CollectorConfig struct {
	URL    string `koanf:"url"`
	APIKey string `koanf:"api_key"`
}

type SessionConfig struct {
	// TTLMinutes is how long an idle session survives before the
	// sweeper archives it. Zero disables sweeping.
	TTLMinutes  int    `koanf:"ttl_minutes"`
	ArchivePath string `koanf:"archive_path"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try to load from config.yaml file first
	if err := k.Load(file.Provider("config.yaml"), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.Provider("HONEYPOT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "HONEYPOT_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("engagement.threshold") {
		k.Set("engagement.threshold", 10)
	}
	if !k.Exists("rate_limit.per_minute") {
		k.Set("rate_limit.per_minute", 10)
	}
	if !k.Exists("rate_limit.per_day") {
		k.Set("rate_limit.per_day", 100)
	}
	if !k.Exists("llm.timeout_seconds") {
		k.Set("llm.timeout_seconds", 10)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Substitute environment variables in secrets
	cfg.Server.APIKey = substituteEnvVars(cfg.Server.APIKey)
	cfg.LLM.APIKey = substituteEnvVars(cfg.LLM.APIKey)
	cfg.Collector.APIKey = substituteEnvVars(cfg.Collector.APIKey)

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
