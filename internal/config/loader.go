package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "regadvisor.yaml"

// CLIFlags carries command-line overrides. Nil fields were not set.
type CLIFlags struct {
	ConfigPath *string
	Port       *string
	LogLevel   *string
	NatsURL    *string
	LiteLLMURL *string
}

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	return load(yamlPath, CLIFlags{})
}

// LoadWithCLI applies the full hierarchy including CLI flags, and returns the
// YAML path that was used.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	path := DefaultConfigFile
	if flags.ConfigPath != nil && *flags.ConfigPath != "" {
		path = *flags.ConfigPath
	}
	cfg, err := load(path, flags)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func load(yamlPath string, flags CLIFlags) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)
	applyCLI(&cfg, flags)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty, parseable env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "REGADVISOR_PORT")
	setString(&cfg.Logging.Level, "REGADVISOR_LOG_LEVEL")
	setString(&cfg.Logging.Service, "REGADVISOR_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "REGADVISOR_LOG_ASYNC")

	// Orchestrator
	setDuration(&cfg.Orchestrator.StepTimeout, "REGADVISOR_ORCH_STEP_TIMEOUT")
	setInt(&cfg.Orchestrator.MaxParallel, "REGADVISOR_ORCH_MAX_PARALLEL")
	setInt(&cfg.Orchestrator.StepMaxAttempts, "REGADVISOR_ORCH_STEP_MAX_ATTEMPTS")
	setDuration(&cfg.Orchestrator.RetryInitialInterval, "REGADVISOR_ORCH_RETRY_INITIAL")
	setDuration(&cfg.Orchestrator.RetryMaxInterval, "REGADVISOR_ORCH_RETRY_MAX")
	setInt(&cfg.Orchestrator.MetricsWindow, "REGADVISOR_ORCH_METRICS_WINDOW")

	// Agents
	setInt(&cfg.Agents.MaxQueryLength, "REGADVISOR_AGENT_MAX_QUERY_LENGTH")
	setDuration(&cfg.Agents.ResponseTimeout, "REGADVISOR_AGENT_RESPONSE_TIMEOUT")
	setInt(&cfg.Agents.MaxSnippets, "REGADVISOR_AGENT_MAX_SNIPPETS")

	// Cache
	setInt64(&cfg.Cache.L1MaxItems, "REGADVISOR_CACHE_L1_MAX_ITEMS")
	setDuration(&cfg.Cache.TTL, "REGADVISOR_CACHE_TTL")
	setString(&cfg.Cache.L2Bucket, "REGADVISOR_CACHE_L2_BUCKET")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.LiteLLM.URL, "LITELLM_URL")
	setString(&cfg.LiteLLM.MasterKey, "LITELLM_MASTER_KEY")
	setString(&cfg.LiteLLM.Model, "REGADVISOR_LLM_MODEL")
	setDuration(&cfg.LiteLLM.Timeout, "REGADVISOR_LLM_TIMEOUT")
	setInt(&cfg.Breaker.MaxFailures, "REGADVISOR_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "REGADVISOR_BREAKER_TIMEOUT")
	setString(&cfg.OTel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.OTel.ServiceName, "OTEL_SERVICE_NAME")
}

// applyCLI overlays explicitly set flags onto cfg.
func applyCLI(cfg *Config, f CLIFlags) {
	if f.Port != nil {
		cfg.Server.Port = *f.Port
	}
	if f.LogLevel != nil {
		cfg.Logging.Level = *f.LogLevel
	}
	if f.NatsURL != nil {
		cfg.NATS.URL = *f.NatsURL
	}
	if f.LiteLLMURL != nil {
		cfg.LiteLLM.URL = *f.LiteLLMURL
	}
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Orchestrator.StepTimeout <= 0 {
		return errors.New("orchestrator.step_timeout must be > 0")
	}
	if cfg.Orchestrator.MaxParallel < 1 {
		return errors.New("orchestrator.max_parallel must be >= 1")
	}
	if cfg.Orchestrator.StepMaxAttempts < 1 {
		return errors.New("orchestrator.step_max_attempts must be >= 1")
	}
	if cfg.Orchestrator.MetricsWindow < 1 {
		return errors.New("orchestrator.metrics_window must be >= 1")
	}
	if cfg.Cache.L1MaxItems < 1 {
		return errors.New("cache.l1_max_items must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.NATS.URL != "" && cfg.Cache.L2Bucket == "" {
		return errors.New("cache.l2_bucket is required when nats.url is set")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
