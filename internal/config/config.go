// Package config provides hierarchical configuration loading for RegAdvisor.
// Precedence: defaults < YAML file < environment variables < CLI flags.
package config

import "time"

// Config holds all runtime configuration for the advisory service.
type Config struct {
	Server       Server       `yaml:"server"`
	Logging      Logging      `yaml:"logging"`
	Orchestrator Orchestrator `yaml:"orchestrator"`
	Agents       Agents       `yaml:"agents"`
	Cache        Cache        `yaml:"cache"`
	NATS         NATS         `yaml:"nats"`
	LiteLLM      LiteLLM      `yaml:"litellm"`
	Breaker      Breaker      `yaml:"breaker"`
	OTel         OTel         `yaml:"otel"`
}

// Orchestrator holds multi-agent workflow configuration.
type Orchestrator struct {
	StepTimeout          time.Duration `yaml:"step_timeout"`           // Per-attempt deadline when an agent declares none (default: 30s)
	MaxParallel          int           `yaml:"max_parallel"`           // Max agent calls in flight across all queries (default: 4)
	StepMaxAttempts      int           `yaml:"step_max_attempts"`      // Attempts per agent call, 1 = no retry (default: 2)
	RetryInitialInterval time.Duration `yaml:"retry_initial_interval"` // First backoff delay (default: 200ms)
	RetryMaxInterval     time.Duration `yaml:"retry_max_interval"`     // Backoff cap (default: 2s)
	MetricsWindow        int           `yaml:"metrics_window"`         // Processing-time samples kept per strategy (default: 100)
}

// Agents holds per-agent limits shared by the builtin agents.
type Agents struct {
	MaxQueryLength  int           `yaml:"max_query_length"` // Longest accepted query in runes (default: 2000)
	ResponseTimeout time.Duration `yaml:"response_timeout"` // Declared per-agent deadline (default: 15s)
	MaxSnippets     int           `yaml:"max_snippets"`     // Snippets requested from the evidence source (default: 5)
}

// Cache holds recommendation cache configuration.
type Cache struct {
	L1MaxItems int64         `yaml:"l1_max_items"` // Entry capacity of the in-process cache (default: 1024)
	TTL        time.Duration `yaml:"ttl"`          // Entry lifetime (default: 30m)
	L2Bucket   string        `yaml:"l2_bucket"`    // NATS KV bucket; used only when nats.url is set
}

// NATS holds NATS JetStream configuration. An empty URL disables the L2 cache.
type NATS struct {
	URL string `yaml:"url"`
}

// LiteLLM holds LiteLLM proxy configuration. An empty URL selects the static source.
type LiteLLM struct {
	URL       string        `yaml:"url"`
	MasterKey string        `yaml:"master_key"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Server holds HTTP server configuration for the observability endpoints.
type Server struct {
	Port string `yaml:"port"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds circuit breaker configuration.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// OTel holds telemetry export configuration. An empty endpoint keeps the
// global no-op providers.
type OTel struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// DefaultStepTimeout bounds an agent call when neither the agent nor the
// configuration sets a deadline.
const DefaultStepTimeout = 30 * time.Second

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port: "8080",
		},
		Logging: Logging{
			Level:   "info",
			Service: "regadvisor",
		},
		Orchestrator: Orchestrator{
			StepTimeout:          DefaultStepTimeout,
			MaxParallel:          4,
			StepMaxAttempts:      2,
			RetryInitialInterval: 200 * time.Millisecond,
			RetryMaxInterval:     2 * time.Second,
			MetricsWindow:        100,
		},
		Agents: Agents{
			MaxQueryLength:  2000,
			ResponseTimeout: 15 * time.Second,
			MaxSnippets:     5,
		},
		Cache: Cache{
			L1MaxItems: 1024,
			TTL:        30 * time.Minute,
			L2Bucket:   "REGADVISOR_RECOMMENDATIONS",
		},
		LiteLLM: LiteLLM{
			Model:   "openai/gpt-4o-mini",
			Timeout: 20 * time.Second,
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		OTel: OTel{
			ServiceName: "regadvisor",
			Insecure:    true,
		},
	}
}
