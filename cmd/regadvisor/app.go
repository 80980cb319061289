package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Strob0t/RegAdvisor/internal/adapter/advisor"
	"github.com/Strob0t/RegAdvisor/internal/adapter/litellm"
	ranats "github.com/Strob0t/RegAdvisor/internal/adapter/nats"
	"github.com/Strob0t/RegAdvisor/internal/adapter/natskv"
	raotel "github.com/Strob0t/RegAdvisor/internal/adapter/otel"
	"github.com/Strob0t/RegAdvisor/internal/adapter/regparser"
	"github.com/Strob0t/RegAdvisor/internal/adapter/ristretto"
	"github.com/Strob0t/RegAdvisor/internal/adapter/scorer"
	"github.com/Strob0t/RegAdvisor/internal/adapter/static"
	"github.com/Strob0t/RegAdvisor/internal/adapter/tiered"
	"github.com/Strob0t/RegAdvisor/internal/config"
	"github.com/Strob0t/RegAdvisor/internal/logger"
	"github.com/Strob0t/RegAdvisor/internal/port/agent"
	"github.com/Strob0t/RegAdvisor/internal/port/cache"
	"github.com/Strob0t/RegAdvisor/internal/port/evidence"
	"github.com/Strob0t/RegAdvisor/internal/resilience"
	"github.com/Strob0t/RegAdvisor/internal/service"
)

// app is the fully wired process: one orchestrator plus the resources it owns.
type app struct {
	cfg          *config.Config
	orchestrator *service.Orchestrator
	closers      []func(context.Context) error
}

// newApp builds every dependency from cfg and initializes the agents. Logs
// are written to logOut. On error, anything already opened is closed.
func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	l, logCloser := logger.NewWithWriter(cfg.Logging, logOut)
	slog.SetDefault(l)
	a.closers = append(a.closers, func(context.Context) error { logCloser.Close(); return nil })

	shutdownOTel, err := raotel.Setup(ctx, cfg.OTel)
	if err != nil {
		return nil, fmt.Errorf("otel: %w", err)
	}
	a.closers = append(a.closers, shutdownOTel)

	metrics, err := raotel.NewMetrics(nil)
	if err != nil {
		return nil, fmt.Errorf("otel metrics: %w", err)
	}

	src, err := a.evidenceSource()
	if err != nil {
		return nil, err
	}

	recCache, err := a.recommendationCache(ctx)
	if err != nil {
		return nil, err
	}

	limits := agent.Limits{
		MaxQueryLength:  cfg.Agents.MaxQueryLength,
		ResponseTimeout: cfg.Agents.ResponseTimeout,
		MaxSnippets:     cfg.Agents.MaxSnippets,
	}
	gen := advisor.New(src, limits)
	gen.SetCache(recCache, cfg.Cache.TTL)

	orch, err := service.NewOrchestrator(cfg.Orchestrator,
		regparser.New(src, limits),
		gen,
		scorer.New(src, limits),
	)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	orch.SetMetrics(metrics)

	if err := orch.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize agents: %w", err)
	}
	a.closers = append(a.closers, orch.Cleanup)
	a.orchestrator = orch

	slog.Info("regadvisor ready",
		"agents", len(orch.Agents()),
		"evidence", sourceKind(cfg),
		"l2_cache", cfg.NATS.URL != "",
		"otel", cfg.OTel.Endpoint != "",
	)
	return a, nil
}

// evidenceSource selects the LiteLLM-backed source when a proxy URL is set,
// otherwise the embedded corpus.
func (a *app) evidenceSource() (evidence.Source, error) {
	if a.cfg.LiteLLM.URL == "" {
		src, err := static.New()
		if err != nil {
			return nil, fmt.Errorf("static corpus: %w", err)
		}
		return src, nil
	}
	client := litellm.NewClient(a.cfg.LiteLLM.URL, a.cfg.LiteLLM.MasterKey, a.cfg.LiteLLM.Timeout)
	client.SetBreaker(resilience.NewBreaker(a.cfg.Breaker.MaxFailures, a.cfg.Breaker.Timeout))
	return litellm.NewSource(client, a.cfg.LiteLLM.Model), nil
}

// recommendationCache builds the bounded L1 cache, backed by a NATS KV
// bucket when NATS is configured.
func (a *app) recommendationCache(ctx context.Context) (cache.Cache, error) {
	l1, err := ristretto.New(a.cfg.Cache.L1MaxItems)
	if err != nil {
		return nil, fmt.Errorf("l1 cache: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { l1.Close(); return nil })

	if a.cfg.NATS.URL == "" {
		return l1, nil
	}

	conn, err := ranats.Connect(ctx, a.cfg.NATS.URL)
	if err != nil {
		return nil, fmt.Errorf("nats: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return conn.Close() })

	kv, err := conn.KeyValue(ctx, a.cfg.Cache.L2Bucket, a.cfg.Cache.TTL)
	if err != nil {
		return nil, err
	}
	return tiered.New(l1, natskv.New(kv), a.cfg.Cache.TTL), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func sourceKind(cfg *config.Config) string {
	if cfg.LiteLLM.URL != "" {
		return "litellm"
	}
	return "static"
}
