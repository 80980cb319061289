package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	raotel "github.com/Strob0t/RegAdvisor/internal/adapter/otel"
	"github.com/Strob0t/RegAdvisor/internal/config"
	"github.com/Strob0t/RegAdvisor/internal/domain"
	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
	"github.com/Strob0t/RegAdvisor/internal/domain/confidence"
	"github.com/Strob0t/RegAdvisor/internal/domain/strategy"
	"github.com/Strob0t/RegAdvisor/internal/domain/synthesis"
	"github.com/Strob0t/RegAdvisor/internal/domain/workflow"
	"github.com/Strob0t/RegAdvisor/internal/logger"
	"github.com/Strob0t/RegAdvisor/internal/port/agent"
	"github.com/Strob0t/RegAdvisor/internal/resilience"
)

// Orchestrator selects a strategy per query, runs its agents as a workflow and
// synthesizes their responses. One instance is built per process and shared by
// every caller; it holds no lock across a query.
type Orchestrator struct {
	cfg     config.Orchestrator
	agents  map[advisory.AgentTag]agent.Agent
	order   []advisory.AgentTag
	limiter *resilience.Limiter
	perf    *performanceTracker
	calc    *confidence.Calculator
	metrics *raotel.Metrics
	now     func() time.Time
}

// NewOrchestrator creates an Orchestrator over the given agents. Tags must be
// unique. A non-positive StepTimeout falls back to config.DefaultStepTimeout.
func NewOrchestrator(cfg config.Orchestrator, agents ...agent.Agent) (*Orchestrator, error) {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = config.DefaultStepTimeout
	}
	o := &Orchestrator{
		cfg:     cfg,
		agents:  make(map[advisory.AgentTag]agent.Agent, len(agents)),
		limiter: resilience.NewLimiter(cfg.MaxParallel),
		perf:    newPerformanceTracker(cfg.MetricsWindow),
		calc:    confidence.NewCalculator(),
		now:     time.Now,
	}
	for _, a := range agents {
		if a == nil {
			return nil, errors.New("nil agent")
		}
		tag := a.Tag()
		if _, dup := o.agents[tag]; dup {
			return nil, fmt.Errorf("duplicate agent %s", tag)
		}
		o.agents[tag] = a
		o.order = append(o.order, tag)
	}
	return o, nil
}

// SetMetrics sets the instruments recorded for every query and step.
func (o *Orchestrator) SetMetrics(m *raotel.Metrics) {
	o.metrics = m
}

// SetClock replaces the time source used for step timestamps, processing
// times and evidence age.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
	o.calc = o.calc.WithClock(now)
}

// SetCalculator replaces the confidence calculator applied to merged responses.
func (o *Orchestrator) SetCalculator(c *confidence.Calculator) {
	o.calc = c.WithClock(o.now)
}

// Agents returns the registered agent tags in registration order.
func (o *Orchestrator) Agents() []advisory.AgentTag {
	return slices.Clone(o.order)
}

// Strategies returns the builtin strategies in selection order.
func (o *Orchestrator) Strategies() []strategy.Strategy {
	return strategy.Builtin()
}

// Initialize initializes every agent in registration order and stops at the first failure.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	for _, tag := range o.order {
		if err := o.agents[tag].Initialize(ctx); err != nil {
			return fmt.Errorf("initialize %s: %w", tag, err)
		}
		slog.InfoContext(ctx, "agent initialized", "agent", tag)
	}
	return nil
}

// Cleanup releases every agent. All agents are cleaned even if some fail.
func (o *Orchestrator) Cleanup(ctx context.Context) error {
	var errs []error
	for _, tag := range o.order {
		if err := o.agents[tag].Cleanup(ctx); err != nil {
			errs = append(errs, fmt.Errorf("cleanup %s: %w", tag, err))
		}
	}
	return errors.Join(errs...)
}

// HealthCheck is true only if every agent reports healthy.
func (o *Orchestrator) HealthCheck(ctx context.Context) bool {
	for _, healthy := range o.AgentHealth(ctx) {
		if !healthy {
			return false
		}
	}
	return true
}

// AgentHealth reports each agent's own health check.
func (o *Orchestrator) AgentHealth(ctx context.Context) map[advisory.AgentTag]bool {
	out := make(map[advisory.AgentTag]bool, len(o.order))
	for _, tag := range o.order {
		out[tag] = o.agents[tag].HealthCheck(ctx)
	}
	return out
}

// PerformanceMetrics returns processing-time statistics per strategy over the
// most recent successful queries.
func (o *Orchestrator) PerformanceMetrics() map[strategy.Name]PerformanceStats {
	return o.perf.Snapshot()
}

// ProcessQuery answers one advisory query. The context is copied, so the
// caller's value is never modified. A failed workflow is reported as a
// *WorkflowError carrying the step record.
func (o *Orchestrator) ProcessQuery(ctx context.Context, ac *advisory.Context) (*synthesis.Result, error) {
	if ac == nil {
		return nil, errors.New("advisory context is required")
	}
	if err := ac.Validate(); err != nil {
		return nil, fmt.Errorf("validate context: %w", err)
	}
	c := *ac
	c.Frameworks = slices.Clone(ac.Frameworks)
	c.History = slices.Clone(ac.History)
	if c.QueryID == "" {
		c.QueryID = uuid.NewString()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = o.now().UTC()
	}

	start := o.now()
	s := strategy.Select(&c)
	wf := workflow.New(c.QueryID, s)

	ctx = logger.WithQueryID(ctx, c.QueryID)
	ctx = logger.WithWorkflowID(ctx, wf.ID)
	ctx, span := raotel.StartQuerySpan(ctx, c.QueryID, string(s.Name))
	defer span.End()

	slog.InfoContext(ctx, "query started",
		"strategy", s.Name,
		"parallel", s.Parallel,
		"method", s.Method,
		"agents", len(s.Agents),
	)

	wf.Status = workflow.StatusRunning
	wf.StartedAt = start

	responses, err := o.execute(ctx, wf, &c)
	if err == nil {
		var res *synthesis.Result
		res, err = o.synthesize(ctx, s, wf, &c, responses, start)
		if err == nil {
			return res, nil
		}
	}

	wf.Status = workflow.StatusFailed
	wf.EndedAt = o.now()
	raotel.FailSpan(span, err)
	o.metrics.RecordQueryFailure(ctx, string(s.Name), failureReason(err))
	slog.ErrorContext(ctx, "query failed",
		"strategy", s.Name,
		"duration_ms", wf.EndedAt.Sub(start).Milliseconds(),
		"error", err,
	)
	return nil, &WorkflowError{Workflow: wf, Strategy: s.Name, Err: err}
}

// synthesize merges the responses, applies the strategy threshold and derives
// the result metrics.
func (o *Orchestrator) synthesize(
	ctx context.Context,
	s strategy.Strategy,
	wf *workflow.Workflow,
	c *advisory.Context,
	responses synthesis.Responses,
	start time.Time,
) (*synthesis.Result, error) {
	merged, err := synthesis.Synthesize(s.Method, responses, s.Agents)
	if err != nil {
		return nil, fmt.Errorf("synthesize %s: %w", s.Method, err)
	}

	if merged.Confidence < s.MinConfidence {
		applyThreshold(merged, s)
		slog.WarnContext(ctx, "confidence below strategy threshold",
			"strategy", s.Name,
			"confidence", merged.Confidence,
			"threshold", s.MinConfidence,
		)
	}
	advisory.RankFollowUps(merged.FollowUps)

	peers := make([]*advisory.Response, 0, len(responses))
	for _, tag := range s.Agents {
		if r := responses[tag]; r != nil {
			peers = append(peers, r)
		}
	}

	end := o.now()
	elapsed := end.Sub(start)
	merged.ProcessingTime = elapsed
	wf.Status = workflow.StatusCompleted
	wf.EndedAt = end

	agg := synthesis.Aggregate(merged, responses)
	res := &synthesis.Result{
		Response:       merged,
		AgentResponses: responses,
		Metrics:        agg,
		Confidence:     o.calc.Score(merged, c, peers...),
		Method:         s.Method,
		Strategy:       s.Name,
		Workflow:       wf,
		ProcessingTime: elapsed,
		QualityScore: confidence.QualityScore(
			merged.Confidence,
			agg.EvidenceCount,
			agg.SuggestionCount,
			agg.AgentCount,
			confidence.Completeness(merged),
		),
	}

	o.perf.Record(s.Name, elapsed)
	o.metrics.RecordQuery(ctx, string(s.Name), string(s.Method), elapsed, merged.Confidence, res.QualityScore)
	slog.InfoContext(ctx, "query completed",
		"strategy", s.Name,
		"method", s.Method,
		"agents", agg.AgentCount,
		"confidence", merged.Confidence,
		"quality", res.QualityScore,
		"duration_ms", elapsed.Milliseconds(),
	)
	return res, nil
}

// applyThreshold flags a merged response whose confidence misses the strategy
// threshold. The query still succeeds.
func applyThreshold(r *advisory.Response, s strategy.Strategy) {
	r.Limitations = append(r.Limitations, fmt.Sprintf(
		"Final confidence %.2f is below the %s threshold of %.2f; treat this advice as provisional.",
		r.Confidence, s.Name, s.MinConfidence,
	))
	r.FollowUps = append(r.FollowUps, advisory.FollowUpSuggestion{
		Text:            "Escalate to a compliance officer for review before acting on this advice.",
		Type:            advisory.SuggestionEscalation,
		Confidence:      advisory.Clamp(1 - r.Confidence),
		Priority:        advisory.PriorityHigh,
		EstimatedEffort: "1 day",
	})
}

// failureReason buckets an orchestration error for the failure counter.
func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrSynthesisImpossible):
		return "synthesis_impossible"
	case errors.Is(err, domain.ErrInvalidResponse):
		return "invalid_response"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, domain.ErrNotFound):
		return "agent_missing"
	}
	return "agent_failure"
}
