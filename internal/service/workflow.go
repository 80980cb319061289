package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	raotel "github.com/Strob0t/RegAdvisor/internal/adapter/otel"
	"github.com/Strob0t/RegAdvisor/internal/domain"
	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
	"github.com/Strob0t/RegAdvisor/internal/domain/strategy"
	"github.com/Strob0t/RegAdvisor/internal/domain/synthesis"
	"github.com/Strob0t/RegAdvisor/internal/domain/workflow"
	"github.com/Strob0t/RegAdvisor/internal/port/agent"
	"github.com/Strob0t/RegAdvisor/internal/resilience"
)

// WorkflowError reports a failed query together with its step record.
type WorkflowError struct {
	Workflow *workflow.Workflow
	Strategy strategy.Name
	Err      error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("workflow %s (%s): %v", e.Workflow.ID, e.Strategy, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// FailedStep returns the first failed step, or nil when the workflow failed
// after every step finished.
func (e *WorkflowError) FailedStep() *workflow.Step {
	return workflow.FirstFailed(e.Workflow.Steps)
}

func (o *Orchestrator) execute(ctx context.Context, wf *workflow.Workflow, c *advisory.Context) (synthesis.Responses, error) {
	if wf.Parallel {
		return o.runParallel(ctx, wf, c)
	}
	return o.runSequential(ctx, wf, c)
}

// runSequential runs steps in strategy order. The first failure aborts the
// workflow and later steps stay pending.
func (o *Orchestrator) runSequential(ctx context.Context, wf *workflow.Workflow, c *advisory.Context) (synthesis.Responses, error) {
	rs := make(synthesis.Responses, len(wf.Steps))
	for i := range wf.Steps {
		r, err := o.runStep(ctx, wf, i, c)
		if err != nil {
			return nil, err
		}
		if r != nil {
			rs[wf.Steps[i].Agent] = r
		}
	}
	return rs, nil
}

// runParallel dispatches every step at once and joins them. The first failure
// cancels the remaining steps and fails the workflow.
func (o *Orchestrator) runParallel(ctx context.Context, wf *workflow.Workflow, c *advisory.Context) (synthesis.Responses, error) {
	results := make([]*advisory.Response, len(wf.Steps))
	g, gctx := errgroup.WithContext(ctx)
	for i := range wf.Steps {
		g.Go(func() error {
			r, err := o.runStep(gctx, wf, i, c)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rs := make(synthesis.Responses, len(results))
	for i, r := range results {
		if r != nil {
			rs[wf.Steps[i].Agent] = r
		}
	}
	return rs, nil
}

// runStep drives one step through its lifecycle. A nil response with a nil
// error means the agent declined the context and the step was skipped.
func (o *Orchestrator) runStep(ctx context.Context, wf *workflow.Workflow, idx int, c *advisory.Context) (*advisory.Response, error) {
	step := &wf.Steps[idx]

	a, ok := o.agents[step.Agent]
	if !ok {
		err := fmt.Errorf("step %d (%s): agent %w", idx, step.Agent, domain.ErrNotFound)
		step.Fail(o.now(), err)
		o.metrics.RecordStep(ctx, string(step.Agent), string(workflow.StepStatusFailed))
		return nil, err
	}

	if !a.CanHandle(c) {
		step.Skip(o.now(), domain.ErrContextRejected.Error())
		o.metrics.RecordStep(ctx, string(step.Agent), string(workflow.StepStatusSkipped))
		slog.DebugContext(ctx, "step skipped", "agent", step.Agent, "step", idx)
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		step.Fail(o.now(), err)
		o.metrics.RecordStep(ctx, string(step.Agent), string(workflow.StepStatusFailed))
		return nil, fmt.Errorf("step %d (%s): %w", idx, step.Agent, err)
	}

	ctx, span := raotel.StartStepSpan(ctx, wf.ID, string(step.Agent), idx)
	defer span.End()

	step.Start(o.now())
	slog.InfoContext(ctx, "step started", "agent", step.Agent, "step", idx)

	resp, attempts, err := resilience.Retry(ctx, o.retryPolicy(ctx, step.Agent), func(ctx context.Context) (*advisory.Response, error) {
		return o.invoke(ctx, a, c)
	})
	step.Attempts = attempts

	if err != nil {
		step.Fail(o.now(), err)
		raotel.FailSpan(span, err)
		o.metrics.RecordStep(ctx, string(step.Agent), string(workflow.StepStatusFailed))
		slog.ErrorContext(ctx, "step failed",
			"agent", step.Agent,
			"step", idx,
			"attempts", attempts,
			"duration_ms", step.Duration().Milliseconds(),
			"error", err,
		)
		return nil, fmt.Errorf("step %d (%s): %w", idx, step.Agent, err)
	}

	step.Complete(o.now())
	o.metrics.RecordStep(ctx, string(step.Agent), string(workflow.StepStatusCompleted))
	slog.InfoContext(ctx, "step completed",
		"agent", step.Agent,
		"step", idx,
		"attempts", attempts,
		"confidence", resp.Confidence,
		"duration_ms", step.Duration().Milliseconds(),
	)
	return resp, nil
}

func (o *Orchestrator) retryPolicy(ctx context.Context, tag advisory.AgentTag) resilience.RetryPolicy {
	return resilience.RetryPolicy{
		MaxAttempts:     o.cfg.StepMaxAttempts,
		InitialInterval: o.cfg.RetryInitialInterval,
		MaxInterval:     o.cfg.RetryMaxInterval,
		Permanent: func(err error) bool {
			return errors.Is(err, domain.ErrInvalidResponse)
		},
		OnRetry: func(attempt int, err error, wait time.Duration) {
			slog.WarnContext(ctx, "retrying agent call",
				"agent", tag,
				"attempt", attempt,
				"wait_ms", wait.Milliseconds(),
				"error", err,
			)
		},
	}
}

type callResult struct {
	resp *advisory.Response
	err  error
}

// invoke makes one bounded agent call and validates the response. The call
// is abandoned when its deadline passes even if the agent ignores ctx; its
// limiter slot is released only once the agent actually returns.
func (o *Orchestrator) invoke(ctx context.Context, a agent.Agent, c *advisory.Context) (*advisory.Response, error) {
	tag := a.Tag()
	timeout := a.Capabilities().ResponseTimeout
	if timeout <= 0 {
		timeout = o.cfg.StepTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var res callResult
	release, err := o.limiter.Acquire(callCtx)
	if err == nil {
		done := make(chan callResult, 1)
		go func() {
			defer release()
			r, err := a.ProcessQuery(callCtx, c)
			done <- callResult{resp: r, err: err}
		}()
		select {
		case res = <-done:
			err = res.err
		case <-callCtx.Done():
			err = callCtx.Err()
		}
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s timed out after %s: %w", domain.ErrAgentFailure, tag, timeout, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrAgentFailure, tag, err)
	}

	resp := res.resp
	if resp == nil {
		return nil, fmt.Errorf("%w: %s returned no response", domain.ErrInvalidResponse, tag)
	}
	if resp.Agent != tag {
		return nil, fmt.Errorf("%w: %s returned a response tagged %q", domain.ErrInvalidResponse, tag, resp.Agent)
	}
	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidResponse, err)
	}
	return resp, nil
}
