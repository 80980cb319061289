// Package workflow records the runtime execution of one strategy for one query.
package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
	"github.com/Strob0t/RegAdvisor/internal/domain/strategy"
)

// Status represents the lifecycle state of a workflow.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StepStatus represents the lifecycle state of an individual step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// IsTerminal returns true if the step is in a final state.
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StepStatusCompleted, StepStatusFailed, StepStatusSkipped:
		return true
	}
	return false
}

// Step wraps one agent invocation.
type Step struct {
	Index     int               `json:"index"`
	Agent     advisory.AgentTag `json:"agent"`
	Status    StepStatus        `json:"status"`
	Attempts  int               `json:"attempts"`
	StartedAt time.Time         `json:"started_at,omitempty"`
	EndedAt   time.Time         `json:"ended_at,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Duration returns how long the step ran. Zero until the step ends.
func (s *Step) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.EndedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Start moves a pending step to running.
func (s *Step) Start(now time.Time) {
	s.Status = StepStatusRunning
	s.StartedAt = now
}

// Complete moves a running step to completed.
func (s *Step) Complete(now time.Time) {
	s.Status = StepStatusCompleted
	s.EndedAt = now
}

// Fail moves a step to failed and records the error message.
func (s *Step) Fail(now time.Time, err error) {
	s.Status = StepStatusFailed
	s.EndedAt = now
	if err != nil {
		s.Error = err.Error()
	}
}

// Skip marks a step whose agent declined the context. It never ran.
func (s *Step) Skip(now time.Time, reason string) {
	s.Status = StepStatusSkipped
	s.EndedAt = now
	s.Error = reason
}

// Workflow is created fresh per query and discarded afterwards.
type Workflow struct {
	ID        string        `json:"id"`
	QueryID   string        `json:"query_id"`
	Strategy  strategy.Name `json:"strategy"`
	Parallel  bool          `json:"parallel"`
	Status    Status        `json:"status"`
	Steps     []Step        `json:"steps"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at,omitempty"`
}

// New builds a pending workflow with one step per strategy agent, in order.
func New(queryID string, s strategy.Strategy) *Workflow {
	wf := &Workflow{
		ID:       uuid.NewString(),
		QueryID:  queryID,
		Strategy: s.Name,
		Parallel: s.Parallel,
		Status:   StatusPending,
		Steps:    make([]Step, len(s.Agents)),
	}
	for i, tag := range s.Agents {
		wf.Steps[i] = Step{Index: i, Agent: tag, Status: StepStatusPending}
	}
	return wf
}

// Started reports the count of steps that left the pending state by running.
func Started(steps []Step) int {
	n := 0
	for i := range steps {
		if !steps[i].StartedAt.IsZero() {
			n++
		}
	}
	return n
}

// CountStatus returns the number of steps in the given status.
func CountStatus(steps []Step, status StepStatus) int {
	n := 0
	for i := range steps {
		if steps[i].Status == status {
			n++
		}
	}
	return n
}

// FirstFailed returns the first failed step, or nil.
func FirstFailed(steps []Step) *Step {
	for i := range steps {
		if steps[i].Status == StepStatusFailed {
			return &steps[i]
		}
	}
	return nil
}

// AllTerminal returns true if every step is in a final state.
func AllTerminal(steps []Step) bool {
	for i := range steps {
		if !steps[i].Status.IsTerminal() {
			return false
		}
	}
	return true
}
