package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/RegAdvisor/internal/domain/strategy"
)

func TestNewBuildsPendingSteps(t *testing.T) {
	s, _ := strategy.Get(strategy.NameStandardAdvisory)
	wf := New("q-1", s)

	if wf.ID == "" {
		t.Fatal("expected workflow id")
	}
	if len(wf.Steps) != len(s.Agents) {
		t.Fatalf("expected %d steps, got %d", len(s.Agents), len(wf.Steps))
	}
	for i, st := range wf.Steps {
		if st.Status != StepStatusPending {
			t.Errorf("step %d: expected pending, got %s", i, st.Status)
		}
		if st.Agent != s.Agents[i] {
			t.Errorf("step %d: expected agent %s, got %s", i, s.Agents[i], st.Agent)
		}
	}
}

func TestStepTransitions(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var st Step

	st.Start(start)
	if st.Status != StepStatusRunning || !st.StartedAt.Equal(start) {
		t.Fatalf("unexpected running state: %+v", st)
	}
	st.Fail(start.Add(2*time.Second), errors.New("boom"))
	if st.Status != StepStatusFailed || st.Error != "boom" {
		t.Fatalf("unexpected failed state: %+v", st)
	}
	if st.Duration() != 2*time.Second {
		t.Fatalf("expected 2s duration, got %v", st.Duration())
	}
}

func TestHelpers(t *testing.T) {
	now := time.Now()
	steps := []Step{
		{Status: StepStatusCompleted, StartedAt: now},
		{Status: StepStatusFailed, StartedAt: now, Error: "x"},
		{Status: StepStatusPending},
	}
	if AllTerminal(steps) {
		t.Fatal("pending step is not terminal")
	}
	if Started(steps) != 2 {
		t.Fatalf("expected 2 started, got %d", Started(steps))
	}
	if FirstFailed(steps) != &steps[1] {
		t.Fatal("expected second step as first failure")
	}
	steps[2].Skip(now, "rejected")
	if !AllTerminal(steps) {
		t.Fatal("expected all terminal after skip")
	}
	if CountStatus(steps, StepStatusSkipped) != 1 {
		t.Fatal("expected one skipped step")
	}
}
