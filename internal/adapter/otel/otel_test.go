package otel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Strob0t/RegAdvisor/internal/config"
)

func collect(t *testing.T, r *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := r.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	s, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected int64 sum, got %T", m.Name, m.Data)
	}
	var total int64
	for _, dp := range s.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsRecord(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	ctx := context.Background()
	m.RecordQuery(ctx, "standard_advisory", "hierarchical", 150*time.Millisecond, 0.8, 0.7)
	m.RecordQueryFailure(ctx, "standard_advisory", "agent_failure")
	m.RecordStep(ctx, "regulatory_parser", "completed")
	m.RecordStep(ctx, "advisory_generator", "failed")
	m.RecordStep(ctx, "confidence_scorer", "skipped")
	m.RecordStep(ctx, "confidence_scorer", "running")

	got := collect(t, reader)
	for name, want := range map[string]int64{
		"regadvisor.queries.processed": 1,
		"regadvisor.queries.failed":    1,
		"regadvisor.steps.completed":   1,
		"regadvisor.steps.failed":      1,
		"regadvisor.steps.skipped":     1,
	} {
		metric, ok := got[name]
		if !ok {
			t.Errorf("metric %s not recorded", name)
			continue
		}
		if v := sumOf(t, metric); v != want {
			t.Errorf("%s = %d, want %d", name, v, want)
		}
	}
	if _, ok := got["regadvisor.query.duration_seconds"]; !ok {
		t.Error("duration histogram not recorded")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordQuery(context.Background(), "s", "m", time.Second, 1, 1)
	m.RecordQueryFailure(context.Background(), "s", "r")
	m.RecordStep(context.Background(), "a", "failed")
}

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.OTel{})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown: %v", err)
	}
}

func TestSpansWithGlobalNoop(t *testing.T) {
	ctx, span := StartQuerySpan(context.Background(), "q-1", "high_confidence")
	_, step := StartStepSpan(ctx, "wf-1", "regulatory_parser", 0)
	FailSpan(step, errors.New("boom"))
	step.End()
	span.End()
}

func TestHTTPMiddlewarePassesThrough(t *testing.T) {
	h := HTTPMiddleware("test")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", rec.Code)
	}
}
