package litellm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/RegAdvisor/internal/adapter/litellm"
	"github.com/Strob0t/RegAdvisor/internal/port/evidence"
	"github.com/Strob0t/RegAdvisor/internal/resilience"
)

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Fatalf("unexpected auth: %q", auth)
		}

		var req litellm.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if req.Model != "test-model" {
			t.Fatalf("unexpected model: %s", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Fatalf("unexpected messages: %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
}

func TestRetrieveParsesSnippets(t *testing.T) {
	content := `{"text":"CDD applies","snippets":[
		{"source_id":"fatf-r10","source_type":"guidance","jurisdiction":"GLOBAL","text":"Customer due diligence","citation":"FATF R.10","trust":0.9,"published_at":"2024-03-01"},
		{"source_id":"empty","text":""},
		{"source_id":"amld5","source_type":"regulation","jurisdiction":"EU","text":"Enhanced measures","citation":"AMLD5 Art. 18","trust":0.95,"published_at":"2023-01-10T00:00:00Z"}
	]}`
	srv := completionServer(t, content)
	defer srv.Close()

	src := litellm.NewSource(litellm.NewClient(srv.URL, "test-key", time.Second), "test-model")
	res, err := src.Retrieve(context.Background(), evidence.Request{Query: "KYC?", Jurisdiction: "EU", Purpose: "regulatory_parser"})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if res.Text != "CDD applies" {
		t.Errorf("unexpected text %q", res.Text)
	}
	if len(res.Snippets) != 2 {
		t.Fatalf("expected 2 non-empty snippets, got %d", len(res.Snippets))
	}
	if res.Snippets[0].PublishedAt.Year() != 2024 {
		t.Errorf("expected date-only timestamp parsed, got %v", res.Snippets[0].PublishedAt)
	}
	if res.Snippets[1].Citation != "AMLD5 Art. 18" {
		t.Errorf("unexpected citation %q", res.Snippets[1].Citation)
	}
}

func TestRetrieveRespectsMaxSnippets(t *testing.T) {
	content := `{"snippets":[{"text":"a"},{"text":"b"},{"text":"c"}]}`
	srv := completionServer(t, content)
	defer srv.Close()

	src := litellm.NewSource(litellm.NewClient(srv.URL, "test-key", time.Second), "test-model")
	res, err := src.Retrieve(context.Background(), evidence.Request{Query: "q", MaxSnippets: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Snippets) != 2 {
		t.Errorf("expected 2 snippets, got %d", len(res.Snippets))
	}
}

func TestRetrievePlainTextFallback(t *testing.T) {
	srv := completionServer(t, "Plain answer without JSON")
	defer srv.Close()

	src := litellm.NewSource(litellm.NewClient(srv.URL, "test-key", time.Second), "test-model")
	res, err := src.Retrieve(context.Background(), evidence.Request{Query: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "Plain answer without JSON" || len(res.Snippets) != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := litellm.NewClient(srv.URL, "", time.Second)
	_, err := c.Complete(context.Background(), litellm.ChatRequest{Model: "m"})
	if !errors.Is(err, litellm.ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestAPIErrorTripsBreaker(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	c := litellm.NewClient(srv.URL, "", time.Second)
	c.SetBreaker(resilience.NewBreaker(2, time.Minute))

	for range 2 {
		_, err := c.Complete(context.Background(), litellm.ChatRequest{Model: "m"})
		if err == nil || !strings.Contains(err.Error(), "502") {
			t.Fatalf("expected 502 error, got %v", err)
		}
	}

	_, err := c.Complete(context.Background(), litellm.ChatRequest{Model: "m"})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if calls != 2 {
		t.Errorf("open breaker should not reach server, got %d calls", calls)
	}

	healthy, err := c.Health(context.Background())
	if healthy || !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("expected unhealthy with open circuit, got %v %v", healthy, err)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health/liveliness" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	src := litellm.NewSource(litellm.NewClient(srv.URL, "", time.Second), "m")
	healthy, err := src.Health(context.Background())
	if err != nil || !healthy {
		t.Fatalf("expected healthy, got %v %v", healthy, err)
	}
}
