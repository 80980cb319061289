package http

import (
	"cmp"
	"context"
	"net/http"
	"slices"

	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
	"github.com/Strob0t/RegAdvisor/internal/domain/strategy"
	"github.com/Strob0t/RegAdvisor/internal/service"
)

// Version is reported at /api/v1/.
const Version = "0.1.0"

// Monitor is the read-only view of the orchestrator served over HTTP.
type Monitor interface {
	AgentHealth(ctx context.Context) map[advisory.AgentTag]bool
	PerformanceMetrics() map[strategy.Name]service.PerformanceStats
	Strategies() []strategy.Strategy
}

// Handlers holds the HTTP handlers.
type Handlers struct {
	Monitor Monitor
}

type agentHealth struct {
	Agent   advisory.AgentTag `json:"agent"`
	Healthy bool              `json:"healthy"`
}

type healthResponse struct {
	Status string        `json:"status"`
	Agents []agentHealth `json:"agents"`
}

// Health reports 200 when every agent is healthy and 503 otherwise.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	detail := h.Monitor.AgentHealth(r.Context())

	resp := healthResponse{Status: "ok", Agents: make([]agentHealth, 0, len(detail))}
	for tag, ok := range detail {
		resp.Agents = append(resp.Agents, agentHealth{Agent: tag, Healthy: ok})
		if !ok {
			resp.Status = "degraded"
		}
	}
	slices.SortFunc(resp.Agents, func(a, b agentHealth) int { return cmp.Compare(a.Agent, b.Agent) })

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

type performanceEntry struct {
	Strategy  strategy.Name `json:"strategy"`
	AverageMS float64       `json:"average_ms"`
	MinMS     float64       `json:"min_ms"`
	MaxMS     float64       `json:"max_ms"`
	Count     int           `json:"count"`
}

// Performance lists processing-time statistics per strategy, in builtin order.
func (h *Handlers) Performance(w http.ResponseWriter, _ *http.Request) {
	stats := h.Monitor.PerformanceMetrics()
	out := make([]performanceEntry, 0, len(stats))
	for _, s := range h.Monitor.Strategies() {
		st, ok := stats[s.Name]
		if !ok {
			continue
		}
		out = append(out, performanceEntry{
			Strategy:  s.Name,
			AverageMS: float64(st.Average.Microseconds()) / 1000,
			MinMS:     float64(st.Min.Microseconds()) / 1000,
			MaxMS:     float64(st.Max.Microseconds()) / 1000,
			Count:     st.Count,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ListStrategies returns the builtin strategies.
func (h *Handlers) ListStrategies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Monitor.Strategies())
}

// GetStrategy returns one builtin strategy by name.
func (h *Handlers) GetStrategy(w http.ResponseWriter, r *http.Request) {
	name := strategy.Name(urlParam(r, "name"))
	for _, s := range h.Monitor.Strategies() {
		if s.Name == name {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeError(w, http.StatusNotFound, "strategy not found")
}
