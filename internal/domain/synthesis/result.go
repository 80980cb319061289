package synthesis

import (
	"time"

	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
	"github.com/Strob0t/RegAdvisor/internal/domain/confidence"
	"github.com/Strob0t/RegAdvisor/internal/domain/strategy"
	"github.com/Strob0t/RegAdvisor/internal/domain/workflow"
)

// AggregateMetrics summarizes the individual responses against the merged one.
type AggregateMetrics struct {
	AgentConfidences map[advisory.AgentTag]float64 `json:"agent_confidences"`
	MeanConfidence   float64                       `json:"mean_confidence"`
	FinalConfidence  float64                       `json:"final_confidence"`
	Variance         float64                       `json:"variance"`
	EvidenceCount    int                           `json:"evidence_count"`
	SuggestionCount  int                           `json:"suggestion_count"`
	AgentCount       int                           `json:"agent_count"`
}

// Aggregate computes per-agent confidences, their mean and population variance,
// and the merged response's own confidence and item counts.
func Aggregate(merged *advisory.Response, rs Responses) AggregateMetrics {
	m := AggregateMetrics{
		AgentConfidences: make(map[advisory.AgentTag]float64, len(rs)),
		FinalConfidence:  merged.Confidence,
		EvidenceCount:    len(merged.Evidence),
		SuggestionCount:  len(merged.FollowUps),
	}
	confs := make([]float64, 0, len(rs))
	for tag, r := range rs {
		if r == nil {
			continue
		}
		m.AgentConfidences[tag] = r.Confidence
		confs = append(confs, r.Confidence)
	}
	m.AgentCount = len(confs)
	m.MeanConfidence = confidence.Mean(confs)
	m.Variance = confidence.Variance(confs)
	return m
}

// Result is the final output of one query.
type Result struct {
	Response       *advisory.Response `json:"response"`
	AgentResponses Responses          `json:"agent_responses"`
	Metrics        AggregateMetrics   `json:"metrics"`
	Confidence     confidence.Metrics `json:"confidence"`
	Method         strategy.Method    `json:"method"`
	Strategy       strategy.Name      `json:"strategy"`
	Workflow       *workflow.Workflow `json:"workflow"`
	ProcessingTime time.Duration      `json:"processing_time"`
	QualityScore   float64            `json:"quality_score"`
}
