package advisory

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AgentTag identifies which agent produced a response.
type AgentTag string

const (
	AgentRegulatoryParser  AgentTag = "regulatory_parser"
	AgentAdvisoryGenerator AgentTag = "advisory_generator"
	AgentConfidenceScorer  AgentTag = "confidence_scorer"

	// AgentOrchestrator tags merged responses produced by synthesis.
	AgentOrchestrator AgentTag = "orchestrator"
)

// SourceType classifies where a piece of evidence comes from.
type SourceType string

const (
	SourceRegulation       SourceType = "regulation"
	SourceGuidance         SourceType = "guidance"
	SourceCaseLaw          SourceType = "case_law"
	SourceIndustryStandard SourceType = "industry_standard"
	SourceInternalPolicy   SourceType = "internal_policy"
)

// SuggestionType classifies a follow-up suggestion.
type SuggestionType string

const (
	SuggestionClarification  SuggestionType = "clarification"
	SuggestionWorkflow       SuggestionType = "workflow"
	SuggestionAnalysis       SuggestionType = "analysis"
	SuggestionRecommendation SuggestionType = "recommendation"
	SuggestionEscalation     SuggestionType = "escalation"
)

// Priority ranks recommendations and follow-ups.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank orders priorities, higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Evidence is one cited supporting fact. It belongs to exactly one response.
type Evidence struct {
	ID             string     `json:"id"`
	SourceID       string     `json:"source_id"`
	SourceType     SourceType `json:"source_type"`
	Jurisdiction   string     `json:"jurisdiction"`
	Snippet        string     `json:"snippet"`
	Citation       string     `json:"citation"`
	TrustScore     float64    `json:"trust_score"`
	RelevanceScore float64    `json:"relevance_score"`
	PublishedAt    time.Time  `json:"published_at"`
	RetrievedAt    time.Time  `json:"retrieved_at"`
}

// NewEvidence builds an Evidence entry with a fresh id and clamped scores.
func NewEvidence(sourceID string, st SourceType, jurisdiction, snippet, citation string, trust, relevance float64, published time.Time) Evidence {
	return Evidence{
		ID:             uuid.NewString(),
		SourceID:       sourceID,
		SourceType:     st,
		Jurisdiction:   jurisdiction,
		Snippet:        snippet,
		Citation:       citation,
		TrustScore:     Clamp(trust),
		RelevanceScore: Clamp(relevance),
		PublishedAt:    published,
		RetrievedAt:    time.Now().UTC(),
	}
}

// ReferenceTime is the timestamp used to judge the evidence's age.
func (e *Evidence) ReferenceTime() time.Time {
	if !e.PublishedAt.IsZero() {
		return e.PublishedAt
	}
	return e.RetrievedAt
}

// FollowUpSuggestion is a proposed next action for the requester.
type FollowUpSuggestion struct {
	Text            string         `json:"text"`
	Type            SuggestionType `json:"type"`
	Confidence      float64        `json:"confidence"`
	Priority        Priority       `json:"priority"`
	EstimatedEffort string         `json:"estimated_effort"`
}

// Response is the unit exchanged between every agent and the orchestrator.
type Response struct {
	ID             string               `json:"id"`
	Agent          AgentTag             `json:"agent"`
	Content        string               `json:"content"`
	Confidence     float64              `json:"confidence"`
	Reasoning      string               `json:"reasoning"`
	Evidence       []Evidence           `json:"evidence"`
	Assumptions    []string             `json:"assumptions"`
	Limitations    []string             `json:"limitations"`
	FollowUps      []FollowUpSuggestion `json:"follow_ups"`
	ProcessingTime time.Duration        `json:"processing_time"`
	Timestamp      time.Time            `json:"timestamp"`
}

// NewResponse creates a response with a fresh id, timestamp and clamped confidence.
func NewResponse(agent AgentTag, content, reasoning string, confidence float64) *Response {
	return &Response{
		ID:         uuid.NewString(),
		Agent:      agent,
		Content:    content,
		Confidence: Clamp(confidence),
		Reasoning:  reasoning,
		Timestamp:  time.Now().UTC(),
	}
}

// Validate rejects responses missing a mandatory field. Confidence must be a
// number; out-of-range values are clamped rather than rejected.
func (r *Response) Validate() error {
	var errs []error
	if r.Agent == "" {
		errs = append(errs, errors.New("agent is required"))
	}
	if strings.TrimSpace(r.Content) == "" {
		errs = append(errs, errors.New("content is required"))
	}
	if strings.TrimSpace(r.Reasoning) == "" {
		errs = append(errs, errors.New("reasoning is required"))
	}
	if math.IsNaN(r.Confidence) {
		errs = append(errs, errors.New("confidence is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("response from %q: %w", r.Agent, errors.Join(errs...))
	}
	r.Confidence = Clamp(r.Confidence)
	return nil
}

// Clamp bounds v to [0,1]. NaN maps to 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// RankFollowUps orders suggestions by priority, then confidence, both descending.
// The sort is stable so equal suggestions keep their authored order.
func RankFollowUps(fs []FollowUpSuggestion) {
	slices.SortStableFunc(fs, func(a, b FollowUpSuggestion) int {
		if c := cmp.Compare(b.Priority.Rank(), a.Priority.Rank()); c != 0 {
			return c
		}
		return cmp.Compare(b.Confidence, a.Confidence)
	})
}
