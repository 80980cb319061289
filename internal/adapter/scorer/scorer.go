// Package scorer implements the confidence-scorer agent. It explains the
// eight-factor confidence methodology and, when evidence is available,
// applies it to the retrieved material.
package scorer

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
	"github.com/Strob0t/RegAdvisor/internal/domain/confidence"
	"github.com/Strob0t/RegAdvisor/internal/port/agent"
	"github.com/Strob0t/RegAdvisor/internal/port/evidence"
)

//go:embed methodology.yaml
var methodologyYAML []byte

// MethodologyConfidence is the scorer's confidence in its own methodology.
// It does not vary with the domain content being scored.
const MethodologyConfidence = 0.95

// Frameworks the methodology applies to.
var Frameworks = []string{"AML", "KYC", "CDD", "BSA", "FATF", "AMLD", "MLR", "SANCTIONS", "OFAC", "GDPR", "MIFID", "BASEL"}

// Intent is the confidence-scoring intent of a query.
type Intent string

const (
	IntentMethodology    Intent = "methodology"
	IntentEvidenceReview Intent = "evidence_review"
	IntentThreshold      Intent = "threshold"
	IntentAssessment     Intent = "assessment"
)

type factorDoc struct {
	Name        string `yaml:"name"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
}

type intentRule struct {
	Name     Intent   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type provenance struct {
	ID           string              `yaml:"id"`
	Type         advisory.SourceType `yaml:"type"`
	Jurisdiction string              `yaml:"jurisdiction"`
	Citation     string              `yaml:"citation"`
	Trust        float64             `yaml:"trust"`
	Published    time.Time           `yaml:"published"`
	Snippet      string              `yaml:"snippet"`
}

// Methodology is the parsed reference document.
type Methodology struct {
	Reliability map[advisory.SourceType]float64 `yaml:"reliability"`
	Factors     []factorDoc                     `yaml:"factors"`
	Levels      map[confidence.Level]string     `yaml:"levels"`
	Intents     []intentRule                    `yaml:"intents"`
	Provenance  []provenance                    `yaml:"provenance"`
}

// ParseMethodology decodes a methodology document and checks it documents
// every factor the calculator computes.
func ParseMethodology(data []byte) (*Methodology, error) {
	var m Methodology
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse methodology: %w", err)
	}
	documented := make(map[string]bool, len(m.Factors))
	for _, f := range m.Factors {
		documented[f.Name] = true
	}
	var errs []error
	for _, name := range confidence.FactorNames {
		if !documented[name] {
			errs = append(errs, fmt.Errorf("factor %s is undocumented", name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("methodology: %w", err)
	}
	return &m, nil
}

func (m *Methodology) intent(q string) Intent {
	for _, r := range m.Intents {
		if advisory.ContainsAny(q, r.Keywords...) {
			return r.Name
		}
	}
	return IntentAssessment
}

// Agent is the confidence-scorer agent.
type Agent struct {
	*agent.Base
	limits agent.Limits
	data   []byte
	method *Methodology
	calc   *confidence.Calculator
	now    func() time.Time
}

// New creates a confidence scorer. source may be nil.
func New(source evidence.Source, limits agent.Limits) *Agent {
	caps := agent.Capabilities{
		Jurisdictions:   []string{agent.GlobalJurisdiction},
		Frameworks:      Frameworks,
		MaxQueryLength:  limits.MaxQueryLength,
		ResponseTimeout: limits.ResponseTimeout,
	}
	return &Agent{
		Base:   agent.NewBase(advisory.AgentConfidenceScorer, caps, source),
		limits: limits,
		data:   methodologyYAML,
		now:    time.Now,
	}
}

// WithClock sets the time source used for temporal relevance.
func (a *Agent) WithClock(now func() time.Time) *Agent {
	a.now = now
	return a
}

// Initialize loads the methodology and builds the calculator.
func (a *Agent) Initialize(context.Context) error {
	m, err := ParseMethodology(a.data)
	if err != nil {
		return fmt.Errorf("confidence scorer: %w", err)
	}
	a.method = m
	a.calc = confidence.NewCalculator().WithReliability(m.Reliability).WithClock(a.now)
	a.MarkReady()
	return nil
}

// ProcessQuery explains the methodology and scores any retrieved evidence.
func (a *Agent) ProcessQuery(ctx context.Context, c *advisory.Context) (*advisory.Response, error) {
	if err := a.CheckReady(); err != nil {
		return nil, err
	}

	intent := a.method.intent(c.NormalizedQuery())

	var retrievalErr error
	res, err := a.Retrieve(ctx, c, c.Query, a.limits.MaxSnippets)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		retrievalErr = err
		slog.WarnContext(ctx, "evidence retrieval degraded", "agent", a.Tag(), "error", err)
		res = &evidence.Result{}
	}

	retrieved := evidence.ToEvidence(res.Snippets, 0.7, c.Jurisdiction)
	var assessed *confidence.Metrics
	if len(retrieved) > 0 {
		probe := advisory.NewResponse(a.Tag(), res.Text, "retrieved material", 0)
		probe.Evidence = retrieved
		m := a.calc.Score(probe, c)
		assessed = &m
	}

	resp := advisory.NewResponse(a.Tag(), a.content(c, intent, assessed), a.reasoning(intent, assessed, len(retrieved)), MethodologyConfidence)
	resp.Evidence = append(a.provenanceEvidence(), retrieved...)
	resp.Assumptions = []string{
		"Trust scores supplied with each source reflect its provenance.",
		"Factor weights are fixed and identical for every query.",
	}
	resp.Limitations = []string{"Confidence measures evidential support, not the legal correctness of an answer."}
	if assessed != nil {
		resp.Limitations = append(resp.Limitations, assessed.Limitations...)
	}
	if retrievalErr != nil {
		resp.Limitations = append(resp.Limitations, "External evidence retrieval was unavailable; no material was scored.")
	}
	resp.FollowUps = a.followUps(assessed)
	return resp, nil
}

func (a *Agent) content(c *advisory.Context, intent Intent, assessed *confidence.Metrics) string {
	var b strings.Builder
	b.WriteString("# Confidence Methodology\n\n")
	b.WriteString("Each answer is scored on eight independent factors in [0,1], combined with fixed weights.\n")

	w := a.calc.Weights()
	weights := confidence.Factors(w).Breakdown()
	b.WriteString("\n## Factors\n\n")
	for _, f := range a.method.Factors {
		fmt.Fprintf(&b, "- %s (%.0f%%): %s\n", f.Label, 100*weights[f.Name], f.Description)
	}

	if intent == IntentThreshold || intent == IntentMethodology {
		b.WriteString("\n## Levels\n\n")
		for _, lv := range []confidence.Level{confidence.LevelHigh, confidence.LevelMedium, confidence.LevelLow, confidence.LevelVeryLow} {
			fmt.Fprintf(&b, "- %s: %s\n", lv, a.method.Levels[lv])
		}
	}

	if assessed != nil {
		fmt.Fprintf(&b, "\n## Evidence Assessment (%s)\n\n", c.Jurisdiction)
		fmt.Fprintf(&b, "Overall %.2f (%s).\n", assessed.Overall, assessed.Level)
		for _, name := range confidence.FactorNames {
			fmt.Fprintf(&b, "- %s: %.2f\n", name, assessed.Breakdown[name])
		}
	} else if intent == IntentEvidenceReview {
		b.WriteString("\nNo evidence was available to assess for this query.\n")
	}
	return b.String()
}

func (a *Agent) reasoning(intent Intent, assessed *confidence.Metrics, n int) string {
	if assessed == nil {
		return fmt.Sprintf("Intent %s; explained the fixed-weight methodology; no retrieved evidence to score.", intent)
	}
	return fmt.Sprintf("Intent %s; scored %d retrieved items, overall %.2f (%s).", intent, n, assessed.Overall, assessed.Level)
}

func (a *Agent) provenanceEvidence() []advisory.Evidence {
	ev := make([]advisory.Evidence, 0, len(a.method.Provenance))
	for _, p := range a.method.Provenance {
		ev = append(ev, advisory.NewEvidence(p.ID, p.Type, p.Jurisdiction, p.Snippet, p.Citation, p.Trust, 0.8, p.Published))
	}
	return ev
}

func (a *Agent) followUps(assessed *confidence.Metrics) []advisory.FollowUpSuggestion {
	if assessed == nil {
		return []advisory.FollowUpSuggestion{{
			Text:            "Provide the source documents behind the answer so they can be scored.",
			Type:            advisory.SuggestionClarification,
			Confidence:      0.8,
			Priority:        advisory.PriorityMedium,
			EstimatedEffort: "15 minutes",
		}}
	}
	fs := make([]advisory.FollowUpSuggestion, 0, len(assessed.Recommendations)+1)
	for _, r := range assessed.Recommendations {
		fs = append(fs, advisory.FollowUpSuggestion{
			Text:            r,
			Type:            advisory.SuggestionAnalysis,
			Confidence:      0.7,
			Priority:        advisory.PriorityMedium,
			EstimatedEffort: "1-2 hours",
		})
	}
	if assessed.Overall < 0.7 {
		fs = append(fs, advisory.FollowUpSuggestion{
			Text:            "Request specialist review before relying on this answer.",
			Type:            advisory.SuggestionEscalation,
			Confidence:      0.85,
			Priority:        advisory.PriorityHigh,
			EstimatedEffort: "1 day",
		})
	}
	advisory.RankFollowUps(fs)
	return fs
}

var _ agent.Agent = (*Agent)(nil)
