// Package regparser implements the regulatory-parser agent: it extracts the
// requirements that apply to a query from an embedded rule catalog and
// enriches them with retrieved evidence.
package regparser

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
	"github.com/Strob0t/RegAdvisor/internal/port/agent"
	"github.com/Strob0t/RegAdvisor/internal/port/evidence"
)

const maxRules = 8

// Jurisdictions with catalogued local rules.
var Jurisdictions = []string{"US", "EU", "UK", "SG"}

// Frameworks the catalog can speak to.
var Frameworks = []string{"AML", "KYC", "CDD", "BSA", "FATF", "AMLD", "MLR", "SANCTIONS", "OFAC", "GDPR", "MIFID"}

// Intent is the kind of regulatory question being asked.
type Intent string

const (
	IntentRequirements  Intent = "requirements"
	IntentApplicability Intent = "applicability"
	IntentComparison    Intent = "comparison"
	IntentOverview      Intent = "overview"
)

func classifyIntent(q string) Intent {
	switch {
	case advisory.ContainsAny(q, "compare", "difference", " vs ", "versus"):
		return IntentComparison
	case advisory.ContainsAny(q, "requirement", "obligation", "must", "required", "need to"):
		return IntentRequirements
	case advisory.ContainsAny(q, "apply", "applicable", "in scope", "does the"):
		return IntentApplicability
	}
	return IntentOverview
}

// analysis is the parser's reading of one context.
type analysis struct {
	intent    Intent
	topics    []string
	local     []Rule
	global    []Rule
	coverage  float64
	matchedOn map[string]bool
}

// Agent is the regulatory-parser agent.
type Agent struct {
	*agent.Base
	limits  agent.Limits
	catalog *Catalog
	data    []byte
}

// New creates a regulatory parser. source may be nil.
func New(source evidence.Source, limits agent.Limits) *Agent {
	caps := agent.Capabilities{
		Jurisdictions:   Jurisdictions,
		Frameworks:      Frameworks,
		MaxQueryLength:  limits.MaxQueryLength,
		ResponseTimeout: limits.ResponseTimeout,
	}
	return &Agent{
		Base:   agent.NewBase(advisory.AgentRegulatoryParser, caps, source),
		limits: limits,
		data:   rulesYAML,
	}
}

// WithCatalog replaces the embedded rule catalog document. Used by tests.
func (a *Agent) WithCatalog(data []byte) *Agent {
	a.data = data
	return a
}

// Initialize loads the rule catalog.
func (a *Agent) Initialize(context.Context) error {
	c, err := ParseCatalog(a.data)
	if err != nil {
		return fmt.Errorf("regulatory parser: %w", err)
	}
	a.catalog = c
	a.MarkReady()
	return nil
}

// ProcessQuery extracts applicable requirements for c.
func (a *Agent) ProcessQuery(ctx context.Context, c *advisory.Context) (*advisory.Response, error) {
	if err := a.CheckReady(); err != nil {
		return nil, err
	}

	an := a.analyze(c)

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

	resp := advisory.NewResponse(a.Tag(), a.content(c, an, res), a.reasoning(c, an, res), a.confidence(c, an))
	resp.Evidence = a.evidence(c, an, res)
	resp.Assumptions = []string{
		"Catalogued requirements are current as of their stated effective dates.",
		fmt.Sprintf("The activity described falls within the regulated perimeter of %s.", c.Jurisdiction),
	}
	resp.Limitations = a.limitations(c, an, retrievalErr)
	resp.FollowUps = a.followUps(c, an)
	return resp, nil
}

func (a *Agent) analyze(c *advisory.Context) analysis {
	q := c.NormalizedQuery()
	an := analysis{
		intent:    classifyIntent(q),
		topics:    a.catalog.detectTopics(q),
		matchedOn: make(map[string]bool),
	}

	for i := range a.catalog.Rules {
		r := a.catalog.Rules[i]
		if !r.Global() && !strings.EqualFold(r.Jurisdiction, c.Jurisdiction) {
			continue
		}
		if !slices.ContainsFunc(c.Frameworks, r.coversFramework) {
			continue
		}
		if len(an.topics) > 0 && !r.hasTopic(an.topics) {
			continue
		}
		if r.Global() {
			an.global = append(an.global, r)
		} else {
			an.local = append(an.local, r)
		}
		for _, f := range c.Frameworks {
			if r.coversFramework(f) {
				an.matchedOn[strings.ToUpper(f)] = true
			}
		}
	}

	byTrust := func(x, y Rule) int {
		switch {
		case x.Trust > y.Trust:
			return -1
		case x.Trust < y.Trust:
			return 1
		}
		return strings.Compare(x.ID, y.ID)
	}
	slices.SortStableFunc(an.local, byTrust)
	slices.SortStableFunc(an.global, byTrust)
	if len(an.local) > maxRules {
		an.local = an.local[:maxRules]
	}
	if room := maxRules - len(an.local); len(an.global) > room {
		an.global = an.global[:room]
	}

	if len(c.Frameworks) > 0 {
		an.coverage = float64(len(an.matchedOn)) / float64(len(c.Frameworks))
	}
	return an
}

func (a *Agent) topicLabels(an analysis) []string {
	labels := make([]string, 0, len(an.topics))
	for _, t := range an.topics {
		labels = append(labels, a.catalog.label(t))
	}
	return labels
}

func (a *Agent) content(c *advisory.Context, an analysis, res *evidence.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Regulatory Analysis: %s\n\n", c.Jurisdiction)

	scope := "general obligations"
	if len(an.topics) > 0 {
		scope = strings.Join(a.topicLabels(an), ", ")
	}
	fmt.Fprintf(&b, "Scope: %s under %s (%s).\n", scope, strings.Join(c.Frameworks, ", "), an.intent)

	writeRules := func(title string, rules []Rule) {
		if len(rules) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n## %s\n\n", title)
		for i := range rules {
			fmt.Fprintf(&b, "%d. %s (%s)\n   %s\n", i+1, rules[i].Title, rules[i].Citation, rules[i].Obligation)
		}
	}
	writeRules("Applicable Requirements", an.local)
	writeRules("International Standards", an.global)

	if len(an.local)+len(an.global) == 0 {
		b.WriteString("\nNo catalogued requirement matched this query for the frameworks in scope. ")
		b.WriteString("Primary legislation of the jurisdiction should be consulted directly.\n")
	}

	if text := strings.TrimSpace(res.Text); text != "" {
		fmt.Fprintf(&b, "\n## Retrieved Guidance\n\n%s\n", text)
	}
	return b.String()
}

func (a *Agent) reasoning(c *advisory.Context, an analysis, res *evidence.Result) string {
	topics := "no specific topic"
	if len(an.topics) > 0 {
		topics = strings.Join(an.topics, ", ")
	}
	return fmt.Sprintf("Detected %s from query keywords; matched %d local and %d international rules for %s; %d retrieved snippets.",
		topics, len(an.local), len(an.global), strings.Join(c.Frameworks, "/"), len(res.Snippets))
}

// confidence weights local rule depth, framework coverage and topic certainty.
func (a *Agent) confidence(c *advisory.Context, an analysis) float64 {
	if len(an.local)+len(an.global) == 0 {
		return 0.35
	}
	depth := min(1, float64(len(an.local))/3)
	topic := 0.0
	if len(an.topics) > 0 {
		topic = 1
	}
	coverage := an.coverage
	if len(c.Frameworks) == 0 {
		coverage = 0.5
	}
	return 0.5 + 0.25*depth + 0.15*coverage + 0.10*topic
}

func (a *Agent) evidence(c *advisory.Context, an analysis, res *evidence.Result) []advisory.Evidence {
	ev := make([]advisory.Evidence, 0, len(an.local)+len(an.global)+len(res.Snippets))
	relevance := 0.7
	if len(an.topics) > 0 {
		relevance = 0.9
	}
	for _, rules := range [][]Rule{an.local, an.global} {
		for i := range rules {
			r := &rules[i]
			ev = append(ev, advisory.NewEvidence(r.ID, r.SourceType, r.Jurisdiction, r.Obligation, r.Citation, r.Trust, relevance, r.Effective))
		}
	}
	return append(ev, evidence.ToEvidence(res.Snippets, 0.6, c.Jurisdiction)...)
}

func (a *Agent) limitations(c *advisory.Context, an analysis, retrievalErr error) []string {
	out := []string{"This analysis summarizes requirements and does not constitute legal advice."}
	if len(an.local) == 0 {
		out = append(out, fmt.Sprintf("No local implementing rules are catalogued for %s; only international standards were considered.", c.Jurisdiction))
	}
	for _, f := range c.Frameworks {
		if !an.matchedOn[strings.ToUpper(f)] {
			out = append(out, fmt.Sprintf("Framework %s has no catalogued requirement for this query.", f))
		}
	}
	if retrievalErr != nil {
		out = append(out, "External evidence retrieval was unavailable; only catalogued rules were used.")
	}
	return out
}

func (a *Agent) followUps(c *advisory.Context, an analysis) []advisory.FollowUpSuggestion {
	var fs []advisory.FollowUpSuggestion
	if len(an.topics) == 0 {
		fs = append(fs, advisory.FollowUpSuggestion{
			Text:            "Clarify the obligation area (for example due diligence, monitoring or sanctions) to narrow the applicable rules.",
			Type:            advisory.SuggestionClarification,
			Confidence:      0.8,
			Priority:        advisory.PriorityMedium,
			EstimatedEffort: "5 minutes",
		})
	}
	if len(an.local)+len(an.global) > 0 {
		fs = append(fs, advisory.FollowUpSuggestion{
			Text:            "Map each requirement to the internal control and owner responsible for it.",
			Type:            advisory.SuggestionAnalysis,
			Confidence:      0.75,
			Priority:        advisory.PriorityHigh,
			EstimatedEffort: "2-3 days",
		})
	}
	if slices.Contains(an.topics, "enhanced_due_diligence") {
		fs = append(fs, advisory.FollowUpSuggestion{
			Text:            "Confirm senior management approval is documented for enhanced due diligence cases.",
			Type:            advisory.SuggestionWorkflow,
			Confidence:      0.85,
			Priority:        advisory.PriorityHigh,
			EstimatedEffort: "1 day",
		})
	}
	fs = append(fs, advisory.FollowUpSuggestion{
		Text:            fmt.Sprintf("Schedule a regulatory change review for %s in %s.", strings.Join(c.Frameworks, ", "), c.Jurisdiction),
		Type:            advisory.SuggestionWorkflow,
		Confidence:      0.6,
		Priority:        advisory.PriorityLow,
		EstimatedEffort: "1 day",
	})
	advisory.RankFollowUps(fs)
	return fs
}

var _ agent.Agent = (*Agent)(nil)
