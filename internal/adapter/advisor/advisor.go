// Package advisor implements the advisory-generator agent: it rates the risk
// described by a query against an embedded risk model and produces ranked
// recommendations.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
	"github.com/Strob0t/RegAdvisor/internal/port/agent"
	"github.com/Strob0t/RegAdvisor/internal/port/cache"
	"github.com/Strob0t/RegAdvisor/internal/port/evidence"
)

// Frameworks the risk model is calibrated for.
var Frameworks = []string{"AML", "KYC", "CDD", "BSA", "FATF", "AMLD", "MLR", "SANCTIONS", "OFAC", "MIFID"}

// signal is one triggered indicator.
type signal struct {
	dimension string
	label     string
	weight    float64
}

// assessment is the generator's reading of one context.
type assessment struct {
	kind      AdvisoryType
	signals   []signal
	triggered []string // dimension names with at least one signal
	urgent    bool
	score     float64
	level     RiskLevel
}

// Agent is the advisory-generator agent.
type Agent struct {
	*agent.Base
	limits   agent.Limits
	model    *Model
	data     []byte
	cache    cache.Cache
	cacheTTL time.Duration
}

// New creates an advisory generator. source may be nil.
func New(source evidence.Source, limits agent.Limits) *Agent {
	caps := agent.Capabilities{
		Jurisdictions:   []string{agent.GlobalJurisdiction},
		Frameworks:      Frameworks,
		MaxQueryLength:  limits.MaxQueryLength,
		ResponseTimeout: limits.ResponseTimeout,
	}
	return &Agent{
		Base:   agent.NewBase(advisory.AgentAdvisoryGenerator, caps, source),
		limits: limits,
		data:   riskModelYAML,
	}
}

// SetCache attaches the recommendation cache.
func (a *Agent) SetCache(c cache.Cache, ttl time.Duration) {
	a.cache = c
	a.cacheTTL = ttl
}

// WithModel replaces the embedded risk model document. Used by tests.
func (a *Agent) WithModel(data []byte) *Agent {
	a.data = data
	return a
}

// Initialize loads the risk model.
func (a *Agent) Initialize(context.Context) error {
	m, err := ParseModel(a.data)
	if err != nil {
		return fmt.Errorf("advisory generator: %w", err)
	}
	a.model = m
	a.MarkReady()
	return nil
}

// ProcessQuery rates the risk in c and recommends actions.
func (a *Agent) ProcessQuery(ctx context.Context, c *advisory.Context) (*advisory.Response, error) {
	if err := a.CheckReady(); err != nil {
		return nil, err
	}

	as := a.assess(c)
	recs := a.recommendations(ctx, c, as.level)

	var retrievalErr error
	res, err := a.Retrieve(ctx, c, as.kind.Title+": "+c.Query, a.limits.MaxSnippets)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		retrievalErr = err
		slog.WarnContext(ctx, "evidence retrieval degraded", "agent", a.Tag(), "error", err)
		res = &evidence.Result{}
	}

	resp := advisory.NewResponse(a.Tag(), a.content(c, as, recs, res), a.reasoning(c, as, recs), a.confidence(as, recs))
	resp.Evidence = a.evidence(c, as, res)
	resp.Assumptions = []string{
		"Risk indicators were inferred from the query text; no customer file was reviewed.",
		fmt.Sprintf("Recommendations reflect a %s risk tolerance.", c.Tolerance()),
	}
	resp.Limitations = a.limitations(as, retrievalErr)
	resp.FollowUps = a.followUps(as, recs)
	return resp, nil
}

func (a *Agent) assess(c *advisory.Context) assessment {
	q := c.NormalizedQuery()
	as := assessment{kind: a.model.advisoryType(q)}

	for _, d := range a.model.Dimensions {
		seen := map[string]bool{}
		var best float64
		for _, ind := range d.Indicators {
			if !strings.Contains(q, strings.ToLower(ind.Keyword)) || seen[ind.Label] {
				continue
			}
			seen[ind.Label] = true
			as.signals = append(as.signals, signal{dimension: d.Name, label: ind.Label, weight: ind.Weight})
			best = max(best, ind.Weight)
			as.score += ind.Weight
		}
		if best > 0 {
			as.triggered = append(as.triggered, d.Name)
		}
	}

	if advisory.ContainsAny(q, a.model.Urgency.Keywords...) {
		as.urgent = true
		as.score += a.model.Urgency.Weight
	}
	as.score += a.model.ToleranceAdjustment[c.Tolerance()]
	as.score = advisory.Clamp(as.score)
	as.level = a.model.levelFor(as.score)
	return as
}

func cacheKey(c *advisory.Context, level RiskLevel) string {
	return fmt.Sprintf("advisor:rec:%s:%s:%s", strings.ToUpper(c.Jurisdiction), c.Tolerance(), level)
}

// recommendations returns the ranked list for (jurisdiction, tolerance, level),
// served from the cache when possible. Cache failures fall back to computing.
func (a *Agent) recommendations(ctx context.Context, c *advisory.Context, level RiskLevel) []Recommendation {
	key := cacheKey(c, level)
	if a.cache != nil {
		recs, ok, err := cache.GetJSON[[]Recommendation](ctx, a.cache, key)
		if err != nil {
			slog.WarnContext(ctx, "recommendation cache get failed", "key", key, "error", err)
		}
		if ok {
			return recs
		}
	}

	recs := a.buildRecommendations(c, level)

	if a.cache != nil {
		if err := cache.SetJSON(ctx, a.cache, key, recs, a.cacheTTL); err != nil {
			slog.WarnContext(ctx, "recommendation cache set failed", "key", key, "error", err)
		}
	}
	return recs
}

func (a *Agent) buildRecommendations(c *advisory.Context, level RiskLevel) []Recommendation {
	recs := slices.Clone(a.model.base(level))
	for j, extra := range a.model.Recommendations.Jurisdictions {
		if strings.EqualFold(j, c.Jurisdiction) && level != RiskLow {
			recs = append(recs, extra...)
		}
	}

	// high tolerance drops low-priority housekeeping, keeping at least one item
	if c.Tolerance() == advisory.RiskToleranceHigh {
		kept := slices.DeleteFunc(slices.Clone(recs), func(r Recommendation) bool { return r.Priority == advisory.PriorityLow })
		if len(kept) > 0 {
			recs = kept
		}
	}

	slices.SortStableFunc(recs, func(x, y Recommendation) int { return y.Priority.Rank() - x.Priority.Rank() })
	return recs
}

func highPriorityRatio(recs []Recommendation) float64 {
	if len(recs) == 0 {
		return 0
	}
	n := 0
	for _, r := range recs {
		if r.Priority.Rank() >= advisory.PriorityHigh.Rank() {
			n++
		}
	}
	return float64(n) / float64(len(recs))
}

// confidence = 0.6 + 0.2*high-priority share + 0.2*risk model completeness.
func (a *Agent) confidence(as assessment, recs []Recommendation) float64 {
	completeness := float64(len(as.triggered)) / float64(len(a.model.Dimensions))
	return 0.6 + 0.2*highPriorityRatio(recs) + 0.2*completeness
}

func (a *Agent) content(c *advisory.Context, as assessment, recs []Recommendation, res *evidence.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", as.kind.Title)
	fmt.Fprintf(&b, "Risk level: %s (score %.2f, %s tolerance, %s).\n", strings.ToUpper(string(as.level)), as.score, c.Tolerance(), c.Jurisdiction)

	b.WriteString("\n## Risk Factors\n\n")
	for _, d := range a.model.Dimensions {
		var labels []string
		for _, s := range as.signals {
			if s.dimension == d.Name {
				labels = append(labels, s.label)
			}
		}
		if len(labels) == 0 {
			labels = []string{"none identified"}
		}
		fmt.Fprintf(&b, "- %s: %s\n", d.Label, strings.Join(labels, "; "))
	}
	if as.urgent {
		b.WriteString("- Urgency: flagged as time critical\n")
	}

	b.WriteString("\n## Recommendations\n\n")
	for i, r := range recs {
		fmt.Fprintf(&b, "%d. [%s] %s (effort: %s)\n", i+1, strings.ToUpper(string(r.Priority)), r.Text, r.Effort)
	}

	if text := strings.TrimSpace(res.Text); text != "" {
		fmt.Fprintf(&b, "\n## Supporting Guidance\n\n%s\n", text)
	}
	return b.String()
}

func (a *Agent) reasoning(c *advisory.Context, as assessment, recs []Recommendation) string {
	return fmt.Sprintf("Classified as %s; %d risk indicators across %d of %d dimensions give score %.2f (%s) at %s tolerance; %d recommendations, %.0f%% high priority.",
		as.kind.Name, len(as.signals), len(as.triggered), len(a.model.Dimensions), as.score, as.level,
		c.Tolerance(), len(recs), 100*highPriorityRatio(recs))
}

func (a *Agent) evidence(c *advisory.Context, as assessment, res *evidence.Result) []advisory.Evidence {
	var ev []advisory.Evidence
	for _, d := range a.model.Dimensions {
		if !slices.Contains(as.triggered, d.Name) {
			continue
		}
		p := d.Source
		ev = append(ev, advisory.NewEvidence(p.ID, p.Type, p.Jurisdiction, p.Snippet, p.Citation, p.Trust, 0.85, p.Published))
	}
	return append(ev, evidence.ToEvidence(res.Snippets, 0.65, c.Jurisdiction)...)
}

func (a *Agent) limitations(as assessment, retrievalErr error) []string {
	var missing []string
	for _, d := range a.model.Dimensions {
		if !slices.Contains(as.triggered, d.Name) {
			missing = append(missing, strings.ToLower(d.Label))
		}
	}
	out := []string{"Risk scoring uses a generic model and is not calibrated to the institution's risk appetite statement."}
	if len(missing) > 0 {
		out = append(out, fmt.Sprintf("No information was provided on %s.", strings.Join(missing, ", ")))
	}
	if retrievalErr != nil {
		out = append(out, "External evidence retrieval was unavailable; only the reference risk model was used.")
	}
	return out
}

func (a *Agent) followUps(as assessment, recs []Recommendation) []advisory.FollowUpSuggestion {
	fs := make([]advisory.FollowUpSuggestion, 0, len(recs)+1)
	for _, r := range recs {
		conf := 0.7
		if r.Priority.Rank() >= advisory.PriorityHigh.Rank() {
			conf = 0.85
		}
		fs = append(fs, advisory.FollowUpSuggestion{
			Text:            r.Text,
			Type:            r.Type,
			Confidence:      conf,
			Priority:        r.Priority,
			EstimatedEffort: r.Effort,
		})
	}
	if len(as.triggered) < len(a.model.Dimensions)/2 {
		fs = append(fs, advisory.FollowUpSuggestion{
			Text:            "Provide customer, geography, product and channel details to complete the risk assessment.",
			Type:            advisory.SuggestionClarification,
			Confidence:      0.9,
			Priority:        advisory.PriorityMedium,
			EstimatedEffort: "10 minutes",
		})
	}
	advisory.RankFollowUps(fs)
	return fs
}

var _ agent.Agent = (*Agent)(nil)
