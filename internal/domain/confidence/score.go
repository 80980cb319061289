package confidence

import (
	"math"
	"strings"
	"time"

	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
)

const (
	day = 24 * time.Hour

	// noEvidenceScore is used by evidence-driven factors when a response cites nothing.
	noEvidenceScore = 0.3
	// neutralScore is used when a factor has nothing to measure against.
	neutralScore = 0.5

	recommendBelow = 0.6
	limitBelow     = 0.4
)

// DefaultReliability scores each source type's baseline reliability.
var DefaultReliability = map[advisory.SourceType]float64{
	advisory.SourceRegulation:       0.95,
	advisory.SourceGuidance:         0.85,
	advisory.SourceCaseLaw:          0.80,
	advisory.SourceIndustryStandard: 0.75,
	advisory.SourceInternalPolicy:   0.60,
}

var factorAdvice = map[string]struct{ recommendation, limitation string }{
	FactorEvidenceQuality: {
		"Gather additional high-trust, highly relevant evidence from diverse sources.",
		"Supporting evidence is sparse or weak; conclusions may not hold.",
	},
	FactorSourceReliability: {
		"Prefer primary regulation and official guidance over secondary sources.",
		"Most sources are low-reliability; verify against primary regulation.",
	},
	FactorResponseCompleteness: {
		"Document assumptions, limitations and next steps alongside the answer.",
		"The response omits key sections and should be treated as partial.",
	},
	FactorRegulatoryAlignment: {
		"Map the answer explicitly to each applicable framework.",
		"The answer is weakly tied to the applicable regulatory frameworks.",
	},
	FactorExpertConsensus: {
		"Seek corroboration from additional independent sources or reviewers.",
		"Sources or agents disagree materially; expert review is advised.",
	},
	FactorTemporalRelevance: {
		"Refresh evidence to confirm no recent regulatory changes apply.",
		"Evidence is dated; recent amendments may not be reflected.",
	},
	FactorJurisdictionCoverage: {
		"Add evidence specific to the requested jurisdiction.",
		"Little evidence addresses the requested jurisdiction.",
	},
	FactorFrameworkCompliance: {
		"Cite the specific provisions of each framework in scope.",
		"Several frameworks in scope have no supporting citation.",
	},
}

// Calculator computes the eight-factor confidence metrics for a response.
type Calculator struct {
	weights     Weights
	reliability map[advisory.SourceType]float64
	now         func() time.Time
}

// NewCalculator returns a Calculator using the default weights and reliability table.
func NewCalculator() *Calculator {
	return &Calculator{
		weights:     DefaultWeights,
		reliability: DefaultReliability,
		now:         time.Now,
	}
}

// WithClock returns a copy of c that uses now as the current time.
func (c *Calculator) WithClock(now func() time.Time) *Calculator {
	cp := *c
	cp.now = now
	return &cp
}

// WithReliability returns a copy of c using the given source reliability table.
// Source types missing from table fall back to DefaultReliability.
func (c *Calculator) WithReliability(table map[advisory.SourceType]float64) *Calculator {
	merged := make(map[advisory.SourceType]float64, len(DefaultReliability))
	for k, v := range DefaultReliability {
		merged[k] = v
	}
	for k, v := range table {
		merged[k] = advisory.Clamp(v)
	}
	cp := *c
	cp.reliability = merged
	return &cp
}

// Weights returns the weights used for the overall score.
func (c *Calculator) Weights() Weights {
	return c.weights
}

// Score computes all factors for r against its originating context. Peers are the
// other responses produced for the same query; they feed the consensus factor.
func (c *Calculator) Score(r *advisory.Response, ac *advisory.Context, peers ...*advisory.Response) Metrics {
	f := c.Factors(r, ac, peers...)
	overall := c.weights.Overall(f)
	m := Metrics{
		Overall:   overall,
		Level:     LevelFor(overall),
		Factors:   f,
		Breakdown: f.Breakdown(),
	}
	for _, name := range FactorNames {
		v := m.Breakdown[name]
		if v < recommendBelow {
			m.Recommendations = append(m.Recommendations, factorAdvice[name].recommendation)
		}
		if v < limitBelow {
			m.Limitations = append(m.Limitations, factorAdvice[name].limitation)
		}
	}
	return m
}

// Factors computes each factor independently.
func (c *Calculator) Factors(r *advisory.Response, ac *advisory.Context, peers ...*advisory.Response) Factors {
	return Factors{
		EvidenceQuality:      EvidenceQuality(r.Evidence),
		SourceReliability:    c.sourceReliability(r.Evidence),
		ResponseCompleteness: Completeness(r),
		RegulatoryAlignment:  RegulatoryAlignment(r, ac),
		ExpertConsensus:      ExpertConsensus(r.Evidence, peers),
		TemporalRelevance:    c.temporalRelevance(r.Evidence),
		JurisdictionCoverage: JurisdictionCoverage(r.Evidence, ac.Jurisdiction),
		FrameworkCompliance:  FrameworkCompliance(r.Evidence, ac.Frameworks),
	}
}

// EvidenceQuality blends mean trust, mean relevance and source diversity.
func EvidenceQuality(ev []advisory.Evidence) float64 {
	if len(ev) == 0 {
		return noEvidenceScore
	}
	var trust, rel float64
	sources := map[string]bool{}
	jurisdictions := map[string]bool{}
	types := map[advisory.SourceType]bool{}
	for i := range ev {
		trust += ev[i].TrustScore
		rel += ev[i].RelevanceScore
		sources[ev[i].SourceID] = true
		jurisdictions[strings.ToUpper(ev[i].Jurisdiction)] = true
		types[ev[i].SourceType] = true
	}
	n := float64(len(ev))
	diversity := (math.Min(1, float64(len(sources))/3) +
		math.Min(1, float64(len(jurisdictions))/2) +
		math.Min(1, float64(len(types))/3)) / 3
	return advisory.Clamp(0.4*trust/n + 0.4*rel/n + 0.2*diversity)
}

func (c *Calculator) sourceReliability(ev []advisory.Evidence) float64 {
	if len(ev) == 0 {
		return noEvidenceScore
	}
	var sum float64
	for i := range ev {
		base, ok := c.reliability[ev[i].SourceType]
		if !ok {
			base = neutralScore
		}
		sum += math.Sqrt(base * ev[i].TrustScore)
	}
	return advisory.Clamp(sum / float64(len(ev)))
}

// Completeness is the weighted presence of a response's sections.
func Completeness(r *advisory.Response) float64 {
	var s float64
	if strings.TrimSpace(r.Content) != "" {
		s += 0.30
	}
	if strings.TrimSpace(r.Reasoning) != "" {
		s += 0.20
	}
	if len(r.Evidence) > 0 {
		s += 0.20
	}
	if len(r.Assumptions) > 0 {
		s += 0.10
	}
	if len(r.Limitations) > 0 {
		s += 0.10
	}
	if len(r.FollowUps) > 0 {
		s += 0.10
	}
	return advisory.Clamp(s)
}

// RegulatoryAlignment measures how explicitly the content addresses the
// context's frameworks and whether primary regulation backs it.
func RegulatoryAlignment(r *advisory.Response, ac *advisory.Context) float64 {
	coverage := neutralScore
	if len(ac.Frameworks) > 0 {
		coverage = float64(advisory.CountMatches(r.Content, ac.Frameworks...)) / float64(len(ac.Frameworks))
	}
	var reg float64
	for i := range r.Evidence {
		if r.Evidence[i].SourceType == advisory.SourceRegulation {
			reg = 1
			break
		}
	}
	return advisory.Clamp(0.7*coverage + 0.3*reg)
}

// ExpertConsensus uses peer agreement when at least two peers exist, otherwise
// the share of high-trust evidence.
func ExpertConsensus(ev []advisory.Evidence, peers []*advisory.Response) float64 {
	if len(peers) >= 2 {
		confs := make([]float64, 0, len(peers))
		for _, p := range peers {
			confs = append(confs, p.Confidence)
		}
		return advisory.Clamp(1 - 2*math.Sqrt(Variance(confs)))
	}
	if len(ev) == 0 {
		return neutralScore
	}
	strong := 0
	for i := range ev {
		if ev[i].TrustScore >= 0.7 {
			strong++
		}
	}
	return float64(strong) / float64(len(ev))
}

// TemporalDecay scores evidence freshness stepwise by age.
func TemporalDecay(age time.Duration) float64 {
	switch {
	case age < 30*day:
		return 1.0
	case age < 90*day:
		return 0.9
	case age < 180*day:
		return 0.8
	case age < 365*day:
		return 0.7
	}
	return 0.5
}

func (c *Calculator) temporalRelevance(ev []advisory.Evidence) float64 {
	if len(ev) == 0 {
		return neutralScore
	}
	now := c.now()
	var sum float64
	for i := range ev {
		sum += TemporalDecay(now.Sub(ev[i].ReferenceTime()))
	}
	return sum / float64(len(ev))
}

// JurisdictionCoverage is the share of evidence matching the jurisdiction or GLOBAL.
func JurisdictionCoverage(ev []advisory.Evidence, jurisdiction string) float64 {
	if len(ev) == 0 {
		return noEvidenceScore
	}
	hit := 0
	for i := range ev {
		if strings.EqualFold(ev[i].Jurisdiction, jurisdiction) || strings.EqualFold(ev[i].Jurisdiction, "GLOBAL") {
			hit++
		}
	}
	return float64(hit) / float64(len(ev))
}

// FrameworkCompliance is the share of frameworks cited by at least one evidence entry.
func FrameworkCompliance(ev []advisory.Evidence, frameworks []string) float64 {
	if len(frameworks) == 0 {
		return neutralScore
	}
	covered := 0
	for _, fw := range frameworks {
		for i := range ev {
			if advisory.ContainsAny(ev[i].Citation, fw) || advisory.ContainsAny(ev[i].Snippet, fw) {
				covered++
				break
			}
		}
	}
	return float64(covered) / float64(len(frameworks))
}

// Mean returns the arithmetic mean of vs, or 0 for an empty slice.
func Mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// Variance returns the population variance of vs.
func Variance(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	m := Mean(vs)
	var sum float64
	for _, v := range vs {
		sum += (v - m) * (v - m)
	}
	return sum / float64(len(vs))
}
