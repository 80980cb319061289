package strategy

import "github.com/Strob0t/RegAdvisor/internal/domain/advisory"

var (
	urgencyKeywords    = []string{"critical", "urgent"}
	regulatoryKeywords = []string{"regulation", "requirement", "compliance", "obligation"}
	riskKeywords       = []string{"risk", "assessment", "evaluation", "analysis"}
)

// Select picks exactly one strategy for the context. The first matching rule wins:
// urgency, low tolerance or a compliance officer requester; regulatory wording;
// risk wording; otherwise the standard advisory flow. It never fails.
func Select(c *advisory.Context) Strategy {
	q := c.NormalizedQuery()
	switch {
	case advisory.ContainsAny(q, urgencyKeywords...),
		c.RiskTolerance == advisory.RiskToleranceLow,
		c.Role == advisory.RoleComplianceOfficer:
		return clone(highConfidence)
	case advisory.ContainsAny(q, regulatoryKeywords...):
		return clone(regulatoryAnalysis)
	case advisory.ContainsAny(q, riskKeywords...):
		return clone(riskAssessment)
	default:
		return clone(standardAdvisory)
	}
}
