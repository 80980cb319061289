package confidence

import (
	"math"

	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
)

// QualityScore rates a synthesized result. Every count term saturates, so the
// score stays within [0,1] for any input.
func QualityScore(finalConfidence float64, evidenceCount, suggestionCount, agentCount int, completeness float64) float64 {
	s := 0.4*advisory.Clamp(finalConfidence) +
		0.2*math.Min(1, float64(max(evidenceCount, 0))/5) +
		0.1*math.Min(1, float64(max(suggestionCount, 0))/3) +
		0.2*math.Min(1, float64(max(agentCount, 0))/3) +
		0.1*advisory.Clamp(completeness)
	return advisory.Clamp(s)
}
