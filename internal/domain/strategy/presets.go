package strategy

import "github.com/Strob0t/RegAdvisor/internal/domain/advisory"

var (
	highConfidence = Strategy{
		Name: NameHighConfidence,
		Agents: []advisory.AgentTag{
			advisory.AgentRegulatoryParser,
			advisory.AgentAdvisoryGenerator,
			advisory.AgentConfidenceScorer,
		},
		Parallel:      true,
		Method:        MethodConsensus,
		MinConfidence: 0.85,
	}
	regulatoryAnalysis = Strategy{
		Name:          NameRegulatoryAnalysis,
		Agents:        []advisory.AgentTag{advisory.AgentRegulatoryParser, advisory.AgentConfidenceScorer},
		Method:        MethodWeightedAverage,
		MinConfidence: 0.80,
	}
	riskAssessment = Strategy{
		Name:          NameRiskAssessment,
		Agents:        []advisory.AgentTag{advisory.AgentAdvisoryGenerator, advisory.AgentConfidenceScorer},
		Method:        MethodHybrid,
		MinConfidence: 0.80,
	}
	standardAdvisory = Strategy{
		Name: NameStandardAdvisory,
		Agents: []advisory.AgentTag{
			advisory.AgentRegulatoryParser,
			advisory.AgentAdvisoryGenerator,
			advisory.AgentConfidenceScorer,
		},
		Method:        MethodHierarchical,
		MinConfidence: 0.75,
	}
)

// Builtin returns copies of all builtin strategies in selection order.
func Builtin() []Strategy {
	return []Strategy{
		clone(highConfidence),
		clone(regulatoryAnalysis),
		clone(riskAssessment),
		clone(standardAdvisory),
	}
}

// Get returns the builtin strategy with the given name.
func Get(name Name) (Strategy, bool) {
	for _, s := range Builtin() {
		if s.Name == name {
			return s, true
		}
	}
	return Strategy{}, false
}

// clone copies s so callers cannot mutate the shared agent slice.
func clone(s Strategy) Strategy {
	s.Agents = append([]advisory.AgentTag(nil), s.Agents...)
	return s
}
