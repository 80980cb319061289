// Package strategy defines orchestration strategies: which agents run, in what
// concurrency mode, and how their responses are merged.
package strategy

import (
	"fmt"

	"github.com/Strob0t/RegAdvisor/internal/domain"
	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
)

// Method selects the synthesis algorithm for a strategy.
type Method string

const (
	MethodHierarchical    Method = "hierarchical"
	MethodConsensus       Method = "consensus"
	MethodWeightedAverage Method = "weighted_average"
	MethodHybrid          Method = "hybrid"
)

// Methods lists every known synthesis method.
var Methods = []Method{MethodHierarchical, MethodConsensus, MethodWeightedAverage, MethodHybrid}

// ParseMethod converts s into a Method.
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownMethod, s)
}

// Name identifies a builtin strategy.
type Name string

const (
	NameHighConfidence     Name = "high_confidence"
	NameRegulatoryAnalysis Name = "regulatory_analysis"
	NameRiskAssessment     Name = "risk_assessment"
	NameStandardAdvisory   Name = "standard_advisory"
)

// Strategy is a named, immutable orchestration policy.
type Strategy struct {
	Name          Name                `json:"name"`
	Agents        []advisory.AgentTag `json:"agents"`
	Parallel      bool                `json:"parallel"`
	Method        Method              `json:"method"`
	MinConfidence float64             `json:"min_confidence"`
}

// Validate checks a strategy has agents, a known method and a sane threshold.
func (s *Strategy) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Agents) == 0 {
		return fmt.Errorf("strategy %s: at least one agent is required", s.Name)
	}
	if _, err := ParseMethod(string(s.Method)); err != nil {
		return fmt.Errorf("strategy %s: %w", s.Name, err)
	}
	if s.MinConfidence < 0 || s.MinConfidence > 1 {
		return fmt.Errorf("strategy %s: min_confidence must be within [0,1]", s.Name)
	}
	return nil
}
