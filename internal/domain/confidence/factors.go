// Package confidence computes calibrated reliability scores for advisory responses.
package confidence

import (
	"math"

	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
)

// Factor names used in breakdown maps.
const (
	FactorEvidenceQuality      = "evidence_quality"
	FactorSourceReliability    = "source_reliability"
	FactorResponseCompleteness = "response_completeness"
	FactorRegulatoryAlignment  = "regulatory_alignment"
	FactorExpertConsensus      = "expert_consensus"
	FactorTemporalRelevance    = "temporal_relevance"
	FactorJurisdictionCoverage = "jurisdiction_coverage"
	FactorFrameworkCompliance  = "framework_compliance"
)

// FactorNames lists the factors in weight order.
var FactorNames = []string{
	FactorEvidenceQuality,
	FactorSourceReliability,
	FactorResponseCompleteness,
	FactorRegulatoryAlignment,
	FactorExpertConsensus,
	FactorTemporalRelevance,
	FactorJurisdictionCoverage,
	FactorFrameworkCompliance,
}

// Factors holds the eight independent sub-scores, each within [0,1].
type Factors struct {
	EvidenceQuality      float64 `json:"evidence_quality"`
	SourceReliability    float64 `json:"source_reliability"`
	ResponseCompleteness float64 `json:"response_completeness"`
	RegulatoryAlignment  float64 `json:"regulatory_alignment"`
	ExpertConsensus      float64 `json:"expert_consensus"`
	TemporalRelevance    float64 `json:"temporal_relevance"`
	JurisdictionCoverage float64 `json:"jurisdiction_coverage"`
	FrameworkCompliance  float64 `json:"framework_compliance"`
}

// Breakdown returns the factors keyed by name.
func (f Factors) Breakdown() map[string]float64 {
	return map[string]float64{
		FactorEvidenceQuality:      f.EvidenceQuality,
		FactorSourceReliability:    f.SourceReliability,
		FactorResponseCompleteness: f.ResponseCompleteness,
		FactorRegulatoryAlignment:  f.RegulatoryAlignment,
		FactorExpertConsensus:      f.ExpertConsensus,
		FactorTemporalRelevance:    f.TemporalRelevance,
		FactorJurisdictionCoverage: f.JurisdictionCoverage,
		FactorFrameworkCompliance:  f.FrameworkCompliance,
	}
}

// Weights combines factors into one overall score. The fields sum to 1.
type Weights Factors

// DefaultWeights are the fixed factor weights.
var DefaultWeights = Weights{
	EvidenceQuality:      0.20,
	SourceReliability:    0.20,
	ResponseCompleteness: 0.15,
	RegulatoryAlignment:  0.15,
	ExpertConsensus:      0.10,
	TemporalRelevance:    0.10,
	JurisdictionCoverage: 0.05,
	FrameworkCompliance:  0.05,
}

// Overall returns the weighted sum of f, clamped to [0,1].
func (w Weights) Overall(f Factors) float64 {
	sum := w.EvidenceQuality*f.EvidenceQuality +
		w.SourceReliability*f.SourceReliability +
		w.ResponseCompleteness*f.ResponseCompleteness +
		w.RegulatoryAlignment*f.RegulatoryAlignment +
		w.ExpertConsensus*f.ExpertConsensus +
		w.TemporalRelevance*f.TemporalRelevance +
		w.JurisdictionCoverage*f.JurisdictionCoverage +
		w.FrameworkCompliance*f.FrameworkCompliance
	return advisory.Clamp(sum)
}

// Level is a coarse label for an overall score.
type Level string

const (
	LevelHigh    Level = "high"
	LevelMedium  Level = "medium"
	LevelLow     Level = "low"
	LevelVeryLow Level = "very_low"
)

// LevelFor maps an overall score to its label.
func LevelFor(score float64) Level {
	switch {
	case score >= 0.85:
		return LevelHigh
	case score >= 0.70:
		return LevelMedium
	case score >= 0.50:
		return LevelLow
	}
	return LevelVeryLow
}

// Metrics is derived on demand from a response and its context. It is never stored.
type Metrics struct {
	Overall         float64            `json:"overall"`
	Level           Level              `json:"level"`
	Factors         Factors            `json:"factors"`
	Breakdown       map[string]float64 `json:"breakdown"`
	Recommendations []string           `json:"recommendations"`
	Limitations     []string           `json:"limitations"`
}

// Round4 rounds v to four decimals for stable presentation.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
