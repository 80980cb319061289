package advisor

import (
	_ "embed"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
)

//go:embed risk_model.yaml
var riskModelYAML []byte

// RiskLevel is the derived risk tier of a query.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Indicator is one keyword-triggered risk signal.
type Indicator struct {
	Keyword string  `yaml:"keyword"`
	Weight  float64 `yaml:"weight"`
	Label   string  `yaml:"label"`
}

// Provenance is the reference behind a risk dimension.
type Provenance struct {
	ID           string              `yaml:"id"`
	Type         advisory.SourceType `yaml:"type"`
	Jurisdiction string              `yaml:"jurisdiction"`
	Citation     string              `yaml:"citation"`
	Trust        float64             `yaml:"trust"`
	Published    time.Time           `yaml:"published"`
	Snippet      string              `yaml:"snippet"`
}

// Dimension groups indicators of one risk category.
type Dimension struct {
	Name       string      `yaml:"name"`
	Label      string      `yaml:"label"`
	Source     Provenance  `yaml:"source"`
	Indicators []Indicator `yaml:"indicators"`
}

// AdvisoryType is a template chosen from query keywords.
type AdvisoryType struct {
	Name     string   `yaml:"name"`
	Title    string   `yaml:"title"`
	Keywords []string `yaml:"keywords"`
}

// Recommendation is one reference recommendation. It is also the cached value.
type Recommendation struct {
	Text     string                  `yaml:"text" json:"text"`
	Priority advisory.Priority       `yaml:"priority" json:"priority"`
	Effort   string                  `yaml:"effort" json:"effort"`
	Type     advisory.SuggestionType `yaml:"type" json:"type"`
}

// Model is the parsed risk model.
type Model struct {
	Dimensions []Dimension `yaml:"dimensions"`
	Urgency    struct {
		Keywords []string `yaml:"keywords"`
		Weight   float64  `yaml:"weight"`
	} `yaml:"urgency"`
	ToleranceAdjustment map[advisory.RiskTolerance]float64 `yaml:"tolerance_adjustment"`
	Levels              struct {
		Critical float64 `yaml:"critical"`
		High     float64 `yaml:"high"`
		Medium   float64 `yaml:"medium"`
	} `yaml:"levels"`
	AdvisoryTypes   []AdvisoryType `yaml:"advisory_types"`
	Recommendations struct {
		Low           []Recommendation            `yaml:"low"`
		Medium        []Recommendation            `yaml:"medium"`
		High          []Recommendation            `yaml:"high"`
		Critical      []Recommendation            `yaml:"critical"`
		Jurisdictions map[string][]Recommendation `yaml:"jurisdictions"`
	} `yaml:"recommendations"`
}

// ParseModel decodes and validates a risk model document.
func ParseModel(data []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse risk model: %w", err)
	}
	if len(m.Dimensions) == 0 {
		return nil, errors.New("risk model has no dimensions")
	}
	if !(m.Levels.Critical > m.Levels.High && m.Levels.High > m.Levels.Medium) {
		return nil, errors.New("risk model levels must be strictly decreasing")
	}
	if len(m.AdvisoryTypes) == 0 {
		return nil, errors.New("risk model has no advisory types")
	}
	for _, lvl := range []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical} {
		if len(m.base(lvl)) == 0 {
			return nil, fmt.Errorf("risk model has no %s recommendations", lvl)
		}
	}
	return &m, nil
}

func (m *Model) base(l RiskLevel) []Recommendation {
	switch l {
	case RiskCritical:
		return m.Recommendations.Critical
	case RiskHigh:
		return m.Recommendations.High
	case RiskMedium:
		return m.Recommendations.Medium
	}
	return m.Recommendations.Low
}

func (m *Model) levelFor(score float64) RiskLevel {
	switch {
	case score >= m.Levels.Critical:
		return RiskCritical
	case score >= m.Levels.High:
		return RiskHigh
	case score >= m.Levels.Medium:
		return RiskMedium
	}
	return RiskLow
}

// advisoryType picks the first template with a keyword hit; the last entry is the fallback.
func (m *Model) advisoryType(query string) AdvisoryType {
	for _, t := range m.AdvisoryTypes {
		if len(t.Keywords) > 0 && advisory.ContainsAny(query, t.Keywords...) {
			return t
		}
	}
	return m.AdvisoryTypes[len(m.AdvisoryTypes)-1]
}
