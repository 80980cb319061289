package regparser

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
	"github.com/Strob0t/RegAdvisor/internal/port/agent"
)

//go:embed rules.yaml
var rulesYAML []byte

// Topic is a regulatory subject area recognized in queries.
type Topic struct {
	Name     string   `yaml:"name"`
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

// Rule is one catalogued requirement.
type Rule struct {
	ID           string              `yaml:"id"`
	Jurisdiction string              `yaml:"jurisdiction"`
	Frameworks   []string            `yaml:"frameworks"`
	Topics       []string            `yaml:"topics"`
	Title        string              `yaml:"title"`
	Obligation   string              `yaml:"obligation"`
	Citation     string              `yaml:"citation"`
	SourceType   advisory.SourceType `yaml:"source_type"`
	Trust        float64             `yaml:"trust"`
	Effective    time.Time           `yaml:"effective"`
}

// Global reports whether the rule applies in every jurisdiction.
func (r *Rule) Global() bool {
	return strings.EqualFold(r.Jurisdiction, agent.GlobalJurisdiction)
}

func (r *Rule) hasTopic(topics []string) bool {
	return slices.ContainsFunc(r.Topics, func(t string) bool { return slices.Contains(topics, t) })
}

func (r *Rule) coversFramework(f string) bool {
	return slices.ContainsFunc(r.Frameworks, func(rf string) bool { return strings.EqualFold(rf, f) })
}

// Catalog is the parsed reference data.
type Catalog struct {
	Topics []Topic `yaml:"topics"`
	Rules  []Rule  `yaml:"rules"`
}

// ParseCatalog decodes and validates a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse rule catalog: %w", err)
	}
	if len(c.Rules) == 0 {
		return nil, errors.New("rule catalog is empty")
	}
	known := make(map[string]bool, len(c.Topics))
	for _, t := range c.Topics {
		known[t.Name] = true
	}
	for i := range c.Rules {
		r := &c.Rules[i]
		if r.ID == "" || r.Citation == "" {
			return nil, fmt.Errorf("rule %d: id and citation are required", i)
		}
		for _, t := range r.Topics {
			if !known[t] {
				return nil, fmt.Errorf("rule %s: unknown topic %q", r.ID, t)
			}
		}
	}
	return &c, nil
}

func (c *Catalog) label(topic string) string {
	for _, t := range c.Topics {
		if t.Name == topic {
			return t.Label
		}
	}
	return topic
}

// detectTopics returns topic names whose keywords appear in the query,
// ordered by number of keyword hits.
func (c *Catalog) detectTopics(query string) []string {
	type hit struct {
		name string
		n    int
	}
	var hits []hit
	for _, t := range c.Topics {
		if n := advisory.CountMatches(query, t.Keywords...); n > 0 {
			hits = append(hits, hit{t.Name, n})
		}
	}
	slices.SortStableFunc(hits, func(a, b hit) int { return b.n - a.n })
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}
