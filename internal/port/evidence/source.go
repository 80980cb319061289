// Package evidence defines the outbound port to the evidence/LLM collaborator.
package evidence

import (
	"context"
	"strings"
	"time"

	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
)

// Request asks the collaborator for material on a sub-query within a jurisdiction.
type Request struct {
	Query        string
	Jurisdiction string
	Frameworks   []string
	Purpose      string // which agent is asking, e.g. "regulatory_parser"
	MaxSnippets  int
}

// Snippet is one retrieved piece of source material.
type Snippet struct {
	SourceID     string
	SourceType   string
	Jurisdiction string
	Text         string
	Citation     string
	Trust        float64
	PublishedAt  time.Time
}

// Result is the collaborator's answer: optional generated text plus snippets.
type Result struct {
	Text     string
	Snippets []Snippet
}

// Source is the port interface for the evidence/LLM collaborator.
// Implementations must honor ctx cancellation.
type Source interface {
	Retrieve(ctx context.Context, req Request) (*Result, error)
	Health(ctx context.Context) (bool, error)
}

// SourceType maps the snippet's free-form source type onto the known set.
// Unrecognized values are treated as guidance.
func (s *Snippet) Type() advisory.SourceType {
	switch st := advisory.SourceType(strings.ToLower(strings.TrimSpace(s.SourceType))); st {
	case advisory.SourceRegulation, advisory.SourceGuidance, advisory.SourceCaseLaw,
		advisory.SourceIndustryStandard, advisory.SourceInternalPolicy:
		return st
	}
	return advisory.SourceGuidance
}

// ToEvidence converts retrieved snippets into Evidence with the given relevance.
// Snippets without a jurisdiction inherit fallbackJurisdiction.
func ToEvidence(snippets []Snippet, relevance float64, fallbackJurisdiction string) []advisory.Evidence {
	out := make([]advisory.Evidence, 0, len(snippets))
	for i := range snippets {
		s := &snippets[i]
		j := s.Jurisdiction
		if j == "" {
			j = fallbackJurisdiction
		}
		out = append(out, advisory.NewEvidence(s.SourceID, s.Type(), j, s.Text, s.Citation, s.Trust, relevance, s.PublishedAt))
	}
	return out
}
