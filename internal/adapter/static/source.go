// Package static provides an in-process evidence source backed by an
// embedded reference corpus. It is selected when no LLM proxy is configured.
package static

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Strob0t/RegAdvisor/internal/port/evidence"
)

//go:embed corpus.yaml
var corpusYAML []byte

const globalJurisdiction = "GLOBAL"

// Entry is one corpus record.
type Entry struct {
	SourceID     string    `yaml:"source_id"`
	SourceType   string    `yaml:"source_type"`
	Jurisdiction string    `yaml:"jurisdiction"`
	Frameworks   []string  `yaml:"frameworks"`
	Keywords     []string  `yaml:"keywords"`
	Citation     string    `yaml:"citation"`
	Trust        float64   `yaml:"trust"`
	PublishedAt  time.Time `yaml:"published_at"`
	Text         string    `yaml:"text"`
}

type corpusFile struct {
	Entries []Entry `yaml:"entries"`
}

// Source serves snippets from a fixed corpus. Safe for concurrent use.
type Source struct {
	entries []Entry
}

// New loads the embedded corpus.
func New() (*Source, error) {
	var cf corpusFile
	if err := yaml.Unmarshal(corpusYAML, &cf); err != nil {
		return nil, fmt.Errorf("parse embedded corpus: %w", err)
	}
	return &Source{entries: cf.Entries}, nil
}

// NewWithEntries builds a source over the given entries.
func NewWithEntries(entries ...Entry) *Source {
	return &Source{entries: entries}
}

type scored struct {
	entry Entry
	score int
}

// Retrieve ranks entries in the requested jurisdiction (or GLOBAL) by keyword
// and framework overlap with the request. Entries with no overlap are dropped.
func (s *Source) Retrieve(ctx context.Context, req evidence.Request) (*evidence.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := strings.ToLower(req.Query)
	var hits []scored
	for _, e := range s.entries {
		if !jurisdictionMatch(e.Jurisdiction, req.Jurisdiction) {
			continue
		}
		score := 0
		for _, kw := range e.Keywords {
			if strings.Contains(q, strings.ToLower(kw)) {
				score += 2
			}
		}
		for _, fw := range e.Frameworks {
			for _, want := range req.Frameworks {
				if strings.EqualFold(fw, want) {
					score++
				}
			}
		}
		if score > 0 {
			hits = append(hits, scored{entry: e, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].entry.Trust > hits[j].entry.Trust
	})

	limit := req.MaxSnippets
	if limit <= 0 || limit > len(hits) {
		limit = len(hits)
	}

	res := &evidence.Result{Snippets: make([]evidence.Snippet, 0, limit)}
	for _, h := range hits[:limit] {
		res.Snippets = append(res.Snippets, evidence.Snippet{
			SourceID:     h.entry.SourceID,
			SourceType:   h.entry.SourceType,
			Jurisdiction: h.entry.Jurisdiction,
			Text:         h.entry.Text,
			Citation:     h.entry.Citation,
			Trust:        h.entry.Trust,
			PublishedAt:  h.entry.PublishedAt,
		})
	}
	return res, nil
}

// Health always reports healthy.
func (s *Source) Health(context.Context) (bool, error) {
	return true, nil
}

func jurisdictionMatch(entry, want string) bool {
	return strings.EqualFold(entry, globalJurisdiction) || want == "" || strings.EqualFold(entry, want)
}
