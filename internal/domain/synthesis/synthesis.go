// Package synthesis merges the responses of several agents into one and derives
// aggregate metrics over the set.
package synthesis

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/Strob0t/RegAdvisor/internal/domain"
	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
	"github.com/Strob0t/RegAdvisor/internal/domain/strategy"
)

// Responses maps each contributing agent to its individual response.
type Responses map[advisory.AgentTag]*advisory.Response

// Synthesize merges rs with the given method. Order fixes the position of each agent
// in concatenated content and reasoning; agents missing from order follow in
// lexical order. Fails with ErrSynthesisImpossible when rs is empty.
func Synthesize(method strategy.Method, rs Responses, order []advisory.AgentTag) (*advisory.Response, error) {
	list := ordered(rs, order)
	if len(list) == 0 {
		return nil, domain.ErrSynthesisImpossible
	}

	var out *advisory.Response
	switch method {
	case strategy.MethodHierarchical:
		out = hierarchical(rs, list)
	case strategy.MethodConsensus:
		out = consensus(list)
	case strategy.MethodWeightedAverage:
		out = weightedAverage(list)
	case strategy.MethodHybrid:
		out = hybrid(rs, list)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMethod, method)
	}

	out.Reasoning = joinReasoning(list)
	out.Assumptions = unionStrings(list, func(r *advisory.Response) []string { return r.Assumptions })
	out.Limitations = unionStrings(list, func(r *advisory.Response) []string { return r.Limitations })
	out.Confidence = advisory.Clamp(out.Confidence)
	return out, nil
}

// hierarchical makes the generator primary and folds the parser in as a subsection.
// Confidence is capped by the scorer when one contributed.
func hierarchical(rs Responses, list []*advisory.Response) *advisory.Response {
	primary := rs[advisory.AgentAdvisoryGenerator]
	if primary == nil {
		primary = rs[advisory.AgentRegulatoryParser]
	}
	if primary == nil {
		primary = list[0]
	}

	out := advisory.NewResponse(advisory.AgentOrchestrator, primary.Content, "", primary.Confidence)
	out.Evidence = slices.Clone(primary.Evidence)
	out.FollowUps = slices.Clone(primary.FollowUps)

	if parser := rs[advisory.AgentRegulatoryParser]; parser != nil && parser != primary {
		out.Content += "\n\n## Regulatory Analysis\n\n" + parser.Content
		out.Evidence = unionEvidence(out.Evidence, parser.Evidence)
		out.FollowUps = unionFollowUps(out.FollowUps, parser.FollowUps)
	}
	if scorer := rs[advisory.AgentConfidenceScorer]; scorer != nil && scorer != primary {
		out.Confidence = math.Min(primary.Confidence, scorer.Confidence)
	}
	return out
}

// consensus bases the answer on the most confident response and averages confidence.
func consensus(list []*advisory.Response) *advisory.Response {
	base := list[0]
	confs := make([]float64, 0, len(list))
	for _, r := range list {
		if r.Confidence > base.Confidence {
			base = r
		}
		confs = append(confs, r.Confidence)
	}

	out := advisory.NewResponse(advisory.AgentOrchestrator, base.Content, "", mean(confs))
	for _, r := range list {
		out.Evidence = unionEvidence(out.Evidence, r.Evidence)
		out.FollowUps = unionFollowUps(out.FollowUps, r.FollowUps)
	}
	return out
}

// weightedAverage concatenates every response labelled with its share of total
// confidence. Final confidence is sum(c^2)/sum(c).
func weightedAverage(list []*advisory.Response) *advisory.Response {
	var sum, sumSq float64
	for _, r := range list {
		sum += r.Confidence
		sumSq += r.Confidence * r.Confidence
	}

	sections := make([]string, 0, len(list))
	for _, r := range list {
		w := 1 / float64(len(list))
		if sum > 0 {
			w = r.Confidence / sum
		}
		sections = append(sections, fmt.Sprintf("[%s | weight %.0f%%]\n%s", r.Agent, w*100, r.Content))
	}

	var final float64
	if sum > 0 {
		final = sumSq / sum
	}
	out := advisory.NewResponse(advisory.AgentOrchestrator, strings.Join(sections, "\n\n"), "", final)
	for _, r := range list {
		out.Evidence = unionEvidence(out.Evidence, r.Evidence)
		out.FollowUps = unionFollowUps(out.FollowUps, r.FollowUps)
	}
	return out
}

// hybrid takes hierarchical content, consensus evidence and follow-ups, and the
// mean of both confidences.
func hybrid(rs Responses, list []*advisory.Response) *advisory.Response {
	h := hierarchical(rs, list)
	c := consensus(list)
	out := advisory.NewResponse(advisory.AgentOrchestrator, h.Content, "", (h.Confidence+c.Confidence)/2)
	out.Evidence = c.Evidence
	out.FollowUps = c.FollowUps
	return out
}

func ordered(rs Responses, order []advisory.AgentTag) []*advisory.Response {
	seen := make(map[advisory.AgentTag]bool, len(rs))
	list := make([]*advisory.Response, 0, len(rs))
	for _, tag := range order {
		if r := rs[tag]; r != nil && !seen[tag] {
			list = append(list, r)
			seen[tag] = true
		}
	}
	var rest []advisory.AgentTag
	for tag, r := range rs {
		if r != nil && !seen[tag] {
			rest = append(rest, tag)
		}
	}
	slices.Sort(rest)
	for _, tag := range rest {
		list = append(list, rs[tag])
	}
	return list
}

func joinReasoning(list []*advisory.Response) string {
	parts := make([]string, 0, len(list))
	for _, r := range list {
		parts = append(parts, string(r.Agent)+": "+r.Reasoning)
	}
	return strings.Join(parts, " | ")
}

func unionEvidence(dst, src []advisory.Evidence) []advisory.Evidence {
	for _, e := range src {
		if e.ID == "" || !slices.ContainsFunc(dst, func(d advisory.Evidence) bool { return d.ID == e.ID }) {
			dst = append(dst, e)
		}
	}
	return dst
}

func unionFollowUps(dst, src []advisory.FollowUpSuggestion) []advisory.FollowUpSuggestion {
	for _, f := range src {
		if !slices.ContainsFunc(dst, func(d advisory.FollowUpSuggestion) bool { return d.Text == f.Text }) {
			dst = append(dst, f)
		}
	}
	return dst
}

func unionStrings(list []*advisory.Response, field func(*advisory.Response) []string) []string {
	var out []string
	for _, r := range list {
		for _, s := range field(r) {
			if !slices.Contains(out, s) {
				out = append(out, s)
			}
		}
	}
	return out
}

func mean(vs []float64) float64 {
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
