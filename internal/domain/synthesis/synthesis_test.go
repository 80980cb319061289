package synthesis_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/Strob0t/RegAdvisor/internal/domain"
	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
	"github.com/Strob0t/RegAdvisor/internal/domain/strategy"
	"github.com/Strob0t/RegAdvisor/internal/domain/synthesis"
)

var order = []advisory.AgentTag{
	advisory.AgentRegulatoryParser,
	advisory.AgentAdvisoryGenerator,
	advisory.AgentConfidenceScorer,
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func resp(tag advisory.AgentTag, conf float64, evidenceIDs ...string) *advisory.Response {
	r := advisory.NewResponse(tag, "content from "+string(tag), "because "+string(tag), conf)
	for _, id := range evidenceIDs {
		r.Evidence = append(r.Evidence, advisory.Evidence{ID: id, SourceID: id})
	}
	r.FollowUps = []advisory.FollowUpSuggestion{{Text: "follow up " + string(tag)}}
	r.Assumptions = []string{"shared assumption", "assumption " + string(tag)}
	return r
}

func threeResponses() synthesis.Responses {
	return synthesis.Responses{
		advisory.AgentRegulatoryParser:  resp(advisory.AgentRegulatoryParser, 0.9, "e1", "e2"),
		advisory.AgentAdvisoryGenerator: resp(advisory.AgentAdvisoryGenerator, 0.7, "e3"),
		advisory.AgentConfidenceScorer:  resp(advisory.AgentConfidenceScorer, 0.8, "e4"),
	}
}

func evidenceIDs(r *advisory.Response) []string {
	ids := make([]string, 0, len(r.Evidence))
	for _, e := range r.Evidence {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestConsensus(t *testing.T) {
	rs := threeResponses()
	out, err := synthesis.Synthesize(strategy.MethodConsensus, rs, order)
	if err != nil {
		t.Fatal(err)
	}
	if !approx(out.Confidence, 0.8) {
		t.Fatalf("expected mean confidence 0.8, got %v", out.Confidence)
	}
	if out.Content != rs[advisory.AgentRegulatoryParser].Content {
		t.Fatalf("expected base content from the 0.9 response, got %q", out.Content)
	}
	if got := strings.Join(evidenceIDs(out), ","); got != "e1,e2,e3,e4" {
		t.Fatalf("expected union of all evidence, got %s", got)
	}
	if len(out.FollowUps) != 3 {
		t.Fatalf("expected 3 follow-ups, got %d", len(out.FollowUps))
	}
	if out.Agent != advisory.AgentOrchestrator {
		t.Fatalf("expected orchestrator tag, got %s", out.Agent)
	}
}

func TestConsensusMeanIsExact(t *testing.T) {
	confs := []float64{0.13, 0.57, 0.99, 0.42}
	rs := synthesis.Responses{}
	tags := []advisory.AgentTag{"a", "b", "c", "d"}
	var sum float64
	for i, c := range confs {
		rs[tags[i]] = resp(tags[i], c)
		sum += c
	}
	out, err := synthesis.Synthesize(strategy.MethodConsensus, rs, tags)
	if err != nil {
		t.Fatal(err)
	}
	if out.Confidence != sum/float64(len(confs)) {
		t.Fatalf("expected exact mean %v, got %v", sum/float64(len(confs)), out.Confidence)
	}
}

func TestHierarchical(t *testing.T) {
	rs := threeResponses()
	out, err := synthesis.Synthesize(strategy.MethodHierarchical, rs, order)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.Content, "content from advisory_generator") {
		t.Fatalf("expected generator content first, got %q", out.Content)
	}
	if !strings.Contains(out.Content, "## Regulatory Analysis\n\ncontent from regulatory_parser") {
		t.Fatalf("expected parser subsection, got %q", out.Content)
	}
	if !approx(out.Confidence, 0.7) {
		t.Fatalf("expected min(generator, scorer) = 0.7, got %v", out.Confidence)
	}
	if got := strings.Join(evidenceIDs(out), ","); got != "e3,e1,e2" {
		t.Fatalf("expected generator then parser evidence, got %s", got)
	}
}

func TestHierarchicalWithoutScorerKeepsGeneratorConfidence(t *testing.T) {
	rs := threeResponses()
	delete(rs, advisory.AgentConfidenceScorer)
	rs[advisory.AgentAdvisoryGenerator].Confidence = 0.95
	out, err := synthesis.Synthesize(strategy.MethodHierarchical, rs, order)
	if err != nil {
		t.Fatal(err)
	}
	if out.Confidence != 0.95 {
		t.Fatalf("expected generator confidence unchanged, got %v", out.Confidence)
	}
}

func TestHierarchicalFallsBackToParser(t *testing.T) {
	rs := threeResponses()
	delete(rs, advisory.AgentAdvisoryGenerator)
	out, err := synthesis.Synthesize(strategy.MethodHierarchical, rs, order)
	if err != nil {
		t.Fatal(err)
	}
	if out.Content != "content from regulatory_parser" {
		t.Fatalf("expected parser as primary, got %q", out.Content)
	}
	if !approx(out.Confidence, 0.8) {
		t.Fatalf("expected min(parser, scorer) = 0.8, got %v", out.Confidence)
	}
}

func TestWeightedAverage(t *testing.T) {
	rs := synthesis.Responses{
		advisory.AgentRegulatoryParser: resp(advisory.AgentRegulatoryParser, 0.6, "e1"),
		advisory.AgentConfidenceScorer: resp(advisory.AgentConfidenceScorer, 0.9, "e2"),
	}
	out, err := synthesis.Synthesize(strategy.MethodWeightedAverage, rs, order)
	if err != nil {
		t.Fatal(err)
	}
	want := (0.6*0.6 + 0.9*0.9) / (0.6 + 0.9)
	if !approx(out.Confidence, want) {
		t.Fatalf("expected %v, got %v", want, out.Confidence)
	}
	if !strings.Contains(out.Content, "[regulatory_parser | weight 40%]") ||
		!strings.Contains(out.Content, "[confidence_scorer | weight 60%]") {
		t.Fatalf("expected weight labels, got %q", out.Content)
	}
	if len(out.Evidence) != 2 {
		t.Fatalf("expected unioned evidence, got %d", len(out.Evidence))
	}
}

func TestWeightedAverageMonotonicInTopContributor(t *testing.T) {
	prev := -1.0
	for c := 0.5; c <= 1.0001; c += 0.05 {
		rs := synthesis.Responses{
			advisory.AgentRegulatoryParser:  resp(advisory.AgentRegulatoryParser, 0.3),
			advisory.AgentAdvisoryGenerator: resp(advisory.AgentAdvisoryGenerator, 0.5),
			advisory.AgentConfidenceScorer:  resp(advisory.AgentConfidenceScorer, math.Min(c, 1)),
		}
		out, err := synthesis.Synthesize(strategy.MethodWeightedAverage, rs, order)
		if err != nil {
			t.Fatal(err)
		}
		if out.Confidence+1e-12 < prev {
			t.Fatalf("confidence decreased from %v to %v at top=%v", prev, out.Confidence, c)
		}
		prev = out.Confidence
	}
}

func TestWeightedAverageAllZero(t *testing.T) {
	rs := synthesis.Responses{
		advisory.AgentRegulatoryParser: resp(advisory.AgentRegulatoryParser, 0),
		advisory.AgentConfidenceScorer: resp(advisory.AgentConfidenceScorer, 0),
	}
	out, err := synthesis.Synthesize(strategy.MethodWeightedAverage, rs, order)
	if err != nil {
		t.Fatal(err)
	}
	if out.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %v", out.Confidence)
	}
	if !strings.Contains(out.Content, "weight 50%") {
		t.Fatalf("expected equal weights, got %q", out.Content)
	}
}

func TestHybrid(t *testing.T) {
	rs := synthesis.Responses{
		advisory.AgentAdvisoryGenerator: resp(advisory.AgentAdvisoryGenerator, 0.9, "e1"),
		advisory.AgentConfidenceScorer:  resp(advisory.AgentConfidenceScorer, 0.7, "e2"),
	}
	out, err := synthesis.Synthesize(strategy.MethodHybrid, rs, order)
	if err != nil {
		t.Fatal(err)
	}
	// hierarchical: min(0.9, 0.7) = 0.7; consensus: mean = 0.8
	if !approx(out.Confidence, 0.75) {
		t.Fatalf("expected 0.75, got %v", out.Confidence)
	}
	if out.Content != "content from advisory_generator" {
		t.Fatalf("expected hierarchical content, got %q", out.Content)
	}
	if len(out.Evidence) != 2 {
		t.Fatalf("expected consensus evidence union, got %d", len(out.Evidence))
	}
}

func TestReasoningAndAssumptions(t *testing.T) {
	out, err := synthesis.Synthesize(strategy.MethodConsensus, threeResponses(), order)
	if err != nil {
		t.Fatal(err)
	}
	want := "regulatory_parser: because regulatory_parser | advisory_generator: because advisory_generator | confidence_scorer: because confidence_scorer"
	if out.Reasoning != want {
		t.Fatalf("unexpected reasoning:\n%s", out.Reasoning)
	}
	if len(out.Assumptions) != 4 {
		t.Fatalf("expected deduplicated assumptions, got %v", out.Assumptions)
	}
}

func TestSynthesizeErrors(t *testing.T) {
	if _, err := synthesis.Synthesize(strategy.MethodConsensus, synthesis.Responses{}, order); !errors.Is(err, domain.ErrSynthesisImpossible) {
		t.Fatalf("expected ErrSynthesisImpossible, got %v", err)
	}
	if _, err := synthesis.Synthesize("majority", threeResponses(), order); !errors.Is(err, domain.ErrUnknownMethod) {
		t.Fatalf("expected ErrUnknownMethod, got %v", err)
	}
}

func TestAggregate(t *testing.T) {
	rs := threeResponses()
	out, err := synthesis.Synthesize(strategy.MethodConsensus, rs, order)
	if err != nil {
		t.Fatal(err)
	}
	m := synthesis.Aggregate(out, rs)
	if m.AgentCount != 3 || !approx(m.MeanConfidence, 0.8) {
		t.Fatalf("unexpected aggregate: %+v", m)
	}
	if !approx(m.Variance, 0.02/3) {
		t.Fatalf("expected population variance, got %v", m.Variance)
	}
	if m.EvidenceCount != 4 || m.SuggestionCount != 3 {
		t.Fatalf("unexpected counts: %+v", m)
	}
	if m.AgentConfidences[advisory.AgentConfidenceScorer] != 0.8 {
		t.Fatalf("unexpected per-agent map: %v", m.AgentConfidences)
	}
}
