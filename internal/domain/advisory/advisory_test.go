package advisory

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.7, 1},
		{math.NaN(), 0},
		{math.Inf(1), 1},
	}
	for _, tt := range tests {
		if got := Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewResponseClampsConfidence(t *testing.T) {
	r := NewResponse(AgentAdvisoryGenerator, "content", "reasoning", 1.3)
	if r.Confidence != 1 {
		t.Fatalf("expected confidence 1, got %v", r.Confidence)
	}
	if r.ID == "" {
		t.Fatal("expected id to be assigned")
	}
}

func TestResponseValidate(t *testing.T) {
	tests := []struct {
		name    string
		resp    Response
		wantErr bool
	}{
		{"valid", Response{Agent: AgentRegulatoryParser, Content: "c", Reasoning: "r", Confidence: 0.5}, false},
		{"missing content", Response{Agent: AgentRegulatoryParser, Reasoning: "r", Confidence: 0.5}, true},
		{"blank reasoning", Response{Agent: AgentRegulatoryParser, Content: "c", Reasoning: "  ", Confidence: 0.5}, true},
		{"nan confidence", Response{Agent: AgentRegulatoryParser, Content: "c", Reasoning: "r", Confidence: math.NaN()}, true},
		{"missing agent", Response{Content: "c", Reasoning: "r"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.resp.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResponseValidateClampsRange(t *testing.T) {
	r := Response{Agent: AgentConfidenceScorer, Content: "c", Reasoning: "r", Confidence: -2}
	if err := r.Validate(); err != nil {
		t.Fatal(err)
	}
	if r.Confidence != 0 {
		t.Fatalf("expected clamped confidence 0, got %v", r.Confidence)
	}
}

func TestContextValidate(t *testing.T) {
	c := Context{Query: "kyc rules", Jurisdiction: "US", RiskTolerance: "extreme"}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for invalid tolerance")
	}
	c.RiskTolerance = RiskToleranceLow
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (&Context{Jurisdiction: "US"}).Validate(); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestContextHelpers(t *testing.T) {
	c := Context{Query: "  What about AML? ", Frameworks: []string{"AML", "kyc"}}
	if c.NormalizedQuery() != "what about aml?" {
		t.Fatalf("unexpected normalized query %q", c.NormalizedQuery())
	}
	if !c.HasFramework("KYC") {
		t.Fatal("expected case-insensitive framework match")
	}
	if c.Tolerance() != RiskToleranceMedium {
		t.Fatalf("expected default medium tolerance, got %s", c.Tolerance())
	}
	if CountMatches("PEP screening for sanctions", "pep", "sanction", "fraud") != 2 {
		t.Fatal("expected two keyword matches")
	}
}

func TestRankFollowUps(t *testing.T) {
	fs := []FollowUpSuggestion{
		{Text: "a", Priority: PriorityLow, Confidence: 0.9},
		{Text: "b", Priority: PriorityCritical, Confidence: 0.5},
		{Text: "c", Priority: PriorityHigh, Confidence: 0.6},
		{Text: "d", Priority: PriorityHigh, Confidence: 0.8},
		{Text: "e", Priority: PriorityHigh, Confidence: 0.8},
	}
	RankFollowUps(fs)

	want := []string{"b", "d", "e", "c", "a"}
	for i, w := range want {
		if fs[i].Text != w {
			t.Fatalf("position %d: got %s, want %s (order %v)", i, fs[i].Text, w, fs)
		}
	}
}
