package confidence

import (
	"math"
	"testing"
	"time"

	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
)

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestDefaultWeightsSumToOne(t *testing.T) {
	w := DefaultWeights
	sum := w.EvidenceQuality + w.SourceReliability + w.ResponseCompleteness + w.RegulatoryAlignment +
		w.ExpertConsensus + w.TemporalRelevance + w.JurisdictionCoverage + w.FrameworkCompliance
	if !approx(sum, 1) {
		t.Fatalf("weights sum to %v, want 1", sum)
	}
}

func TestTemporalDecay(t *testing.T) {
	tests := []struct {
		days int
		want float64
	}{
		{0, 1.0},
		{29, 1.0},
		{30, 0.9},
		{89, 0.9},
		{120, 0.8},
		{200, 0.7},
		{364, 0.7},
		{365, 0.5},
		{1000, 0.5},
	}
	for _, tt := range tests {
		if got := TemporalDecay(time.Duration(tt.days) * day); got != tt.want {
			t.Errorf("TemporalDecay(%dd) = %v, want %v", tt.days, got, tt.want)
		}
	}
}

func TestTemporalRelevanceTwoHundredDaysOld(t *testing.T) {
	calc := NewCalculator().WithClock(func() time.Time { return fixedNow })
	r := &advisory.Response{
		Agent:     advisory.AgentRegulatoryParser,
		Content:   "c",
		Reasoning: "r",
		Evidence: []advisory.Evidence{{
			SourceID:    "src",
			SourceType:  advisory.SourceRegulation,
			TrustScore:  0.9,
			PublishedAt: fixedNow.Add(-200 * day),
		}},
	}
	f := calc.Factors(r, &advisory.Context{Jurisdiction: "US"})
	if f.TemporalRelevance != 0.7 {
		t.Fatalf("expected temporal relevance 0.7, got %v", f.TemporalRelevance)
	}
}

func TestEvidenceQuality(t *testing.T) {
	if EvidenceQuality(nil) != noEvidenceScore {
		t.Fatal("expected no-evidence score")
	}
	ev := []advisory.Evidence{
		{SourceID: "a", SourceType: advisory.SourceRegulation, Jurisdiction: "US", TrustScore: 1, RelevanceScore: 0.5},
		{SourceID: "b", SourceType: advisory.SourceGuidance, Jurisdiction: "EU", TrustScore: 0.5, RelevanceScore: 1},
		{SourceID: "c", SourceType: advisory.SourceCaseLaw, Jurisdiction: "US", TrustScore: 0.75, RelevanceScore: 0.75},
	}
	// trust mean 0.75, relevance mean 0.75, diversity (1 + 1 + 1) / 3 = 1
	want := 0.4*0.75 + 0.4*0.75 + 0.2*1
	if got := EvidenceQuality(ev); !approx(got, want) {
		t.Fatalf("EvidenceQuality = %v, want %v", got, want)
	}
}

func TestCompleteness(t *testing.T) {
	r := &advisory.Response{Content: "c", Reasoning: "r"}
	if got := Completeness(r); !approx(got, 0.5) {
		t.Fatalf("expected 0.5, got %v", got)
	}
	r.Evidence = []advisory.Evidence{{}}
	r.Assumptions = []string{"a"}
	r.Limitations = []string{"l"}
	r.FollowUps = []advisory.FollowUpSuggestion{{}}
	if got := Completeness(r); !approx(got, 1) {
		t.Fatalf("expected 1, got %v", got)
	}
}

func TestRegulatoryAlignmentAndFrameworkCompliance(t *testing.T) {
	ac := &advisory.Context{Jurisdiction: "US", Frameworks: []string{"AML", "KYC"}}
	r := &advisory.Response{
		Content: "AML programs must include transaction monitoring.",
		Evidence: []advisory.Evidence{
			{SourceType: advisory.SourceRegulation, Citation: "31 CFR 1020.210 (AML program)"},
		},
	}
	if got := RegulatoryAlignment(r, ac); !approx(got, 0.7*0.5+0.3) {
		t.Fatalf("RegulatoryAlignment = %v", got)
	}
	if got := FrameworkCompliance(r.Evidence, ac.Frameworks); !approx(got, 0.5) {
		t.Fatalf("FrameworkCompliance = %v", got)
	}
	if got := FrameworkCompliance(nil, nil); got != neutralScore {
		t.Fatalf("expected neutral score without frameworks, got %v", got)
	}
}

func TestJurisdictionCoverage(t *testing.T) {
	ev := []advisory.Evidence{{Jurisdiction: "us"}, {Jurisdiction: "GLOBAL"}, {Jurisdiction: "EU"}, {Jurisdiction: "UK"}}
	if got := JurisdictionCoverage(ev, "US"); !approx(got, 0.5) {
		t.Fatalf("expected 0.5, got %v", got)
	}
}

func TestExpertConsensusWithPeers(t *testing.T) {
	peers := []*advisory.Response{{Confidence: 0.8}, {Confidence: 0.8}}
	if got := ExpertConsensus(nil, peers); !approx(got, 1) {
		t.Fatalf("identical peers should agree fully, got %v", got)
	}
	peers = []*advisory.Response{{Confidence: 1}, {Confidence: 0}}
	if got := ExpertConsensus(nil, peers); got != 0 {
		t.Fatalf("opposed peers should score 0, got %v", got)
	}
}

func TestVariance(t *testing.T) {
	if got := Variance([]float64{0.9, 0.7, 0.8}); !approx(got, 0.02/3) {
		t.Fatalf("Variance = %v", got)
	}
	if Variance(nil) != 0 {
		t.Fatal("expected zero variance for empty input")
	}
}

func TestScoreEmitsRecommendationsAndLimitations(t *testing.T) {
	calc := NewCalculator().WithClock(func() time.Time { return fixedNow })
	r := &advisory.Response{Content: "short", Reasoning: "r"}
	m := calc.Score(r, &advisory.Context{Jurisdiction: "US", Frameworks: []string{"GDPR"}})

	if m.Overall < 0 || m.Overall > 1 {
		t.Fatalf("overall out of range: %v", m.Overall)
	}
	if len(m.Breakdown) != len(FactorNames) {
		t.Fatalf("expected %d breakdown entries, got %d", len(FactorNames), len(m.Breakdown))
	}
	if len(m.Recommendations) == 0 || len(m.Limitations) == 0 {
		t.Fatalf("expected recommendations and limitations for a bare response, got %+v", m)
	}
	if m.Level != LevelFor(m.Overall) {
		t.Fatalf("level %s does not match overall %v", m.Level, m.Overall)
	}
}

func TestQualityScoreBounded(t *testing.T) {
	tests := []struct {
		name                    string
		conf                    float64
		evidence, sugg, agents  int
		completeness, wantUpper float64
	}{
		{"huge counts", 1, 1000, 1000, 1000, 1, 1},
		{"negative counts", 0, -3, -1, -7, 0, 0},
		{"raw confidence overflow", 5, 0, 0, 0, 2, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QualityScore(tt.conf, tt.evidence, tt.sugg, tt.agents, tt.completeness)
			if got < 0 || got > 1 {
				t.Fatalf("quality out of range: %v", got)
			}
			if got > tt.wantUpper+1e-9 {
				t.Fatalf("quality %v exceeds expected upper bound %v", got, tt.wantUpper)
			}
		})
	}
	want := 0.4*0.8 + 0.2*(2.0/5) + 0.1*(1.0/3) + 0.2*1 + 0.1*0.5
	if got := QualityScore(0.8, 2, 1, 3, 0.5); !approx(got, want) {
		t.Fatalf("QualityScore = %v, want %v", got, want)
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Level
	}{
		{0.9, LevelHigh},
		{0.85, LevelHigh},
		{0.7, LevelMedium},
		{0.5, LevelLow},
		{0.2, LevelVeryLow},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.score); got != tt.want {
			t.Errorf("LevelFor(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestWithReliabilityOverrides(t *testing.T) {
	ev := []advisory.Evidence{{SourceType: advisory.SourceInternalPolicy, TrustScore: 1}}

	base := NewCalculator()
	custom := base.WithReliability(map[advisory.SourceType]float64{advisory.SourceInternalPolicy: 0.81})

	if got := base.sourceReliability(ev); math.Abs(got-math.Sqrt(0.60)) > 1e-9 {
		t.Errorf("default table: got %v", got)
	}
	if got := custom.sourceReliability(ev); math.Abs(got-0.9) > 1e-9 {
		t.Errorf("override table: got %v, want 0.9", got)
	}
	if DefaultReliability[advisory.SourceInternalPolicy] != 0.60 {
		t.Error("override must not mutate the default table")
	}
}
