package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Strob0t/RegAdvisor/internal/domain/advisory"
	"github.com/Strob0t/RegAdvisor/internal/domain/strategy"
	"github.com/Strob0t/RegAdvisor/internal/domain/synthesis"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

// isolatedConfig points at a missing file so only defaults and env apply.
func isolatedConfig(t *testing.T) string {
	t.Helper()
	for _, k := range []string{"NATS_URL", "LITELLM_URL", "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		t.Setenv(k, "")
	}
	return filepath.Join(t.TempDir(), "none.yaml")
}

func TestStrategiesCommand(t *testing.T) {
	out, _, err := execute(t, "strategies")
	if err != nil {
		t.Fatalf("strategies: %v", err)
	}
	for _, s := range strategy.Builtin() {
		if !strings.Contains(out, string(s.Name)) {
			t.Errorf("output missing %s:\n%s", s.Name, out)
		}
	}
	if !strings.Contains(out, "parallel") || !strings.Contains(out, "0.85") {
		t.Errorf("expected high_confidence row details:\n%s", out)
	}
}

func TestAdviseCommand(t *testing.T) {
	cfgPath := isolatedConfig(t)

	out, stderr, err := execute(t, "advise", "--config", cfgPath, "--compact",
		"-q", "What are the KYC documentation requirements?", "-j", "us", "-f", "KYC,AML")
	if err != nil {
		t.Fatalf("advise: %v\nstderr: %s", err, stderr)
	}

	var res synthesis.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("stdout is not a synthesis result: %v\n%s", err, out)
	}
	if res.Strategy != strategy.NameRegulatoryAnalysis {
		t.Errorf("strategy = %s", res.Strategy)
	}
	if res.Response == nil || res.Response.Agent != advisory.AgentOrchestrator {
		t.Errorf("unexpected merged response %+v", res.Response)
	}
	if !strings.Contains(stderr, "query completed") {
		t.Errorf("expected structured logs on stderr, got %q", stderr)
	}
}

func TestAdviseQueryFromArgs(t *testing.T) {
	cfgPath := isolatedConfig(t)

	out, _, err := execute(t, "advise", "--config", cfgPath, "--compact", "How", "should", "we", "onboard", "a", "fintech?")
	if err != nil {
		t.Fatalf("advise: %v", err)
	}
	if !strings.Contains(out, `"strategy":"standard_advisory"`) {
		t.Errorf("expected standard_advisory, got %s", out)
	}
}

func TestAdviseRejectsEmptyQuery(t *testing.T) {
	cfgPath := isolatedConfig(t)
	if _, _, err := execute(t, "advise", "--config", cfgPath); err == nil {
		t.Error("expected an error for a missing query")
	}
}

func TestCLIFlagsOnlyForwardChanged(t *testing.T) {
	g := &globalFlags{}
	root := newRootCmd()
	cmd, _, err := root.Find([]string{"serve"})
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.ParseFlags([]string{"--log-level", "debug"}); err != nil {
		t.Fatal(err)
	}

	f := g.cliFlags(cmd)
	if f.LogLevel == nil || f.Port != nil || f.NatsURL != nil {
		t.Errorf("cliFlags() = %+v, want only log level", f)
	}
}
