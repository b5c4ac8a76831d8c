package ruleset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kzn-tools/kaizen/model"
)

func writeRulePackFixture(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pack.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestLoadRulePack(t *testing.T) {
	path := writeRulePackFixture(t, `
version: "1"
severity:
  Q033: error
disabled:
  - Q030
taint:
  additional_sources:
    - "customReq.body"
  additional_sinks:
    - "customDb.exec(arg0)"
`)

	pack, err := LoadRulePack(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pack.Severity["Q033"] != "error" {
		t.Errorf("expected severity override for Q033, got %q", pack.Severity["Q033"])
	}
	if len(pack.Disabled) != 1 || pack.Disabled[0] != "Q030" {
		t.Errorf("unexpected disabled list: %v", pack.Disabled)
	}
	if len(pack.Taint.AdditionalSources) != 1 {
		t.Errorf("expected one additional source, got %v", pack.Taint.AdditionalSources)
	}
}

func TestLoadRulePackMissingFile(t *testing.T) {
	if _, err := LoadRulePack(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestRulePackApply(t *testing.T) {
	pack := &RulePack{
		Severity: map[string]string{"Q033": "error"},
		Disabled: []string{"Q030"},
	}
	pack.Taint.AdditionalSinks = []string{"customDb.exec(arg0)"}

	config := model.DefaultConfiguration()
	merged, err := pack.Apply(config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if merged.SeverityOverrides["Q033"] != model.SeverityError {
		t.Errorf("expected Q033 overridden to error, got %v", merged.SeverityOverrides["Q033"])
	}
	if !merged.IsDisabled("Q030", "") {
		t.Error("expected Q030 to be disabled")
	}
	if len(merged.AdditionalSinks) != 1 {
		t.Errorf("expected one additional sink, got %v", merged.AdditionalSinks)
	}
}

func TestRulePackApplyInvalidSeverity(t *testing.T) {
	pack := &RulePack{Severity: map[string]string{"Q033": "catastrophic"}}
	if _, err := pack.Apply(model.DefaultConfiguration()); err == nil {
		t.Error("expected an error for an invalid severity")
	}
}
