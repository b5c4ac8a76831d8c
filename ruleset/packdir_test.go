package ruleset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kzn-tools/kaizen/model"
)

func writePackFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestApplyPackDirMergesAllPacks(t *testing.T) {
	dir := t.TempDir()
	writePackFile(t, dir, "10-severity.yaml", `
version: "1"
severity:
  Q032: warning
`)
	writePackFile(t, dir, "20-taint.yaml", `
version: "1"
disabled:
  - Q023
taint:
  additional_sinks:
    - render.html(arg0)
`)

	config, err := ApplyPackDir(dir, model.DefaultConfiguration())
	require.NoError(t, err)

	assert.Equal(t, model.SeverityWarning, config.SeverityOverrides["Q032"])
	assert.Contains(t, config.DisabledRules, "Q023")
	assert.Contains(t, config.AdditionalSinks, "render.html(arg0)")
}

func TestApplyPackDirLaterFileWins(t *testing.T) {
	dir := t.TempDir()
	writePackFile(t, dir, "10-base.yaml", "version: \"1\"\nseverity:\n  Q032: info\n")
	writePackFile(t, dir, "20-strict.yaml", "version: \"1\"\nseverity:\n  Q032: error\n")

	config, err := ApplyPackDir(dir, model.DefaultConfiguration())
	require.NoError(t, err)
	assert.Equal(t, model.SeverityError, config.SeverityOverrides["Q032"])
}

func TestApplyPackDirEmptyDirErrors(t *testing.T) {
	_, err := ApplyPackDir(t.TempDir(), model.DefaultConfiguration())
	assert.Error(t, err)
}

func TestApplyPackDirMissingDirErrors(t *testing.T) {
	_, err := ApplyPackDir(filepath.Join(t.TempDir(), "nope"), model.DefaultConfiguration())
	assert.Error(t, err)
}

func TestFindRuleConfig(t *testing.T) {
	dir := t.TempDir()
	writePackFile(t, dir, "severity.yaml", "version: \"1\"\nseverity:\n  Q032: warning\n")
	writePackFile(t, dir, "disabled.yaml", "version: \"1\"\ndisabled:\n  - S012\n")

	path, err := FindRuleConfig(dir, "Q032")
	require.NoError(t, err)
	assert.Equal(t, "severity.yaml", filepath.Base(path))

	path, err = FindRuleConfig(dir, "S012")
	require.NoError(t, err)
	assert.Equal(t, "disabled.yaml", filepath.Base(path))
}

func TestFindRuleConfigUnknownRule(t *testing.T) {
	dir := t.TempDir()
	writePackFile(t, dir, "severity.yaml", "version: \"1\"\nseverity:\n  Q032: warning\n")

	_, err := FindRuleConfig(dir, "Q999")
	assert.Error(t, err)
}

func TestFindRuleConfigRejectsBadID(t *testing.T) {
	_, err := FindRuleConfig(t.TempDir(), "unused-binding")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid rule ID format")
}
