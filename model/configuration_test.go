package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigurationIsDisabled(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.DisabledRules["Q001"] = struct{}{}
	cfg.DisabledRules["prefer-immutable-binding"] = struct{}{}

	assert.True(t, cfg.IsDisabled("Q001", "unused-binding"))
	assert.True(t, cfg.IsDisabled("Q031", "prefer-immutable-binding"))
	assert.False(t, cfg.IsDisabled("Q004", "unreachable-code"))
}

func TestConfigurationSeverityFor(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.SeverityOverrides["S001"] = SeverityWarning

	assert.Equal(t, SeverityWarning, cfg.SeverityFor("S001", "sql-injection", SeverityError))
	assert.Equal(t, SeverityError, cfg.SeverityFor("S002", "xss", SeverityError))
}

func TestConfigurationCategoryEnabled(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.SecurityEnabled = false

	assert.True(t, cfg.CategoryEnabled(CategoryQuality))
	assert.False(t, cfg.CategoryEnabled(CategorySecurity))
}

func TestTierAtLeast(t *testing.T) {
	assert.True(t, TierEnterprise.AtLeast(TierPro))
	assert.False(t, TierFree.AtLeast(TierPro))
	assert.True(t, TierPro.AtLeast(TierPro))
}
