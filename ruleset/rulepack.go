package ruleset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kzn-tools/kaizen/model"
)

// RulePack is a locally-loaded YAML bundle of engine configuration
// additions: extra taint patterns, severity presets, and disabled-rule
// lists. The same file shape is what a downloaded pack's zip contains.
//
//nolint:tagliatelle // YAML keys mirror the CLI's dotted option names.
type RulePack struct {
	Version  string            `yaml:"version"`
	Severity map[string]string `yaml:"severity"`
	Disabled []string          `yaml:"disabled"`
	Taint    struct {
		AdditionalSources    []string `yaml:"additional_sources"`
		AdditionalSinks      []string `yaml:"additional_sinks"`
		AdditionalSanitizers []string `yaml:"additional_sanitizers"`
	} `yaml:"taint"`
}

// LoadRulePack reads and parses a YAML rule pack from disk. Unlike the
// remote Manifest/Downloader pair, a rule pack is applied directly to a
// model.Configuration; it never touches the network.
func LoadRulePack(path string) (*RulePack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule pack %s: %w", path, err)
	}

	var pack RulePack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("failed to parse rule pack %s: %w", path, err)
	}
	return &pack, nil
}

// Apply merges the rule pack's severity presets, disabled-rule list, and
// additional taint patterns into config, returning the updated value
// (model.Configuration is a value type; callers hold the merged result).
func (p *RulePack) Apply(config model.Configuration) (model.Configuration, error) {
	for name, raw := range p.Severity {
		sev, ok := model.ParseSeverity(raw)
		if !ok {
			return config, fmt.Errorf("rule pack: invalid severity %q for %q", raw, name)
		}
		config.SeverityOverrides[name] = sev
	}
	for _, name := range p.Disabled {
		config.DisabledRules[name] = struct{}{}
	}
	config.AdditionalSources = append(config.AdditionalSources, p.Taint.AdditionalSources...)
	config.AdditionalSinks = append(config.AdditionalSinks, p.Taint.AdditionalSinks...)
	config.AdditionalSanitizers = append(config.AdditionalSanitizers, p.Taint.AdditionalSanitizers...)
	return config, nil
}
