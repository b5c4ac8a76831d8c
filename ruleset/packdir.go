package ruleset

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kzn-tools/kaizen/model"
)

// ApplyPackDir loads every YAML rule pack under dir (lexical order, so
// repeated keys resolve deterministically: later files win) and applies
// each to config. This is how a downloaded pack's contents reach the
// engine: the extracted directory is just a set of RulePack files.
func ApplyPackDir(dir string, config model.Configuration) (model.Configuration, error) {
	files, err := packFiles(dir)
	if err != nil {
		return config, err
	}
	if len(files) == 0 {
		return config, fmt.Errorf("no rule pack files in %s", dir)
	}

	for _, path := range files {
		pack, err := LoadRulePack(path)
		if err != nil {
			return config, err
		}
		config, err = pack.Apply(config)
		if err != nil {
			return config, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return config, nil
}

// FindRuleConfig returns the pack file under dir that configures
// ruleID, so `kaizen` can report which downloaded pack a severity
// preset came from. Files are scanned in lexical order; the last match
// wins, mirroring ApplyPackDir's merge order.
func FindRuleConfig(dir, ruleID string) (string, error) {
	if !IsRuleID(ruleID) {
		return "", fmt.Errorf("invalid rule ID format: %s (expected format like Q010 or S001)", ruleID)
	}

	files, err := packFiles(dir)
	if err != nil {
		return "", err
	}

	var found string
	for _, path := range files {
		ok, err := fileConfiguresRule(path, ruleID)
		if err != nil {
			continue
		}
		if ok {
			found = path
		}
	}

	if found == "" {
		return "", fmt.Errorf("rule %s not configured by any pack in %s", ruleID, dir)
	}
	return found, nil
}

// packFiles lists dir's YAML files recursively, sorted.
func packFiles(dir string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("pack directory not found: %s", dir)
	}

	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error listing pack files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// fileConfiguresRule reports whether the pack file mentions ruleID as a
// severity key ("Q010:") or a disabled-list entry ("- Q010").
func fileConfiguresRule(path, ruleID string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, ruleID+":") || line == "- "+ruleID {
			return true, nil
		}
	}
	return false, scanner.Err()
}
