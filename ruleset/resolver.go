package ruleset

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule identifiers are a category letter (Q for quality, S for
// security) followed by three digits: Q010, S001.
var ruleIDPattern = regexp.MustCompile(`^[QS]\d{3}$`)

// ParseSpec parses "node/express-hardening" into a PackSpec.
func ParseSpec(spec string) (*PackSpec, error) {
	parts := strings.Split(spec, "/")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid pack spec: %s (expected format: channel/name)", spec)
	}

	return &PackSpec{
		Channel: parts[0],
		Name:    parts[1],
	}, nil
}

// IsRuleID reports whether s looks like a rule identifier (Q010, S001).
func IsRuleID(s string) bool {
	return ruleIDPattern.MatchString(s)
}

// Validate checks that both spec components are present.
func (s *PackSpec) Validate() error {
	if s.Channel == "" {
		return fmt.Errorf("channel cannot be empty")
	}
	if s.Name == "" {
		return fmt.Errorf("pack name cannot be empty")
	}
	return nil
}

// String returns the spec as "channel/name".
func (s *PackSpec) String() string {
	return fmt.Sprintf("%s/%s", s.Channel, s.Name)
}
