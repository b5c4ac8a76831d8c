// Security rule implementations. The five taint-category rules are
// thin consumers of the shared taint.Finding list artifacts already
// carries; hardcoded-secret, weak-hash, and insecure-randomness are
// syntactic matches over JS/TS call and literal shapes.
package rules

import (
	"math"
	"strings"

	"github.com/kzn-tools/kaizen/lang"
	"github.com/kzn-tools/kaizen/model"
	"github.com/kzn-tools/kaizen/patterns"
	"github.com/kzn-tools/kaizen/ruleengine"
)

// --- taint-category rules: sql-injection, xss, command-injection,
// code-injection, path-traversal ---

// NewSQLInjection reports tainted data reaching a SQL query sink (S001).
func NewSQLInjection() ruleengine.Rule {
	return newTaintRuleOverDFG("S001", "sql-injection", patterns.CategorySqlInjection,
		"Flags untrusted input reaching a database query without sanitization.")
}

// NewXSS reports tainted data reaching an HTML/DOM sink (S002).
func NewXSS() ruleengine.Rule {
	return newTaintRuleOverDFG("S002", "xss", patterns.CategoryXss,
		"Flags untrusted input reaching innerHTML/document.write/dangerouslySetInnerHTML without escaping.")
}

// NewCommandInjection reports tainted data reaching a shell/process sink (S003).
func NewCommandInjection() ruleengine.Rule {
	return newTaintRuleOverDFG("S003", "command-injection", patterns.CategoryCommandInjection,
		"Flags untrusted input reaching child_process.exec/spawn without sanitization.")
}

// NewCodeInjection reports tainted data reaching eval/Function (S004).
func NewCodeInjection() ruleengine.Rule {
	return newTaintRuleOverDFG("S004", "code-injection", patterns.CategoryCodeInjection,
		"Flags untrusted input reaching eval/Function/setTimeout(string) without sanitization.")
}

// NewPathTraversal reports tainted data reaching a filesystem path sink (S005).
func NewPathTraversal() ruleengine.Rule {
	return newTaintRuleOverDFG("S005", "path-traversal", patterns.CategoryPathTraversal,
		"Flags untrusted input reaching a filesystem path argument without normalization.")
}

// newTaintRuleOverDFG is the real implementation backing the five
// taint-category constructors above; it is kept separate from
// newTaintRule so the dataflow.Graph accessor methods it needs
// (RangeOf, a node-by-ID lookup) are referenced through the concrete
// *dataflow.Graph type rather than an ad hoc interface.
func newTaintRuleOverDFG(id, name string, category patterns.Category, description string) ruleengine.Rule {
	return newRule(model.RuleMetadata{
		ID: id, DisplayName: name, Category: model.CategorySecurity,
		DefaultSeverity: model.SeverityError, DefaultConfidence: model.ConfidenceHigh,
		MinTier:     model.TierPro,
		Description: description,
	}, func(file model.ParsedFile, artifacts *ruleengine.Artifacts, config model.Configuration) ([]model.Diagnostic, error) {
		if artifacts.DFG == nil {
			return nil, nil
		}
		g := artifacts.DFG
		var out []model.Diagnostic
		for _, f := range artifacts.Taint {
			if f.Category != category {
				continue
			}
			if f.SinkID < 0 || f.SinkID >= len(g.Nodes) {
				continue
			}
			sinkNode := g.Nodes[f.SinkID]
			sinkRange := g.RangeOf(sinkNode)
			var related []model.RelatedLocation
			if f.SourceID >= 0 && f.SourceID < len(g.Nodes) {
				related = []model.RelatedLocation{{
					File:  file.Filename(),
					Range: g.RangeOf(g.Nodes[f.SourceID]),
					Label: "taint source",
				}}
			}
			target := sinkNode.Path
			if target == "" {
				target = "sink"
			}
			out = append(out, model.Diagnostic{
				RuleID: id, RuleName: name, Category: model.CategorySecurity,
				Severity: model.SeverityError, Confidence: f.Confidence,
				Message:    "untrusted data reaches '" + target + "' without sanitization (" + string(category) + ")",
				Suggestion: "sanitize or validate the value before it reaches this sink",
				File:       file.Filename(), Range: sinkRange,
				Related: related,
			})
		}
		sortDiagnostics(out)
		return out, nil
	})
}

// --- S010: hardcoded-secret ---

// credentialPrefixes matches common cloud/provider credential shapes by
// literal prefix.
var credentialPrefixes = []string{
	"AKIA", "ASIA", // AWS access key IDs
	"ghp_", "gho_", "ghu_", "ghs_", "ghr_", // GitHub tokens
	"sk-", "sk_live_", "sk_test_", // Stripe / OpenAI-shaped secret keys
	"xox", // Slack tokens
	"AIza", // Google API keys
}

var exemptPrefixes = []string{"EXAMPLE_", "test_", "FAKE_"}

var secretNameHints = []string{"password", "secret", "token", "key", "credential", "api_key"}

func isExemptSecret(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range exemptPrefixes {
		if strings.HasPrefix(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func looksLikeCredentialLiteral(s string) bool {
	for _, p := range credentialPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	if strings.HasPrefix(s, "-----BEGIN") && strings.Contains(s, "PRIVATE KEY") {
		return true
	}
	// JWT shape: three base64url segments separated by dots.
	if parts := strings.Split(s, "."); len(parts) == 3 && strings.HasPrefix(s, "eyJ") {
		return true
	}
	return false
}

// shannonEntropyBitsPerChar computes the Shannon entropy of s in bits
// per character. The rule fires at 4.0 bits/char over a window of at
// least 20 characters.
func shannonEntropyBitsPerChar(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	counts := make(map[rune]int)
	for _, r := range s {
		counts[r]++
	}
	n := float64(len(s))
	var entropy float64
	for _, c := range counts {
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}

const secretEntropyThreshold = 4.0
const secretMinWindow = 20

func assignedNameContainsHint(declarator model.Node) (string, bool) {
	name := declarator.ChildByFieldName("name")
	if name == nil || name.Kind() != lang.Identifier {
		return "", false
	}
	lower := strings.ToLower(name.Text())
	for _, hint := range secretNameHints {
		if strings.Contains(lower, hint) {
			return name.Text(), true
		}
	}
	return "", false
}

func unquoteStringLiteral(n model.Node) (string, bool) {
	if n.Kind() != lang.String {
		return "", false
	}
	text := n.Text()
	if len(text) < 2 {
		return "", false
	}
	return text[1 : len(text)-1], true
}

// NewHardcodedSecret flags string literals assigned to credential-named
// bindings that look like a real secret: a recognized credential-prefix
// shape, a PEM header, a JWT shape, or high-entropy text.
func NewHardcodedSecret() ruleengine.Rule {
	return newRule(model.RuleMetadata{
		ID: "S010", DisplayName: "hardcoded-secret", Category: model.CategorySecurity,
		DefaultSeverity: model.SeverityError, DefaultConfidence: model.ConfidenceHigh,
		Description: "Flags string literals assigned to credential-named bindings that look like real secrets.",
	}, func(file model.ParsedFile, artifacts *ruleengine.Artifacts, config model.Configuration) ([]model.Diagnostic, error) {
		var out []model.Diagnostic
		walk(file.Root(), func(n model.Node) {
			if n.Kind() != lang.VariableDeclarator {
				return
			}
			value := n.ChildByFieldName("value")
			if value == nil {
				return
			}
			literal, ok := unquoteStringLiteral(value)
			if !ok || literal == "" {
				return
			}
			if isExemptSecret(literal) {
				return
			}
			name, hasHint := assignedNameContainsHint(n)
			exact := looksLikeCredentialLiteral(literal)
			highEntropy := hasHint && len(literal) >= secretMinWindow && shannonEntropyBitsPerChar(literal) >= secretEntropyThreshold
			if !exact && !highEntropy {
				return
			}
			conf := model.ConfidenceHigh
			if !exact {
				conf = model.ConfidenceMedium
			}
			msg := "string literal looks like a hardcoded secret"
			if name != "" {
				msg = "'" + name + "' is assigned a string literal that looks like a hardcoded secret"
			}
			out = append(out, model.Diagnostic{
				RuleID: "S010", RuleName: "hardcoded-secret", Category: model.CategorySecurity,
				Severity: model.SeverityError, Confidence: conf,
				Message:    msg,
				Suggestion: "load this value from environment variables or a secret manager instead",
				File:       file.Filename(), Range: rangeOf(file, value),
			})
		})
		sortDiagnostics(out)
		return out, nil
	})
}

// --- S011: weak-hash ---

var weakHashAlgorithms = map[string]bool{"md5": true, "sha1": true}

// NewWeakHash flags hash-construction calls whose algorithm argument is
// a string literal naming a broken digest.
func NewWeakHash() ruleengine.Rule {
	return newRule(model.RuleMetadata{
		ID: "S011", DisplayName: "weak-hash", Category: model.CategorySecurity,
		DefaultSeverity: model.SeverityWarning, DefaultConfidence: model.ConfidenceHigh,
		Description: "Flags crypto.createHash-style calls using md5 or sha1.",
	}, func(file model.ParsedFile, artifacts *ruleengine.Artifacts, config model.Configuration) ([]model.Diagnostic, error) {
		var out []model.Diagnostic
		walk(file.Root(), func(n model.Node) {
			if n.Kind() != lang.CallExpression {
				return
			}
			callee := n.ChildByFieldName("function")
			path, ok := calleePath(callee)
			if !ok || !strings.HasSuffix(path, "createHash") {
				return
			}
			args := n.ChildByFieldName("arguments")
			if args == nil || args.ChildCount() == 0 {
				return
			}
			first := firstArgument(args)
			if first == nil {
				return
			}
			algo, isLiteral := unquoteStringLiteral(first)
			if !isLiteral {
				return
			}
			if !weakHashAlgorithms[strings.ToLower(algo)] {
				return
			}
			out = append(out, model.Diagnostic{
				RuleID: "S011", RuleName: "weak-hash", Category: model.CategorySecurity,
				Severity: model.SeverityWarning, Confidence: model.ConfidenceHigh,
				Message:    "'" + algo + "' is a broken hash algorithm for security-sensitive use",
				Suggestion: "use sha256 or a dedicated password-hashing function",
				File:       file.Filename(), Range: rangeOf(file, n),
			})
		})
		sortDiagnostics(out)
		return out, nil
	})
}

func firstArgument(args model.Node) model.Node {
	for _, c := range args.NamedChildren() {
		return c
	}
	return nil
}

// --- S012: insecure-randomness ---

var randomnessNameHints = []string{"token", "secret", "password", "session", "otp", "nonce", "key"}

// NewInsecureRandomness flags Math.random() calls inside a lexical
// region (the nearest enclosing binding or function name) that suggests
// security-sensitive use.
func NewInsecureRandomness() ruleengine.Rule {
	return newRule(model.RuleMetadata{
		ID: "S012", DisplayName: "insecure-randomness", Category: model.CategorySecurity,
		DefaultSeverity: model.SeverityWarning, DefaultConfidence: model.ConfidenceMedium,
		Description: "Flags Math.random() used to generate tokens, secrets, or session identifiers.",
	}, func(file model.ParsedFile, artifacts *ruleengine.Artifacts, config model.Configuration) ([]model.Diagnostic, error) {
		var out []model.Diagnostic
		var ancestors []model.Node
		var visit func(n model.Node)
		visit = func(n model.Node) {
			if n == nil {
				return
			}
			pushed := false
			if nameHintKind(n.Kind()) {
				ancestors = append(ancestors, n)
				pushed = true
			}
			if n.Kind() == lang.CallExpression {
				if callee := n.ChildByFieldName("function"); callee != nil {
					if path, ok := calleePath(callee); ok && path == "Math.random" {
						if nearestNameHints(ancestors) {
							out = append(out, model.Diagnostic{
								RuleID: "S012", RuleName: "insecure-randomness", Category: model.CategorySecurity,
								Severity: model.SeverityWarning, Confidence: model.ConfidenceMedium,
								Message:    "Math.random() is not cryptographically secure; avoid it for tokens/secrets/session IDs",
								Suggestion: "use crypto.randomBytes or crypto.randomUUID instead",
								File:       file.Filename(), Range: rangeOf(file, n),
							})
						}
					}
				}
			}
			for _, c := range n.NamedChildren() {
				visit(c)
			}
			if pushed {
				ancestors = ancestors[:len(ancestors)-1]
			}
		}
		visit(file.Root())
		sortDiagnostics(out)
		return out, nil
	})
}

func nameHintKind(kind string) bool {
	switch kind {
	case lang.VariableDeclarator, lang.FunctionDeclaration, lang.FunctionExpression,
		lang.MethodDefinition:
		return true
	default:
		return false
	}
}

func nearestNameHints(ancestors []model.Node) bool {
	for i := len(ancestors) - 1; i >= 0; i-- {
		nameNode := ancestors[i].ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		lower := strings.ToLower(nameNode.Text())
		for _, hint := range randomnessNameHints {
			if strings.Contains(lower, hint) {
				return true
			}
		}
	}
	return false
}
