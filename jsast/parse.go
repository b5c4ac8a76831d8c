// Package jsast is the tree-sitter-backed implementation of
// model.ParsedFile/model.Node.
// It is reference tooling for driving and testing the engine; the core
// packages (scope, cfg, dataflow, taint, rules, engine) depend only on
// the model interfaces, never on this package or on go-tree-sitter.
//
// One sitter.NewParser() per parse, SetLanguage per file kind, then
// ParseCtx against the raw source bytes.
package jsast

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/kzn-tools/kaizen/model"
)

// LanguageFor infers a LanguageMode from a filename's extension.
func LanguageFor(filename string) model.LanguageMode {
	switch {
	case strings.HasSuffix(filename, ".tsx"):
		return model.LanguageTSX
	case strings.HasSuffix(filename, ".ts"):
		return model.LanguageTypeScript
	case strings.HasSuffix(filename, ".jsx"):
		return model.LanguageJSX
	case strings.HasSuffix(filename, ".cjs"):
		return model.LanguageCommonJS
	default:
		return model.LanguageJavaScript
	}
}

func grammarFor(lang model.LanguageMode) *sitter.Language {
	switch lang {
	case model.LanguageTypeScript:
		return typescript.GetLanguage()
	case model.LanguageTSX:
		return tsx.GetLanguage()
	default:
		// tree-sitter-javascript parses both plain JS and JSX.
		return javascript.GetLanguage()
	}
}

// Parse parses source under the language inferred from filename's
// extension and returns a *File implementing model.ParsedFile. Callers
// should defer (*File).Close to release the tree-sitter tree.
func Parse(filename string, source []byte) (*File, error) {
	return ParseAs(filename, source, LanguageFor(filename))
}

// ParseAs parses source under an explicitly chosen language, bypassing
// extension sniffing (e.g. for in-memory snippets with no filename).
func ParseAs(filename string, source []byte, lang model.LanguageMode) (*File, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammarFor(lang))

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("jsast: parse %s: %w", filename, err)
	}
	return newFile(filename, lang, source, tree), nil
}
