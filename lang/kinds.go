// Package lang names the fixed vocabulary of AST node kinds the engine
// depends on: module/script root, declarations, calls,
// member access, literals, the control structures, JSX, and imports.
// These strings match the tree-sitter-javascript / tree-sitter-typescript
// grammars package jsast parses with; every other core package (scope,
// cfg, dataflow, taint, patterns, rules) depends only on these constants,
// never on the grammar library itself.
package lang

const (
	Program = "program"

	VariableDeclaration = "variable_declaration" // var
	LexicalDeclaration  = "lexical_declaration"  // let / const
	VariableDeclarator  = "variable_declarator"

	FunctionDeclaration = "function_declaration"
	FunctionExpression  = "function_expression"
	GeneratorFunction    = "generator_function_declaration"
	ArrowFunction       = "arrow_function"
	MethodDefinition    = "method_definition"
	FormalParameters    = "formal_parameters"
	RestPattern         = "rest_pattern"
	AssignmentPattern   = "assignment_pattern"
	ArrayPattern        = "array_pattern"
	ObjectPattern       = "object_pattern"

	ClassDeclaration = "class_declaration"
	ClassExpression  = "class"
	ClassBody        = "class_body"

	CallExpression       = "call_expression"
	NewExpression        = "new_expression"
	Arguments            = "arguments"
	MemberExpression     = "member_expression"
	SubscriptExpression  = "subscript_expression"
	PropertyIdentifier   = "property_identifier"
	ComputedPropertyName = "computed_property_name"
	Identifier           = "identifier"
	ShorthandPropertyIdentifier = "shorthand_property_identifier"
	PrivatePropertyIdentifier   = "private_property_identifier"
	This  = "this"
	Super = "super"

	String           = "string"
	Number           = "number"
	True             = "true"
	False            = "false"
	Null             = "null"
	Regex            = "regex"
	TemplateString   = "template_string"
	TemplateSubstitution = "template_substitution"
	Array            = "array"
	Object           = "object"
	Pair             = "pair"
	SpreadElement    = "spread_element"

	BinaryExpression     = "binary_expression"
	TernaryExpression    = "ternary_expression"
	AssignmentExpression = "assignment_expression"
	AugmentedAssignmentExpression = "augmented_assignment_expression"
	UpdateExpression     = "update_expression"
	UnaryExpression      = "unary_expression"
	SequenceExpression   = "sequence_expression"
	ParenthesizedExpression = "parenthesized_expression"

	StatementBlock     = "statement_block"
	ExpressionStatement = "expression_statement"
	EmptyStatement     = "empty_statement"
	IfStatement        = "if_statement"
	ElseClause         = "else_clause"
	ForStatement       = "for_statement"
	ForInStatement     = "for_in_statement" // covers for..in and for..of (operator field "in"/"of")
	WhileStatement     = "while_statement"
	DoStatement        = "do_statement"
	SwitchStatement    = "switch_statement"
	SwitchCase         = "switch_case"
	SwitchDefault      = "switch_default"
	TryStatement       = "try_statement"
	CatchClause        = "catch_clause"
	FinallyClause      = "finally_clause"
	ThrowStatement     = "throw_statement"
	ReturnStatement    = "return_statement"
	BreakStatement     = "break_statement"
	ContinueStatement  = "continue_statement"
	LabeledStatement   = "labeled_statement"
	WithStatement      = "with_statement"

	ImportStatement   = "import_statement"
	ImportClause      = "import_clause"
	NamedImports      = "named_imports"
	ImportSpecifier   = "import_specifier"
	NamespaceImport   = "namespace_import"
	ExportStatement   = "export_statement"
	ExportClause      = "export_clause"
	ExportSpecifier   = "export_specifier"

	JsxElement           = "jsx_element"
	JsxSelfClosingElement = "jsx_self_closing_element"
	JsxOpeningElement    = "jsx_opening_element"
	JsxClosingElement    = "jsx_closing_element"
	JsxAttribute         = "jsx_attribute"
	JsxExpression        = "jsx_expression"
	JsxText              = "jsx_text"

	TypeAliasDeclaration = "type_alias_declaration"
	InterfaceDeclaration = "interface_declaration"
)

// Operator field / token values worth comparing against directly.
const (
	OpLogicalAnd    = "&&"
	OpLogicalOr     = "||"
	OpNullish       = "??"
	OpLooseEqual    = "=="
	OpLooseNotEqual = "!="
	OpStrictEqual   = "==="
	OpStrictNotEqual = "!=="
)

// IsLogicalOperator reports whether op is one of &&, ||, ??: the
// short-circuiting binary operators that both count as cyclomatic
// decision points and merge DFG definitions like a conditional branch.
func IsLogicalOperator(op string) bool {
	return op == OpLogicalAnd || op == OpLogicalOr || op == OpNullish
}

// IsFunctionLike reports whether kind introduces its own function scope
// for the purposes of scope-building, CFG construction, and DFG
// construction (arrow functions and methods included).
func IsFunctionLike(kind string) bool {
	switch kind {
	case FunctionDeclaration, FunctionExpression, ArrowFunction,
		GeneratorFunction, MethodDefinition:
		return true
	default:
		return false
	}
}
