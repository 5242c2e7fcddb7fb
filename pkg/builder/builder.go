// Package builder converts parsed Python ASTs into structural test models.
package builder

import (
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/mmocchi/pytestee/pkg/models"
	"github.com/mmocchi/pytestee/pkg/parser"
)

// ErrParseFailure indicates a file could not be traversed into a test model.
var ErrParseFailure = errors.New("parse failure")

// Builder extracts test functions and classes from a parse result.
type Builder struct {
	assertHelpers []string
}

// Option is a functional option for configuring Builder.
type Option func(*Builder)

// WithAssertHelpers adds call names treated as assertion equivalents,
// in addition to the built-in assert_* and unittest-style helpers.
func WithAssertHelpers(helpers []string) Option {
	return func(b *Builder) {
		b.assertHelpers = append(b.assertHelpers, helpers...)
	}
}

// New creates a builder with default options.
func New(opts ...Option) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build walks the AST and produces the structural model for one file.
// Returns an ErrParseFailure-wrapped error when the tree is unusable.
func (b *Builder) Build(result *parser.ParseResult) (*models.TestFile, error) {
	if result == nil || result.Tree == nil {
		return nil, fmt.Errorf("%w: no syntax tree", ErrParseFailure)
	}

	root := result.Tree.RootNode()
	if root == nil || root.Type() != "module" {
		return nil, fmt.Errorf("%w: unexpected root node", ErrParseFailure)
	}

	tf := &models.TestFile{Path: result.Path}

	for i := range int(root.NamedChildCount()) {
		child := root.NamedChild(i)
		def, decorators := unwrapDecorated(child, result.Source)
		if def == nil {
			continue
		}

		switch def.Type() {
		case "function_definition":
			name := parser.GetNodeText(def.ChildByFieldName("name"), result.Source)
			if !isTestFunction(name, decorators) {
				continue
			}
			fn := b.buildFunction(def, child, decorators, result.Source)
			tf.Functions = append(tf.Functions, fn)
		case "class_definition":
			name := parser.GetNodeText(def.ChildByFieldName("name"), result.Source)
			if !strings.HasPrefix(name, "Test") {
				continue
			}
			cls := b.buildClass(def, name, result.Source)
			tf.Classes = append(tf.Classes, cls)
		}
	}

	return tf, nil
}

// unwrapDecorated returns the inner definition and its decorator texts.
// Plain definitions are returned as-is with no decorators.
func unwrapDecorated(node *sitter.Node, source []byte) (*sitter.Node, []string) {
	if node == nil {
		return nil, nil
	}
	if node.Type() != "decorated_definition" {
		if node.Type() == "function_definition" || node.Type() == "class_definition" {
			return node, nil
		}
		return nil, nil
	}

	var decorators []string
	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		if child.Type() == "decorator" {
			decorators = append(decorators, strings.TrimPrefix(parser.GetNodeText(child, source), "@"))
		}
	}
	return node.ChildByFieldName("definition"), decorators
}

// isTestFunction applies pytest collection conventions: a test_ name
// prefix, or any pytest.mark decorator.
func isTestFunction(name string, decorators []string) bool {
	if strings.HasPrefix(name, "test_") {
		return true
	}
	for _, d := range decorators {
		if strings.HasPrefix(d, "pytest.mark") {
			return true
		}
	}
	return false
}

// buildClass extracts a test class and its methods.
func (b *Builder) buildClass(def *sitter.Node, name string, source []byte) models.TestClass {
	cls := models.TestClass{
		Name:      name,
		StartLine: parser.StartLine(def),
		EndLine:   parser.EndLine(def),
	}

	body := def.ChildByFieldName("body")
	if body == nil {
		return cls
	}

	for i := range int(body.NamedChildCount()) {
		child := body.NamedChild(i)

		// Class-level assignments are shared mutable state.
		if child.Type() == "expression_statement" && child.NamedChildCount() > 0 {
			if inner := child.NamedChild(0); inner.Type() == "assignment" {
				cls.HasClassVars = true
				cls.ClassVarLines = append(cls.ClassVarLines, parser.StartLine(child))
			}
			continue
		}

		inner, decorators := unwrapDecorated(child, source)
		if inner == nil || inner.Type() != "function_definition" {
			continue
		}
		fnName := parser.GetNodeText(inner.ChildByFieldName("name"), source)
		if !isTestFunction(fnName, decorators) {
			continue
		}
		fn := b.buildFunction(inner, child, decorators, source)
		fn.Class = name
		cls.Functions = append(cls.Functions, fn)
	}

	return cls
}

// buildFunction extracts the structural model of one test function.
// outer is the decorated_definition when decorators are present; literal
// collection covers it so parametrize inputs are included.
func (b *Builder) buildFunction(def, outer *sitter.Node, decorators []string, source []byte) models.TestFunction {
	fn := models.TestFunction{
		Name:       parser.GetNodeText(def.ChildByFieldName("name"), source),
		StartLine:  parser.StartLine(def),
		EndLine:    parser.EndLine(def),
		Decorators: decorators,
	}

	body := def.ChildByFieldName("body")
	if body != nil {
		for i := range int(body.NamedChildCount()) {
			stmt := body.NamedChild(i)
			if stmt.Type() == "comment" {
				continue
			}

			// A leading string expression is the docstring, not a statement.
			if i == 0 && stmt.Type() == "expression_statement" && stmt.NamedChildCount() > 0 &&
				stmt.NamedChild(0).Type() == "string" {
				fn.Docstring = unquoteString(parser.GetNodeText(stmt.NamedChild(0), source))
				continue
			}

			fn.Statements = append(fn.Statements, b.classifyStatement(stmt, source))
		}
		fn.BlankLines = blankLines(source, parser.StartLine(body), parser.EndLine(body))
	}

	collectComments(&fn, def, source)
	collectAccesses(&fn, def, source)
	collectCalls(&fn, def, source)
	collectLiterals(&fn, outer, source)

	for _, s := range fn.Statements {
		if s.Kind == models.StmtOther && (strings.HasPrefix(s.Text, "global ") || strings.HasPrefix(s.Text, "nonlocal ")) {
			fn.UsesGlobal = true
		}
	}

	return fn
}

// blankLines returns the 1-based line numbers of blank source lines in
// the [start, end] range.
func blankLines(source []byte, start, end int) []int {
	lines := strings.Split(string(source), "\n")
	var blanks []int
	for n := start; n <= end && n <= len(lines); n++ {
		if strings.TrimSpace(lines[n-1]) == "" {
			blanks = append(blanks, n)
		}
	}
	return blanks
}

func collectComments(fn *models.TestFunction, def *sitter.Node, source []byte) {
	for _, node := range parser.FindNodesByType(def, source, "comment") {
		fn.Comments = append(fn.Comments, models.Comment{
			Line: parser.StartLine(node),
			Text: parser.GetNodeText(node, source),
		})
	}
}

func collectAccesses(fn *models.TestFunction, def *sitter.Node, source []byte) {
	for _, node := range parser.FindNodesByType(def, source, "attribute") {
		fn.Accesses = append(fn.Accesses, models.Access{
			Object: parser.GetNodeText(node.ChildByFieldName("object"), source),
			Attr:   parser.GetNodeText(node.ChildByFieldName("attribute"), source),
			Line:   parser.StartLine(node),
		})
	}
}

func collectCalls(fn *models.TestFunction, def *sitter.Node, source []byte) {
	for _, node := range parser.FindNodesByType(def, source, "call") {
		fn.Calls = append(fn.Calls, parser.GetNodeText(node.ChildByFieldName("function"), source))
	}
}
