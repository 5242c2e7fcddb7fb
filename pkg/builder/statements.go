package builder

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/mmocchi/pytestee/pkg/models"
	"github.com/mmocchi/pytestee/pkg/parser"
)

// classifyStatement tags a top-level body statement with its kind.
func (b *Builder) classifyStatement(stmt *sitter.Node, source []byte) models.Statement {
	s := models.Statement{
		Line:    parser.StartLine(stmt),
		EndLine: parser.EndLine(stmt),
		Text:    firstLine(parser.GetNodeText(stmt, source)),
	}

	switch stmt.Type() {
	case "assert_statement":
		s.Kind = models.StmtAssert
	case "return_statement":
		s.Kind = models.StmtReturn
	case "expression_statement":
		s.Kind = models.StmtOther
		if inner := stmt.NamedChild(0); inner != nil {
			switch inner.Type() {
			case "assignment", "augmented_assignment":
				s.Kind = models.StmtAssign
			case "call":
				s.Callee = parser.GetNodeText(inner.ChildByFieldName("function"), source)
				if b.isAssertHelper(s.Callee) {
					s.Kind = models.StmtAssert
				} else {
					s.Kind = models.StmtCall
				}
			case "await":
				if calls := parser.FindNodesByType(inner, source, "call"); len(calls) > 0 {
					s.Callee = parser.GetNodeText(calls[0].ChildByFieldName("function"), source)
					if b.isAssertHelper(s.Callee) {
						s.Kind = models.StmtAssert
					} else {
						s.Kind = models.StmtCall
					}
				}
			}
		}
	case "with_statement":
		// pytest.raises / pytest.warns blocks assert expected behavior.
		if text := parser.GetNodeText(stmt, source); strings.Contains(text, "pytest.raises") ||
			strings.Contains(text, "pytest.warns") {
			s.Kind = models.StmtAssert
		} else {
			s.Kind = models.StmtControl
		}
	case "if_statement", "for_statement", "while_statement", "try_statement", "match_statement":
		s.Kind = models.StmtControl
	case "function_definition", "decorated_definition", "class_definition":
		s.Kind = models.StmtOther
	default:
		s.Kind = models.StmtOther
	}

	return s
}

// isAssertHelper reports whether a callee name is an assertion equivalent:
// assert_* helpers, unittest self.assert* methods, or configured names.
func (b *Builder) isAssertHelper(callee string) bool {
	if callee == "" {
		return false
	}
	base := callee
	if idx := strings.LastIndex(callee, "."); idx >= 0 {
		base = callee[idx+1:]
	}
	lower := strings.ToLower(base)
	if strings.HasPrefix(lower, "assert") || lower == "fail" && strings.HasPrefix(callee, "pytest.") {
		return true
	}
	for _, h := range b.assertHelpers {
		if callee == h || base == h {
			return true
		}
	}
	return false
}

// collectLiterals gathers literal values from the function subtree,
// including parametrize decorator arguments on the outer node.
func collectLiterals(fn *models.TestFunction, outer *sitter.Node, source []byte) {
	parser.Walk(outer, source, func(node *sitter.Node, source []byte) bool {
		lit, ok := literalFromNode(node, source)
		if ok {
			fn.Literals = append(fn.Literals, lit)
			// Containers are recorded once; their elements are still
			// visited so inner scalars count too.
		}
		return true
	})
}

// literalFromNode converts a literal AST node into a model literal.
func literalFromNode(node *sitter.Node, source []byte) (models.Literal, bool) {
	lit := models.Literal{
		Line: parser.StartLine(node),
		Raw:  parser.GetNodeText(node, source),
	}

	switch node.Type() {
	case "integer", "float":
		num, err := strconv.ParseFloat(strings.ReplaceAll(lit.Raw, "_", ""), 64)
		if err != nil {
			return lit, false
		}
		if neg := node.Parent(); neg != nil && neg.Type() == "unary_operator" &&
			strings.HasPrefix(parser.GetNodeText(neg, source), "-") {
			num = -num
			lit.Raw = "-" + lit.Raw
		}
		lit.Kind = models.LiteralNumber
		lit.Num = num
		return lit, true
	case "string":
		lit.Kind = models.LiteralString
		lit.Str = unquoteString(lit.Raw)
		lit.Size = len([]rune(lit.Str))
		return lit, true
	case "none":
		lit.Kind = models.LiteralNone
		return lit, true
	case "true", "false":
		lit.Kind = models.LiteralBool
		return lit, true
	case "list", "tuple", "set":
		lit.Kind = models.LiteralCollection
		lit.Size = int(node.NamedChildCount())
		return lit, true
	case "dictionary":
		lit.Kind = models.LiteralCollection
		size := 0
		for i := range int(node.NamedChildCount()) {
			if node.NamedChild(i).Type() == "pair" {
				size++
			}
		}
		lit.Size = size
		return lit, true
	default:
		return lit, false
	}
}

// unquoteString strips Python string prefixes and quote delimiters.
func unquoteString(raw string) string {
	s := raw
	for len(s) > 0 {
		c := s[0] | 0x20 // lowercase
		if c == 'r' || c == 'b' || c == 'f' || c == 'u' {
			s = s[1:]
			continue
		}
		break
	}
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}

// firstLine truncates multi-line statement text to its first line.
func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
