package models

import "sort"

// StatementKind classifies a top-level statement in a test function body.
type StatementKind string

const (
	StmtAssign  StatementKind = "assign"
	StmtCall    StatementKind = "call"
	StmtAssert  StatementKind = "assert"
	StmtControl StatementKind = "control"
	StmtReturn  StatementKind = "return"
	StmtOther   StatementKind = "other"
)

// Statement is a single kind-tagged statement in source order.
type Statement struct {
	Kind    StatementKind `json:"kind"`
	Line    int           `json:"line"`
	EndLine int           `json:"end_line"`
	Text    string        `json:"text"`
	Callee  string        `json:"callee,omitempty"` // for call statements
}

// Comment is a source comment attached to a test function.
type Comment struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Access records an attribute access like obj.attr.
type Access struct {
	Object string `json:"object"`
	Attr   string `json:"attr"`
	Line   int    `json:"line"`
}

// LiteralKind classifies literal values observed in a test function.
type LiteralKind string

const (
	LiteralNumber     LiteralKind = "number"
	LiteralString     LiteralKind = "string"
	LiteralCollection LiteralKind = "collection"
	LiteralNone       LiteralKind = "none"
	LiteralBool       LiteralKind = "bool"
)

// Literal is a literal value with enough detail for edge-case classification.
type Literal struct {
	Kind LiteralKind `json:"kind"`
	Line int         `json:"line"`
	Raw  string      `json:"raw"`
	Num  float64     `json:"num,omitempty"`  // numbers
	Str  string      `json:"str,omitempty"`  // strings, unquoted
	Size int         `json:"size,omitempty"` // collection element count
}

// TestFunction is the structural model of a single test function.
type TestFunction struct {
	Name       string      `json:"name"`
	Class      string      `json:"class,omitempty"`
	StartLine  int         `json:"start_line"`
	EndLine    int         `json:"end_line"`
	Docstring  string      `json:"docstring,omitempty"`
	Decorators []string    `json:"decorators,omitempty"`
	Statements []Statement `json:"statements"`
	Comments   []Comment   `json:"comments,omitempty"`
	BlankLines []int       `json:"blank_lines,omitempty"`
	Accesses   []Access    `json:"accesses,omitempty"`
	Calls      []string    `json:"calls,omitempty"`
	Literals   []Literal   `json:"literals,omitempty"`
	UsesGlobal bool        `json:"uses_global,omitempty"`
}

// AssertCount returns the number of assert-kind statements.
func (f *TestFunction) AssertCount() int {
	n := 0
	for _, s := range f.Statements {
		if s.Kind == StmtAssert {
			n++
		}
	}
	return n
}

// TestClass groups test functions declared inside a Test* class.
type TestClass struct {
	Name          string         `json:"name"`
	StartLine     int            `json:"start_line"`
	EndLine       int            `json:"end_line"`
	HasClassVars  bool           `json:"has_class_vars,omitempty"`
	ClassVarLines []int          `json:"class_var_lines,omitempty"`
	Functions     []TestFunction `json:"functions"`
}

// TestFile is the structural model of one parsed test file.
type TestFile struct {
	Path      string         `json:"path"`
	Classes   []TestClass    `json:"classes,omitempty"`
	Functions []TestFunction `json:"functions,omitempty"` // module-level tests
}

// FunctionRef pairs a test function with its enclosing class, if any.
type FunctionRef struct {
	Function *TestFunction
	Class    *TestClass
}

// AllFunctions returns every test function in the file ordered by start line.
func (tf *TestFile) AllFunctions() []FunctionRef {
	refs := make([]FunctionRef, 0, len(tf.Functions))
	for i := range tf.Functions {
		refs = append(refs, FunctionRef{Function: &tf.Functions[i]})
	}
	for i := range tf.Classes {
		cls := &tf.Classes[i]
		for j := range cls.Functions {
			refs = append(refs, FunctionRef{Function: &cls.Functions[j], Class: cls})
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].Function.StartLine < refs[j].Function.StartLine
	})
	return refs
}

// TestCount returns the total number of test functions in the file.
func (tf *TestFile) TestCount() int {
	n := len(tf.Functions)
	for _, c := range tf.Classes {
		n += len(c.Functions)
	}
	return n
}
