// Package rules defines the static rule catalog and resolves it against
// configuration into an enabled, parameterized rule set.
package rules

import (
	"sort"

	"github.com/mmocchi/pytestee/pkg/models"
)

// Category is a rule id prefix grouping related rules.
type Category string

const (
	CategoryComment       Category = "PTCM"
	CategoryStructure     Category = "PTST"
	CategoryLogic         Category = "PTLG"
	CategoryAssertion     Category = "PTAS"
	CategoryNaming        Category = "PTNM"
	CategoryVulnerability Category = "PTVL"
	CategoryEdgeCase      Category = "PTEC"
)

// Scope determines what a rule evaluates against.
type Scope int

const (
	ScopeFunction Scope = iota
	ScopeClass
)

// Params holds rule parameters with typed accessors. Values arrive from
// koanf layers, so numbers may be int, int64, or float64.
type Params map[string]any

// Int returns an integer parameter or the default.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// Float returns a float parameter or the default.
func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// merged returns a copy of p overlaid with overrides.
func (p Params) merged(overrides map[string]any) Params {
	out := make(Params, len(p)+len(overrides))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Spec describes one rule in the static catalog.
type Spec struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Category        Category        `json:"category"`
	DefaultSeverity models.Severity `json:"default_severity"`
	Description     string          `json:"description"`
	Defaults        Params          `json:"defaults,omitempty"`
	Scope           Scope           `json:"-"`

	// PatternFamily rules share one resolver slot per function; the
	// engine evaluates them through the pattern resolver, not Eval.
	PatternFamily bool `json:"-"`
}

// Context carries everything a rule evaluation can see.
type Context struct {
	File     *models.TestFile
	Class    *models.TestClass
	Function *models.TestFunction
	Params   Params
	Severity models.Severity
}

// finding builds a finding at the given line, pre-filled from context.
func (c *Context) finding(spec Spec, severity models.Severity, line int, message string) models.Finding {
	f := models.Finding{
		RuleID:   spec.ID,
		Severity: severity,
		Message:  message,
		Path:     c.File.Path,
		Line:     line,
	}
	if c.Function != nil {
		f.Function = c.Function.Name
	}
	if c.Class != nil {
		f.Class = c.Class.Name
	}
	return f
}

// EvalFunc evaluates one rule against a context.
type EvalFunc func(ctx *Context) []models.Finding

// Rule pairs a spec with its evaluation function.
type Rule struct {
	Spec Spec
	Eval EvalFunc
}

// Registry is the immutable rule catalog.
type Registry struct {
	rules []Rule
	byID  map[string]Rule
}

// NewRegistry builds the catalog with every built-in rule.
func NewRegistry() *Registry {
	r := &Registry{byID: make(map[string]Rule)}
	r.register(patternRules()...)
	r.register(assertionRules()...)
	r.register(namingRules()...)
	r.register(vulnerabilityRules()...)
	r.register(edgeCaseRules()...)
	sort.Slice(r.rules, func(i, j int) bool {
		return r.rules[i].Spec.ID < r.rules[j].Spec.ID
	})
	return r
}

func (r *Registry) register(rules ...Rule) {
	for _, rule := range rules {
		r.rules = append(r.rules, rule)
		r.byID[rule.Spec.ID] = rule
	}
}

// All returns every rule ordered by id.
func (r *Registry) All() []Rule {
	return r.rules
}

// Get returns a rule by exact id.
func (r *Registry) Get(id string) (Rule, bool) {
	rule, ok := r.byID[id]
	return rule, ok
}

// Known reports whether a reference matches at least one rule id as an
// exact id or prefix.
func (r *Registry) Known(ref string) bool {
	if ref == "" {
		return false
	}
	for id := range r.byID {
		if len(ref) <= len(id) && id[:len(ref)] == ref {
			return true
		}
	}
	return false
}
