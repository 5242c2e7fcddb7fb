package rules

import (
	"fmt"

	"github.com/mmocchi/pytestee/pkg/analyzer/pattern"
	"github.com/mmocchi/pytestee/pkg/models"
)

// patternRules returns the pattern-family specs. They carry no Eval:
// the resolver picks at most one winner per function, and EvalPattern
// turns the resolution into a finding.
func patternRules() []Rule {
	specs := []Spec{
		{
			ID:              pattern.RuleAAAComment,
			Name:            "aaa-comment-pattern",
			Category:        CategoryComment,
			DefaultSeverity: models.SeverityInfo,
			Description:     "Arrange/Act/Assert comment markers in canonical order",
		},
		{
			ID:              pattern.RuleGWTComment,
			Name:            "gwt-comment-pattern",
			Category:        CategoryComment,
			DefaultSeverity: models.SeverityInfo,
			Description:     "Given/When/Then comment markers in canonical order",
		},
		{
			ID:              pattern.RuleAnyComment,
			Name:            "aaa-or-gwt-comment-pattern",
			Category:        CategoryComment,
			DefaultSeverity: models.SeverityInfo,
			Description:     "AAA or GWT comment markers in canonical order",
		},
		{
			ID:              pattern.RuleStructural,
			Name:            "structural-pattern",
			Category:        CategoryStructure,
			DefaultSeverity: models.SeverityInfo,
			Description:     "Blank lines separate setup from a final assertion section",
		},
		{
			ID:              pattern.RuleNotDetected,
			Name:            "pattern-not-detected",
			Category:        CategoryStructure,
			DefaultSeverity: models.SeverityWarning,
			Description:     "No AAA or GWT pattern detected by any enabled detector",
		},
		{
			ID:              pattern.RuleLogicalFlow,
			Name:            "logical-flow-pattern",
			Category:        CategoryLogic,
			DefaultSeverity: models.SeverityInfo,
			Description:     "Statement flow fits a setup, exercise, verify progression",
		},
	}

	rules := make([]Rule, len(specs))
	for i, spec := range specs {
		spec.PatternFamily = true
		rules[i] = Rule{Spec: spec}
	}
	return rules
}

// patternMessages maps detected pattern rules to their report text.
var patternMessages = map[string]string{
	pattern.RuleAAAComment:  "AAA pattern detected in comments",
	pattern.RuleGWTComment:  "GWT pattern detected in comments",
	pattern.RuleAnyComment:  "AAA/GWT pattern detected in comments",
	pattern.RuleStructural:  "AAA pattern detected structurally (blank line separation)",
	pattern.RuleLogicalFlow: "AAA pattern detected through logical flow analysis",
}

// EvalPattern produces the single pattern-family finding for a function.
// A nil return means every pattern rule, fallback included, is disabled.
func EvalPattern(ctx *Context, reg *Registry, res *Resolved) *models.Finding {
	resolution := pattern.Resolve(ctx.Function, res.Enabled)

	if !resolution.Detected {
		if !res.Enabled(pattern.RuleNotDetected) {
			return nil
		}
		spec := reg.byID[pattern.RuleNotDetected].Spec
		f := ctx.finding(spec, res.Severity(spec.ID), ctx.Function.StartLine,
			fmt.Sprintf("Test function %q does not follow a recognizable AAA or GWT pattern", ctx.Function.Name))
		return &f
	}

	spec := reg.byID[resolution.RuleID].Spec
	line := resolution.Match.Line
	if line == 0 {
		line = ctx.Function.StartLine
	}
	f := ctx.finding(spec, res.Severity(spec.ID), line, patternMessages[resolution.RuleID])
	return &f
}
