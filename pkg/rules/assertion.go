package rules

import (
	"fmt"

	"github.com/mmocchi/pytestee/pkg/analyzer/assertion"
	"github.com/mmocchi/pytestee/pkg/models"
)

// assertionRules covers assertion count and density discipline.
func assertionRules() []Rule {
	return []Rule{
		{
			Spec: Spec{
				ID:              "PTAS001",
				Name:            "too-few-assertions",
				Category:        CategoryAssertion,
				DefaultSeverity: models.SeverityError,
				Description:     "Test has fewer assertions than min_asserts",
				Defaults:        Params{"min_asserts": 1},
			},
			Eval: evalTooFewAssertions,
		},
		{
			Spec: Spec{
				ID:              "PTAS002",
				Name:            "too-many-assertions",
				Category:        CategoryAssertion,
				DefaultSeverity: models.SeverityWarning,
				Description:     "Test has more assertions than max_asserts",
				Defaults:        Params{"max_asserts": 3},
			},
			Eval: evalTooManyAssertions,
		},
		{
			Spec: Spec{
				ID:              "PTAS003",
				Name:            "high-assertion-density",
				Category:        CategoryAssertion,
				DefaultSeverity: models.SeverityWarning,
				Description:     "Assertions dominate the test body",
				Defaults:        Params{"max_density": 0.5},
			},
			Eval: evalAssertionDensity,
		},
		{
			Spec: Spec{
				ID:              "PTAS004",
				Name:            "no-assertions",
				Category:        CategoryAssertion,
				DefaultSeverity: models.SeverityError,
				Description:     "Test contains no assertions at all",
			},
			Eval: evalNoAssertions,
		},
		{
			Spec: Spec{
				ID:              "PTAS005",
				Name:            "assertion-count-ok",
				Category:        CategoryAssertion,
				DefaultSeverity: models.SeverityError,
				Description:     "Assertion count within the configured window",
				Defaults:        Params{"min_asserts": 1, "max_asserts": 3},
			},
			Eval: evalAssertionWindow,
		},
	}
}

func evalTooFewAssertions(ctx *Context) []models.Finding {
	min := ctx.Params.Int("min_asserts", 1)
	m := assertion.Analyze(ctx.Function)
	if m.Asserts >= min {
		return nil
	}
	return []models.Finding{ctx.finding(Spec{ID: "PTAS001"}, ctx.Severity, ctx.Function.StartLine,
		fmt.Sprintf("Too few assertions: expected at least %d, found %d", min, m.Asserts))}
}

func evalTooManyAssertions(ctx *Context) []models.Finding {
	max := ctx.Params.Int("max_asserts", 3)
	m := assertion.Analyze(ctx.Function)
	if m.Asserts <= max {
		return nil
	}
	return []models.Finding{ctx.finding(Spec{ID: "PTAS002"}, ctx.Severity, ctx.Function.StartLine,
		fmt.Sprintf("Too many assertions: expected at most %d, found %d", max, m.Asserts))}
}

func evalAssertionDensity(ctx *Context) []models.Finding {
	maxDensity := ctx.Params.Float("max_density", 0.5)
	m := assertion.Analyze(ctx.Function)
	if m.Statements == 0 || m.Density <= maxDensity {
		return nil
	}
	return []models.Finding{ctx.finding(Spec{ID: "PTAS003"}, ctx.Severity, ctx.Function.StartLine,
		fmt.Sprintf("High assertion density: %.0f%% exceeds maximum %.0f%%", m.Density*100, maxDensity*100))}
}

func evalNoAssertions(ctx *Context) []models.Finding {
	m := assertion.Analyze(ctx.Function)
	if m.Asserts > 0 {
		return nil
	}
	return []models.Finding{ctx.finding(Spec{ID: "PTAS004"}, ctx.Severity, ctx.Function.StartLine,
		fmt.Sprintf("Test function %q has no assertions", ctx.Function.Name))}
}

// evalAssertionWindow is the default combined rule: one finding whether
// the count is below, above, or inside the [min_asserts, max_asserts]
// window. In-window results are informational.
func evalAssertionWindow(ctx *Context) []models.Finding {
	min := ctx.Params.Int("min_asserts", 1)
	max := ctx.Params.Int("max_asserts", 3)
	m := assertion.Analyze(ctx.Function)

	spec := Spec{ID: "PTAS005"}
	switch {
	case m.Asserts < min:
		return []models.Finding{ctx.finding(spec, ctx.Severity, ctx.Function.StartLine,
			fmt.Sprintf("Too few assertions: expected at least %d, found %d", min, m.Asserts))}
	case m.Asserts > max:
		return []models.Finding{ctx.finding(spec, ctx.Severity, ctx.Function.StartLine,
			fmt.Sprintf("Too many assertions: expected at most %d, found %d", max, m.Asserts))}
	default:
		return []models.Finding{ctx.finding(spec, models.SeverityInfo, ctx.Function.StartLine,
			fmt.Sprintf("Assertion count is appropriate (%d)", m.Asserts))}
	}
}
