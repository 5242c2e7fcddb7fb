package rules

import (
	"fmt"
	"strings"

	"github.com/mmocchi/pytestee/pkg/models"
)

// vulnerabilityRules flags dependencies that make tests flaky or
// order-sensitive: time, randomness, private internals, shared state.
func vulnerabilityRules() []Rule {
	return []Rule{
		{
			Spec: Spec{
				ID:              "PTVL001",
				Name:            "private-access",
				Category:        CategoryVulnerability,
				DefaultSeverity: models.SeverityWarning,
				Description:     "Test reaches into private attributes of the unit under test",
			},
			Eval: evalPrivateAccess,
		},
		{
			Spec: Spec{
				ID:              "PTVL002",
				Name:            "time-dependency",
				Category:        CategoryVulnerability,
				DefaultSeverity: models.SeverityWarning,
				Description:     "Test depends on wall-clock time",
			},
			Eval: evalTimeDependency,
		},
		{
			Spec: Spec{
				ID:              "PTVL003",
				Name:            "randomness-dependency",
				Category:        CategoryVulnerability,
				DefaultSeverity: models.SeverityWarning,
				Description:     "Test depends on random values",
			},
			Eval: evalRandomnessDependency,
		},
		{
			Spec: Spec{
				ID:              "PTVL004",
				Name:            "global-state-mutation",
				Category:        CategoryVulnerability,
				DefaultSeverity: models.SeverityWarning,
				Description:     "Test mutates global or nonlocal state",
			},
			Eval: evalGlobalState,
		},
		{
			Spec: Spec{
				ID:              "PTVL005",
				Name:            "class-variable-state",
				Category:        CategoryVulnerability,
				DefaultSeverity: models.SeverityWarning,
				Description:     "Test class declares shared mutable class variables",
				Scope:           ScopeClass,
			},
			Eval: evalClassVariableState,
		},
	}
}

func evalPrivateAccess(ctx *Context) []models.Finding {
	var findings []models.Finding
	for _, acc := range ctx.Function.Accesses {
		if !strings.HasPrefix(acc.Attr, "_") || strings.HasPrefix(acc.Attr, "__") {
			continue
		}
		// self._x is the test's own state, not the unit under test.
		if acc.Object == "self" {
			continue
		}
		findings = append(findings, ctx.finding(Spec{ID: "PTVL001"}, ctx.Severity, acc.Line,
			fmt.Sprintf("Accesses private attribute %q of %q", acc.Attr, acc.Object)))
	}
	return findings
}

// timeCallees are call names that read the wall clock.
var timeCallees = []string{
	"time.time",
	"time.sleep",
	"time.monotonic",
	"datetime.now",
	"datetime.utcnow",
	"datetime.datetime.now",
	"datetime.datetime.utcnow",
	"date.today",
	"datetime.date.today",
}

func evalTimeDependency(ctx *Context) []models.Finding {
	return findCallees(ctx, "PTVL002", timeCallees, "Depends on current time via %q")
}

// randomCallees are call names that produce nondeterministic values.
var randomCallees = []string{
	"random.",
	"secrets.",
	"uuid.uuid1",
	"uuid.uuid4",
	"np.random.",
	"numpy.random.",
}

func evalRandomnessDependency(ctx *Context) []models.Finding {
	return findCallees(ctx, "PTVL003", randomCallees, "Depends on random values via %q")
}

// findCallees matches function calls against exact names or prefixes
// (entries ending in a dot).
func findCallees(ctx *Context, ruleID string, patterns []string, format string) []models.Finding {
	var findings []models.Finding
	for _, callee := range ctx.Function.Calls {
		for _, p := range patterns {
			match := callee == p || (strings.HasSuffix(p, ".") && strings.HasPrefix(callee, p))
			if match {
				findings = append(findings, ctx.finding(Spec{ID: ruleID}, ctx.Severity, ctx.Function.StartLine,
					fmt.Sprintf(format, callee)))
				break
			}
		}
	}
	return findings
}

func evalGlobalState(ctx *Context) []models.Finding {
	if !ctx.Function.UsesGlobal {
		return nil
	}
	return []models.Finding{ctx.finding(Spec{ID: "PTVL004"}, ctx.Severity, ctx.Function.StartLine,
		fmt.Sprintf("Test function %q mutates global or nonlocal state", ctx.Function.Name))}
}

func evalClassVariableState(ctx *Context) []models.Finding {
	if !ctx.Class.HasClassVars {
		return nil
	}
	line := ctx.Class.StartLine
	if len(ctx.Class.ClassVarLines) > 0 {
		line = ctx.Class.ClassVarLines[0]
	}
	return []models.Finding{ctx.finding(Spec{ID: "PTVL005"}, ctx.Severity, line,
		fmt.Sprintf("Test class %q declares class-level variables shared between tests", ctx.Class.Name))}
}
