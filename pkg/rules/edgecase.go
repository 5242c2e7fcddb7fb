package rules

import (
	"fmt"

	"github.com/mmocchi/pytestee/pkg/analyzer/edgecase"
	"github.com/mmocchi/pytestee/pkg/models"
)

// edgeCaseRules score how thoroughly test inputs probe boundaries.
// Category rules only fire for input types the function actually uses.
func edgeCaseRules() []Rule {
	return []Rule{
		{
			Spec: Spec{
				ID:              "PTEC001",
				Name:            "numeric-edge-cases",
				Category:        CategoryEdgeCase,
				DefaultSeverity: models.SeverityWarning,
				Description:     "Numeric inputs should cover zero, negative, and large values",
				Defaults:        Params{"min_cases": 1},
			},
			Eval: categoryEval("PTEC001", edgecase.CategoryNumeric, "zero, negative, or very large numbers"),
		},
		{
			Spec: Spec{
				ID:              "PTEC002",
				Name:            "collection-edge-cases",
				Category:        CategoryEdgeCase,
				DefaultSeverity: models.SeverityWarning,
				Description:     "Collection inputs should cover empty, single, and large collections",
				Defaults:        Params{"min_cases": 1},
			},
			Eval: categoryEval("PTEC002", edgecase.CategoryCollection, "empty, single-element, or very large collections"),
		},
		{
			Spec: Spec{
				ID:              "PTEC003",
				Name:            "string-edge-cases",
				Category:        CategoryEdgeCase,
				DefaultSeverity: models.SeverityWarning,
				Description:     "String inputs should cover empty, long, and non-ASCII strings",
				Defaults:        Params{"min_cases": 1},
			},
			Eval: categoryEval("PTEC003", edgecase.CategoryString, "empty, very long, or non-ASCII strings"),
		},
		{
			Spec: Spec{
				ID:              "PTEC004",
				Name:            "normal-abnormal-ratio",
				Category:        CategoryEdgeCase,
				DefaultSeverity: models.SeverityWarning,
				Description:     "Balance of normal inputs against edge-case inputs",
				Defaults:        Params{"min_edge_ratio": 0.2, "max_edge_ratio": 0.5},
			},
			Eval: evalEdgeRatio,
		},
		{
			Spec: Spec{
				ID:              "PTEC005",
				Name:            "edge-case-coverage-score",
				Category:        CategoryEdgeCase,
				DefaultSeverity: models.SeverityInfo,
				Description:     "Weighted edge-case coverage across relevant input categories",
				Defaults:        Params{"min_coverage": 0.3, "good_coverage": 0.6},
			},
			Eval: evalCoverageScore,
		},
	}
}

// categoryEval builds an eval that fires when a relevant category hits
// fewer than min_cases distinct edge cases.
func categoryEval(ruleID string, cat edgecase.Category, hint string) EvalFunc {
	return func(ctx *Context) []models.Finding {
		profile := edgecase.Analyze(ctx.Function)
		if !profile.Relevant[cat] {
			return nil
		}
		minCases := ctx.Params.Int("min_cases", 1)
		hit := profile.DistinctCases(cat)
		if hit >= minCases {
			return nil
		}
		return []models.Finding{ctx.finding(Spec{ID: ruleID}, ctx.Severity, ctx.Function.StartLine,
			fmt.Sprintf("Covers %d %s edge case(s), expected at least %d: add %s", hit, cat, minCases, hint))}
	}
}

func evalEdgeRatio(ctx *Context) []models.Finding {
	profile := edgecase.Analyze(ctx.Function)
	if profile.Normal+profile.Edge == 0 {
		return nil
	}

	minRatio := ctx.Params.Float("min_edge_ratio", 0.2)
	maxRatio := ctx.Params.Float("max_edge_ratio", 0.5)
	ratio := profile.Ratio()
	spec := Spec{ID: "PTEC004"}

	switch {
	case ratio < minRatio:
		return []models.Finding{ctx.finding(spec, ctx.Severity, ctx.Function.StartLine,
			fmt.Sprintf("Edge-case input ratio %.2f is below minimum %.2f: most inputs are happy-path values", ratio, minRatio))}
	case ratio > maxRatio:
		return []models.Finding{ctx.finding(spec, ctx.Severity, ctx.Function.StartLine,
			fmt.Sprintf("Edge-case input ratio %.2f exceeds maximum %.2f: normal behavior may be undertested", ratio, maxRatio))}
	default:
		return nil
	}
}

func evalCoverageScore(ctx *Context) []models.Finding {
	profile := edgecase.Analyze(ctx.Function)
	if profile.RelevantCount() == 0 {
		return nil
	}

	minCov := ctx.Params.Float("min_coverage", 0.3)
	goodCov := ctx.Params.Float("good_coverage", 0.6)
	score := profile.Coverage()
	spec := Spec{ID: "PTEC005"}

	switch {
	case score < minCov:
		return []models.Finding{ctx.finding(spec, models.SeverityWarning, ctx.Function.StartLine,
			fmt.Sprintf("Edge-case coverage score %.2f is below minimum %.2f", score, minCov))}
	case score < goodCov:
		return []models.Finding{ctx.finding(spec, ctx.Severity, ctx.Function.StartLine,
			fmt.Sprintf("Edge-case coverage score %.2f has room to improve (target %.2f)", score, goodCov))}
	default:
		return nil
	}
}
