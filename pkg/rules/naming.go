package rules

import (
	"fmt"
	"regexp"

	"github.com/mmocchi/pytestee/pkg/models"
)

// japaneseRe matches hiragana, katakana, and CJK ideograph ranges.
var japaneseRe = regexp.MustCompile(`[\x{3040}-\x{309F}\x{30A0}-\x{30FF}\x{4E00}-\x{9FAF}\x{3400}-\x{4DBF}]`)

// namingRules recommends Japanese test names for specification-style
// readability.
func namingRules() []Rule {
	return []Rule{
		{
			Spec: Spec{
				ID:              "PTNM001",
				Name:            "japanese-characters-in-name",
				Category:        CategoryNaming,
				DefaultSeverity: models.SeverityInfo,
				Description:     "Test function names should describe behavior in Japanese",
			},
			Eval: evalJapaneseFunctionName,
		},
		{
			Spec: Spec{
				ID:              "PTNM002",
				Name:            "japanese-characters-in-class-name",
				Category:        CategoryNaming,
				DefaultSeverity: models.SeverityInfo,
				Description:     "Test class names should describe behavior in Japanese",
				Scope:           ScopeClass,
			},
			Eval: evalJapaneseClassName,
		},
	}
}

func evalJapaneseFunctionName(ctx *Context) []models.Finding {
	if japaneseRe.MatchString(ctx.Function.Name) {
		return nil
	}
	return []models.Finding{ctx.finding(Spec{ID: "PTNM001"}, ctx.Severity, ctx.Function.StartLine,
		fmt.Sprintf("Test name %q contains no Japanese characters; consider a Japanese behavior description", ctx.Function.Name))}
}

func evalJapaneseClassName(ctx *Context) []models.Finding {
	if japaneseRe.MatchString(ctx.Class.Name) {
		return nil
	}
	return []models.Finding{ctx.finding(Spec{ID: "PTNM002"}, ctx.Severity, ctx.Class.StartLine,
		fmt.Sprintf("Test class name %q contains no Japanese characters; consider a Japanese behavior description", ctx.Class.Name))}
}
