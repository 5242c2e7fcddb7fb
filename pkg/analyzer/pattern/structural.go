package pattern

import (
	"fmt"

	"github.com/mmocchi/pytestee/pkg/models"
)

// DetectStructural checks whether blank lines split the body into
// sections where all assertions sit in the final section. Three or more
// sections are a full match; exactly two is a weaker accepted split.
func DetectStructural(fn *models.TestFunction) (Match, bool) {
	sections := splitSections(fn)
	if len(sections) < 2 {
		return Match{}, false
	}

	last := sections[len(sections)-1]
	if countAsserts(last) == 0 {
		return Match{}, false
	}
	for _, sec := range sections[:len(sections)-1] {
		if countAsserts(sec) > 0 {
			return Match{}, false
		}
	}

	m := Match{
		Kind: KindStructural,
		Line: fn.StartLine,
		Evidence: []string{
			fmt.Sprintf("%d sections separated by blank lines, assertions in final section", len(sections)),
		},
	}
	if len(sections) == 2 {
		m.Evidence = append(m.Evidence, "two-section split (setup and verification only)")
	}
	return m, true
}

// splitSections groups statements into runs separated by blank lines.
func splitSections(fn *models.TestFunction) [][]models.Statement {
	blanks := make(map[int]bool, len(fn.BlankLines))
	for _, l := range fn.BlankLines {
		blanks[l] = true
	}

	var sections [][]models.Statement
	var current []models.Statement
	prevEnd := -1

	for _, s := range fn.Statements {
		if prevEnd >= 0 && hasBlankBetween(blanks, prevEnd, s.Line) && len(current) > 0 {
			sections = append(sections, current)
			current = nil
		}
		current = append(current, s)
		prevEnd = s.EndLine
	}
	if len(current) > 0 {
		sections = append(sections, current)
	}
	return sections
}

func hasBlankBetween(blanks map[int]bool, after, before int) bool {
	for l := after + 1; l < before; l++ {
		if blanks[l] {
			return true
		}
	}
	return false
}

func countAsserts(stmts []models.Statement) int {
	n := 0
	for _, s := range stmts {
		if s.Kind == models.StmtAssert {
			n++
		}
	}
	return n
}
