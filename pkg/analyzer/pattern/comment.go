package pattern

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mmocchi/pytestee/pkg/models"
)

// Section roles within a test body.
const (
	roleSetup    = 0
	roleExercise = 1
	roleVerify   = 2
)

var (
	markerRe = regexp.MustCompile(`(?i)^\s*(arrange|act|assert|given|when|then)\b`)
	// "act & assert" and "act and assert" mark a combined section.
	combinedRe = regexp.MustCompile(`(?i)^\s*act\s*(&|and)\s*assert\b`)
)

var aaaRoles = map[string]int{"arrange": roleSetup, "act": roleExercise, "assert": roleVerify}
var gwtRoles = map[string]int{"given": roleSetup, "when": roleExercise, "then": roleVerify}

// DetectComment looks for AAA or GWT section markers in comments. All
// three roles must be present in canonical order; marker vocabulary
// decides the match kind.
func DetectComment(fn *models.TestFunction) (Match, bool) {
	type marker struct {
		line  string
		word  string
		roles []int // combined markers carry two roles
		gwt   bool
		at    int
	}

	var markers []marker
	for _, c := range fn.Comments {
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(c.Text), "#"))

		if combinedRe.MatchString(text) {
			markers = append(markers, marker{
				line:  c.Text,
				word:  "act & assert",
				roles: []int{roleExercise, roleVerify},
				at:    c.Line,
			})
			continue
		}

		m := markerRe.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		word := strings.ToLower(m[1])
		if role, ok := aaaRoles[word]; ok {
			markers = append(markers, marker{line: c.Text, word: word, roles: []int{role}, at: c.Line})
		} else if role, ok := gwtRoles[word]; ok {
			markers = append(markers, marker{line: c.Text, word: word, roles: []int{role}, gwt: true, at: c.Line})
		}
	}

	if len(markers) == 0 {
		return Match{}, false
	}

	// Roles must not regress, and all three must appear.
	seen := [3]bool{}
	last := -1
	gwtCount := 0
	var evidence []string
	firstLine := markers[0].at

	for _, mk := range markers {
		for _, role := range mk.roles {
			if role < last {
				return Match{}, false
			}
			last = role
			seen[role] = true
		}
		if mk.gwt {
			gwtCount++
		}
		evidence = append(evidence, fmt.Sprintf("line %d: %s", mk.at, strings.TrimSpace(mk.line)))
	}

	if !seen[roleSetup] || !seen[roleExercise] || !seen[roleVerify] {
		return Match{}, false
	}

	kind := KindAAAComment
	if gwtCount == len(markers) {
		kind = KindGWTComment
	} else if gwtCount > 0 {
		// Mixed vocabularies do not form a recognizable convention.
		return Match{}, false
	}

	return Match{Kind: kind, Line: firstLine, Evidence: evidence}, true
}
