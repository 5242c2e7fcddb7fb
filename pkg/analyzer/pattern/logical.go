package pattern

import (
	"fmt"

	"github.com/mmocchi/pytestee/pkg/models"
)

// DetectLogical classifies statements into setup, exercise, and verify
// phases and accepts bodies that fit one monotonic partition: zero or
// more assignments, then calls, then assertions. At least one exercise
// and one verify statement are required.
func DetectLogical(fn *models.TestFunction) (Match, bool) {
	phase := roleSetup
	exercised := false
	verified := false

	for _, s := range fn.Statements {
		var p int
		switch s.Kind {
		case models.StmtAssert:
			p = roleVerify
			verified = true
		case models.StmtCall:
			p = roleExercise
			exercised = true
		case models.StmtAssign:
			if phase == roleSetup {
				p = roleSetup
			} else {
				p = roleExercise
				exercised = true
			}
		default:
			// Control flow and other statements stay in the current phase.
			p = phase
		}

		if p < phase {
			return Match{}, false
		}
		phase = p
	}

	if !exercised || !verified {
		return Match{}, false
	}

	return Match{
		Kind: KindLogical,
		Line: fn.StartLine,
		Evidence: []string{
			fmt.Sprintf("%d statements form a setup/exercise/verify progression", len(fn.Statements)),
		},
	}, true
}
