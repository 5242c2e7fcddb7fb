// Package pattern detects Arrange-Act-Assert and Given-When-Then shape
// in test functions through three detectors of decreasing precision.
package pattern

import "github.com/mmocchi/pytestee/pkg/models"

// Kind identifies which detector produced a match.
type Kind string

const (
	KindAAAComment Kind = "aaa_comment"
	KindGWTComment Kind = "gwt_comment"
	KindStructural Kind = "structural"
	KindLogical    Kind = "logical"
)

// Match is a successful pattern detection with supporting evidence.
type Match struct {
	Kind     Kind
	Line     int
	Evidence []string
}

// Rule ids for the pattern family. The resolver owns the precedence
// between them, so the ids live here rather than in the rule catalog.
const (
	RuleAAAComment  = "PTCM001"
	RuleGWTComment  = "PTCM002"
	RuleAnyComment  = "PTCM003"
	RuleStructural  = "PTST001"
	RuleNotDetected = "PTST002"
	RuleLogicalFlow = "PTLG001"
)

// priority orders pattern rules by detector rank: comment detectors
// (most explicit) first, then structural, then logical flow.
var priority = []string{
	RuleAnyComment,
	RuleAAAComment,
	RuleGWTComment,
	RuleStructural,
	RuleLogicalFlow,
}

// Resolution is the single pattern-family outcome for a test function.
type Resolution struct {
	RuleID   string
	Detected bool
	Match    Match
}

// Resolve runs the enabled detectors in priority order and returns the
// first match, or a not-detected resolution. Exactly one resolution is
// produced per function regardless of how many detectors would match.
func Resolve(fn *models.TestFunction, enabled func(string) bool) Resolution {
	for _, id := range priority {
		if !enabled(id) {
			continue
		}
		if m, ok := detect(id, fn); ok {
			return Resolution{RuleID: id, Detected: true, Match: m}
		}
	}
	return Resolution{RuleID: RuleNotDetected}
}

// detect dispatches a rule id to its detector.
func detect(id string, fn *models.TestFunction) (Match, bool) {
	switch id {
	case RuleAAAComment:
		if m, ok := DetectComment(fn); ok && m.Kind == KindAAAComment {
			return m, true
		}
	case RuleGWTComment:
		if m, ok := DetectComment(fn); ok && m.Kind == KindGWTComment {
			return m, true
		}
	case RuleAnyComment:
		return DetectComment(fn)
	case RuleStructural:
		return DetectStructural(fn)
	case RuleLogicalFlow:
		return DetectLogical(fn)
	}
	return Match{}, false
}
