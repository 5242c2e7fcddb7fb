// Package assertion computes assertion counts and density for test
// functions. Thresholds are applied by rules, not here.
package assertion

import "github.com/mmocchi/pytestee/pkg/models"

// Metrics holds assertion measurements for one test function.
type Metrics struct {
	Asserts    int     `json:"asserts"`
	Statements int     `json:"statements"`
	Density    float64 `json:"density"`
}

// Analyze counts assert statements and computes density over the body.
// Empty bodies yield zero density.
func Analyze(fn *models.TestFunction) Metrics {
	m := Metrics{Statements: len(fn.Statements)}
	for _, s := range fn.Statements {
		if s.Kind == models.StmtAssert {
			m.Asserts++
		}
	}
	if m.Statements > 0 {
		m.Density = float64(m.Asserts) / float64(m.Statements)
	}
	return m
}

// Lines returns the lines of all assert statements, for evidence output.
func Lines(fn *models.TestFunction) []int {
	var lines []int
	for _, s := range fn.Statements {
		if s.Kind == models.StmtAssert {
			lines = append(lines, s.Line)
		}
	}
	return lines
}
