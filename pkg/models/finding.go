package models

import (
	"fmt"
	"sort"
	"strings"
)

// Severity is a finding severity level.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ParseSeverity converts a string to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(s) {
	case "info":
		return SeverityInfo, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	default:
		return "", fmt.Errorf("unknown severity: %q", s)
	}
}

// Weight returns a numeric weight for severity ordering.
func (s Severity) Weight() int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Finding is a single rule result attached to a location.
type Finding struct {
	RuleID   string   `json:"rule_id"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Path     string   `json:"path"`
	Line     int      `json:"line"`
	Column   int      `json:"column,omitempty"`
	Function string   `json:"function,omitempty"`
	Class    string   `json:"class,omitempty"`
	Internal bool     `json:"internal,omitempty"` // recovered rule failure
}

// FileResult holds all findings produced for one file.
type FileResult struct {
	Path         string    `json:"path"`
	Findings     []Finding `json:"findings"`
	TestCount    int       `json:"test_count"`
	ParseFailed  bool      `json:"parse_failed,omitempty"`
	RuleFailures int       `json:"rule_failures,omitempty"`
	Densities    []float64 `json:"densities,omitempty"` // per-function assertion density
}

// SortFindings orders findings by line then rule id.
func (fr *FileResult) SortFindings() {
	sort.Slice(fr.Findings, func(i, j int) bool {
		a, b := fr.Findings[i], fr.Findings[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.RuleID < b.RuleID
	})
}

// DensityStats summarizes the assertion-density distribution across functions.
type DensityStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
}

// Summary provides aggregate counters for a run.
type Summary struct {
	TotalFiles    int              `json:"total_files"`
	TotalTests    int              `json:"total_tests"`
	TotalFindings int              `json:"total_findings"`
	ParseFailures int              `json:"parse_failures"`
	RuleFailures  int              `json:"rule_failures"`
	BySeverity    map[Severity]int `json:"by_severity"`
	ByRule        map[string]int   `json:"by_rule"`
	Density       DensityStats     `json:"density"`
}

// AnalysisResult is the full output of one check run.
type AnalysisResult struct {
	Files   []FileResult `json:"files"`
	Summary Summary      `json:"summary"`
}

// Sort orders files by path and findings within each file deterministically.
func (r *AnalysisResult) Sort() {
	sort.Slice(r.Files, func(i, j int) bool {
		return r.Files[i].Path < r.Files[j].Path
	})
	for i := range r.Files {
		r.Files[i].SortFindings()
	}
}

// HasErrors reports whether any finding carries error severity.
func (r *AnalysisResult) HasErrors() bool {
	return r.Summary.BySeverity[SeverityError] > 0
}
