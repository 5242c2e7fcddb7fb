package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/mmocchi/pytestee/pkg/models"
)

// CheckReport renders a full analysis result.
type CheckReport struct {
	Result  *models.AnalysisResult
	Verbose bool // include info findings in text output
}

func (r *CheckReport) RenderData() any {
	return r.Result
}

func (r *CheckReport) RenderText(w io.Writer, colored bool) error {
	for _, fr := range r.Result.Files {
		rows := r.fileRows(fr, colored)
		if len(rows) == 0 {
			continue
		}

		if colored {
			color.New(color.Bold).Fprintln(w, fr.Path)
		} else {
			fmt.Fprintln(w, fr.Path)
		}

		t := &Table{
			Headers: []string{"Line", "Rule", "Severity", "Function", "Message"},
			Rows:    rows,
		}
		if err := t.RenderText(w, colored); err != nil {
			return err
		}
	}

	r.renderSummary(w, colored)
	return nil
}

func (r *CheckReport) RenderMarkdown(w io.Writer) error {
	fmt.Fprintf(w, "# pytestee report\n\n")

	for _, fr := range r.Result.Files {
		rows := r.fileRows(fr, false)
		if len(rows) == 0 {
			continue
		}
		t := &Table{
			Title:   fr.Path,
			Headers: []string{"Line", "Rule", "Severity", "Function", "Message"},
			Rows:    rows,
		}
		if err := t.RenderMarkdown(w); err != nil {
			return err
		}
	}

	s := r.Result.Summary
	fmt.Fprintf(w, "## Summary\n\n")
	fmt.Fprintf(w, "- Files: %d, tests: %d\n", s.TotalFiles, s.TotalTests)
	fmt.Fprintf(w, "- Findings: %d (error: %d, warning: %d, info: %d)\n",
		s.TotalFindings,
		s.BySeverity[models.SeverityError],
		s.BySeverity[models.SeverityWarning],
		s.BySeverity[models.SeverityInfo])
	if s.ParseFailures > 0 {
		fmt.Fprintf(w, "- Parse failures: %d\n", s.ParseFailures)
	}
	if s.RuleFailures > 0 {
		fmt.Fprintf(w, "- Rule failures: %d\n", s.RuleFailures)
	}
	fmt.Fprintln(w)
	return nil
}

// fileRows converts findings to table rows, hiding info findings unless
// verbose output is requested.
func (r *CheckReport) fileRows(fr models.FileResult, colored bool) [][]string {
	var rows [][]string
	for _, f := range fr.Findings {
		if f.Severity == models.SeverityInfo && !r.Verbose {
			continue
		}
		severity := string(f.Severity)
		if colored {
			severity = SeverityColor(severity, severity)
		}
		rows = append(rows, []string{
			strconv.Itoa(f.Line),
			f.RuleID,
			severity,
			f.Function,
			f.Message,
		})
	}
	return rows
}

func (r *CheckReport) renderSummary(w io.Writer, colored bool) {
	s := r.Result.Summary

	var parts []string
	parts = append(parts, fmt.Sprintf("%d files", s.TotalFiles))
	parts = append(parts, fmt.Sprintf("%d tests", s.TotalTests))
	parts = append(parts, fmt.Sprintf("%d errors", s.BySeverity[models.SeverityError]))
	parts = append(parts, fmt.Sprintf("%d warnings", s.BySeverity[models.SeverityWarning]))
	if s.ParseFailures > 0 {
		parts = append(parts, fmt.Sprintf("%d parse failures", s.ParseFailures))
	}
	if s.RuleFailures > 0 {
		parts = append(parts, fmt.Sprintf("%d rule failures", s.RuleFailures))
	}
	line := strings.Join(parts, ", ")

	switch {
	case colored && s.BySeverity[models.SeverityError] > 0:
		color.Red(line)
	case colored && s.BySeverity[models.SeverityWarning] > 0:
		color.Yellow(line)
	case colored:
		color.Green(line)
	default:
		fmt.Fprintln(w, line)
	}
}
