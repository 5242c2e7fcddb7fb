package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmocchi/pytestee/pkg/models"
)

func sampleResult() *models.AnalysisResult {
	r := &models.AnalysisResult{
		Files: []models.FileResult{
			{
				Path:      "tests/test_sample.py",
				TestCount: 2,
				Densities: []float64{0.25, 0.5},
				Findings: []models.Finding{
					{
						RuleID:   "PTST002",
						Severity: models.SeverityWarning,
						Message:  `Test function "test_one" does not follow a recognizable AAA or GWT pattern`,
						Path:     "tests/test_sample.py",
						Line:     1,
						Function: "test_one",
					},
					{
						RuleID:   "PTAS005",
						Severity: models.SeverityInfo,
						Message:  "Assertion count is appropriate (1)",
						Path:     "tests/test_sample.py",
						Line:     7,
						Function: "test_two",
					},
					{
						RuleID:   "PTVL002",
						Severity: models.SeverityError,
						Message:  `Depends on current time via "datetime.now"`,
						Path:     "tests/test_sample.py",
						Line:     7,
						Function: "test_two",
					},
				},
			},
		},
	}
	r.Summary = models.Summary{
		TotalFiles:    1,
		TotalTests:    2,
		TotalFindings: 3,
		BySeverity: map[models.Severity]int{
			models.SeverityError:   1,
			models.SeverityWarning: 1,
			models.SeverityInfo:    1,
		},
		ByRule: map[string]int{"PTST002": 1, "PTAS005": 1, "PTVL002": 1},
		Density: models.DensityStats{
			Mean:   0.4,
			StdDev: 0.1,
			Median: 0.4,
			P90:    0.5,
		},
	}
	return r
}

func TestJSONReportMatchesSchema(t *testing.T) {
	report := &CheckReport{Result: sampleResult()}

	var buf bytes.Buffer
	f := &Formatter{format: FormatJSON, writer: &buf}
	require.NoError(t, f.Output(report))

	sch, err := jsonschema.UnmarshalJSON(strings.NewReader(ReportSchema))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	require.NoError(t, compiler.AddResource("report.schema.json", sch))
	schema, err := compiler.Compile("report.schema.json")
	require.NoError(t, err)

	inst, err := jsonschema.UnmarshalJSON(&buf)
	require.NoError(t, err)
	assert.NoError(t, schema.Validate(inst))
}

func TestJSONReportRoundTrip(t *testing.T) {
	report := &CheckReport{Result: sampleResult()}

	var buf bytes.Buffer
	f := &Formatter{format: FormatJSON, writer: &buf}
	require.NoError(t, f.Output(report))

	var decoded models.AnalysisResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 3, decoded.Summary.TotalFindings)
	assert.Len(t, decoded.Files, 1)
}

func TestTextReportHidesInfoByDefault(t *testing.T) {
	report := &CheckReport{Result: sampleResult()}

	var buf bytes.Buffer
	require.NoError(t, report.RenderText(&buf, false))

	out := buf.String()
	assert.Contains(t, out, "tests/test_sample.py")
	assert.Contains(t, out, "PTST002")
	assert.Contains(t, out, "PTVL002")
	assert.NotContains(t, out, "PTAS005")
	assert.Contains(t, out, "1 files, 2 tests, 1 errors, 1 warnings")
}

func TestTextReportVerboseShowsInfo(t *testing.T) {
	report := &CheckReport{Result: sampleResult(), Verbose: true}

	var buf bytes.Buffer
	require.NoError(t, report.RenderText(&buf, false))
	assert.Contains(t, buf.String(), "PTAS005")
}

func TestTextReportSkipsCleanFiles(t *testing.T) {
	result := &models.AnalysisResult{
		Files: []models.FileResult{{Path: "tests/test_clean.py", TestCount: 1}},
	}
	report := &CheckReport{Result: result}

	var buf bytes.Buffer
	require.NoError(t, report.RenderText(&buf, false))
	assert.NotContains(t, buf.String(), "tests/test_clean.py")
}

func TestMarkdownReport(t *testing.T) {
	report := &CheckReport{Result: sampleResult(), Verbose: true}

	var buf bytes.Buffer
	require.NoError(t, report.RenderMarkdown(&buf))

	out := buf.String()
	assert.Contains(t, out, "# pytestee report")
	assert.Contains(t, out, "## tests/test_sample.py")
	assert.Contains(t, out, "| Line | Rule | Severity | Function | Message |")
	assert.Contains(t, out, "## Summary")
	assert.Contains(t, out, "Findings: 3 (error: 1, warning: 1, info: 1)")
}

func TestReportRenderData(t *testing.T) {
	result := sampleResult()
	report := &CheckReport{Result: result}
	assert.Equal(t, result, report.RenderData())
}
