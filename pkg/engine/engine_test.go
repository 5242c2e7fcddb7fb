package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmocchi/pytestee/internal/cache"
	"github.com/mmocchi/pytestee/pkg/config"
	"github.com/mmocchi/pytestee/pkg/models"
	"github.com/mmocchi/pytestee/pkg/rules"
)

var patternFamilyIDs = map[string]bool{
	"PTCM001": true,
	"PTCM002": true,
	"PTCM003": true,
	"PTST001": true,
	"PTST002": true,
	"PTLG001": true,
}

func newEngine(t *testing.T, cfg *config.Config, opts ...Option) *Engine {
	t.Helper()
	reg := rules.NewRegistry()
	res, err := rules.Resolve(reg, cfg)
	require.NoError(t, err)
	return New(reg, res, opts...)
}

func sampleFile() *models.TestFile {
	return &models.TestFile{
		Path: "tests/test_sample.py",
		Functions: []models.TestFunction{
			{
				Name:      "test_one",
				StartLine: 1,
				EndLine:   5,
				Statements: []models.Statement{
					{Kind: models.StmtAssign, Line: 2, EndLine: 2},
					{Kind: models.StmtCall, Line: 3, EndLine: 3},
					{Kind: models.StmtAssert, Line: 4, EndLine: 4},
				},
			},
			{
				Name:      "test_two",
				StartLine: 7,
				EndLine:   9,
				Statements: []models.Statement{
					{Kind: models.StmtAssign, Line: 8, EndLine: 8},
				},
			},
		},
	}
}

func TestEvaluateOnePatternFindingPerFunction(t *testing.T) {
	eng := newEngine(t, &config.Config{})
	result := eng.Evaluate(sampleFile())

	perFunction := make(map[string]int)
	for _, f := range result.Findings {
		if patternFamilyIDs[f.RuleID] {
			perFunction[f.Function]++
		}
	}
	assert.Equal(t, 1, perFunction["test_one"])
	assert.Equal(t, 1, perFunction["test_two"])
}

func TestEvaluateDisabledRuleNeverFires(t *testing.T) {
	eng := newEngine(t, &config.Config{Ignore: []string{"PTAS", "PTNM"}})
	result := eng.Evaluate(sampleFile())

	for _, f := range result.Findings {
		assert.NotEqual(t, "PTAS", f.RuleID[:4])
		assert.NotEqual(t, "PTNM", f.RuleID[:4])
	}
}

func TestEvaluateClassScopedRulesRunOncePerClass(t *testing.T) {
	tf := &models.TestFile{
		Path: "tests/test_sample.py",
		Classes: []models.TestClass{
			{
				Name:          "TestShared",
				StartLine:     1,
				EndLine:       20,
				HasClassVars:  true,
				ClassVarLines: []int{2},
				Functions: []models.TestFunction{
					{Name: "test_a", StartLine: 4, EndLine: 6, Statements: []models.Statement{{Kind: models.StmtAssert, Line: 5, EndLine: 5}}},
					{Name: "test_b", StartLine: 8, EndLine: 10, Statements: []models.Statement{{Kind: models.StmtAssert, Line: 9, EndLine: 9}}},
				},
			},
		},
	}

	eng := newEngine(t, &config.Config{Select: []string{"PTVL005"}})
	result := eng.Evaluate(tf)

	count := 0
	for _, f := range result.Findings {
		if f.RuleID == "PTVL005" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestEvaluateSortsFindings(t *testing.T) {
	eng := newEngine(t, &config.Config{})
	result := eng.Evaluate(sampleFile())
	require.NotEmpty(t, result.Findings)

	for i := 1; i < len(result.Findings); i++ {
		prev, cur := result.Findings[i-1], result.Findings[i]
		ordered := prev.Line < cur.Line || (prev.Line == cur.Line && prev.RuleID <= cur.RuleID)
		assert.True(t, ordered, "findings out of order at %d", i)
	}
}

func TestSafeEvalRecoversPanics(t *testing.T) {
	eng := newEngine(t, &config.Config{})

	rule := rules.Rule{
		Spec: rules.Spec{ID: "PTAS001"},
		Eval: func(*rules.Context) []models.Finding { panic("boom") },
	}
	ctx := &rules.Context{
		File:     &models.TestFile{Path: "tests/test_sample.py"},
		Function: &models.TestFunction{Name: "test_x", StartLine: 3},
	}
	result := &models.FileResult{Path: "tests/test_sample.py"}

	findings := eng.safeEval(rule, ctx, result)
	require.Len(t, findings, 1)
	assert.True(t, findings[0].Internal)
	assert.Equal(t, models.SeverityError, findings[0].Severity)
	assert.Equal(t, 3, findings[0].Line)
	assert.Equal(t, 1, result.RuleFailures)
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const passingSource = `def test_adds():
    value = 1

    total = value + 1

    assert total == 2
`

func TestRunOrdersFilesByPath(t *testing.T) {
	dir := t.TempDir()
	b := writeTestFile(t, dir, "test_b.py", passingSource)
	a := writeTestFile(t, dir, "test_a.py", passingSource)

	eng := newEngine(t, &config.Config{})
	result, err := eng.Run(context.Background(), []string{b, a}, nil)
	require.NoError(t, err)

	require.Len(t, result.Files, 2)
	assert.Equal(t, a, result.Files[0].Path)
	assert.Equal(t, b, result.Files[1].Path)
	assert.Equal(t, 2, result.Summary.TotalFiles)
	assert.Equal(t, 2, result.Summary.TotalTests)
}

func TestRunMissingFileBecomesIOFinding(t *testing.T) {
	eng := newEngine(t, &config.Config{})
	result, err := eng.Run(context.Background(), []string{"/nonexistent/test_gone.py"}, nil)
	require.NoError(t, err)

	require.Len(t, result.Files, 1)
	assert.True(t, result.Files[0].ParseFailed)
	require.Len(t, result.Files[0].Findings, 1)
	assert.Equal(t, "PTIO001", result.Files[0].Findings[0].RuleID)
}

func TestRunCanceledContext(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "test_a.py", passingSource)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := newEngine(t, &config.Config{})
	_, err := eng.Run(ctx, []string{path}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunDeterministic(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeTestFile(t, dir, "test_a.py", passingSource),
		writeTestFile(t, dir, "test_b.py", "def test_empty():\n    pass\n"),
		writeTestFile(t, dir, "test_c.py", passingSource),
	}

	eng := newEngine(t, &config.Config{}, WithWorkers(3))
	first, err := eng.Run(context.Background(), files, nil)
	require.NoError(t, err)

	for range 5 {
		again, err := eng.Run(context.Background(), files, nil)
		require.NoError(t, err)
		assert.Equal(t, first.Files, again.Files)
		assert.Equal(t, first.Summary, again.Summary)
	}
}

func newFileCache(t *testing.T, dir string) *cache.Cache {
	t.Helper()
	c, err := cache.New(dir, 24, true)
	require.NoError(t, err)
	return c
}

func TestRunCacheInvalidatedByConfigChange(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "test_a.py", passingSource)
	cacheDir := filepath.Join(dir, "cache")

	eng := newEngine(t, &config.Config{}, WithCache(newFileCache(t, cacheDir)))
	first, err := eng.Run(context.Background(), []string{path}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Summary.ByRule["PTAS005"])

	// Same cache dir, same file content, but PTAS is now ignored: the
	// warm cache must not replay the disabled rule's finding.
	eng = newEngine(t, &config.Config{Ignore: []string{"PTAS"}}, WithCache(newFileCache(t, cacheDir)))
	second, err := eng.Run(context.Background(), []string{path}, nil)
	require.NoError(t, err)
	assert.Zero(t, second.Summary.ByRule["PTAS005"])
	for _, f := range second.Files[0].Findings {
		assert.NotEqual(t, "PTAS", f.RuleID[:4])
	}
}

func TestRunWarmCacheMatchesColdRun(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "test_a.py", passingSource)

	eng := newEngine(t, &config.Config{}, WithCache(newFileCache(t, filepath.Join(dir, "cache"))))
	cold, err := eng.Run(context.Background(), []string{path}, nil)
	require.NoError(t, err)
	warm, err := eng.Run(context.Background(), []string{path}, nil)
	require.NoError(t, err)

	assert.Equal(t, cold.Files, warm.Files)
	assert.Equal(t, cold.Summary, warm.Summary)
	assert.Greater(t, warm.Summary.Density.Mean, 0.0)
}

func TestSummarizeDensityStats(t *testing.T) {
	files := []models.FileResult{
		{Path: "a", TestCount: 2, Densities: []float64{0.25, 0.75}},
		{Path: "b", TestCount: 1, Densities: []float64{0.5}},
	}

	s := summarize(files)
	assert.Equal(t, 2, s.TotalFiles)
	assert.Equal(t, 3, s.TotalTests)
	assert.InDelta(t, 0.5, s.Density.Mean, 1e-9)
	assert.InDelta(t, 0.5, s.Density.Median, 1e-9)
	assert.Greater(t, s.Density.StdDev, 0.0)
}

func TestSummarizeSingleDensityHasZeroStdDev(t *testing.T) {
	s := summarize([]models.FileResult{{Path: "a", Densities: []float64{0.5}}})
	assert.Equal(t, 0.0, s.Density.StdDev)
}
