package rules

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmocchi/pytestee/pkg/analyzer/edgecase"
	"github.com/mmocchi/pytestee/pkg/config"
	"github.com/mmocchi/pytestee/pkg/models"
)

func TestRegistryOrderedByID(t *testing.T) {
	reg := NewRegistry()
	all := reg.All()
	require.NotEmpty(t, all)

	ids := make([]string, len(all))
	for i, rule := range all {
		ids[i] = rule.Spec.ID
	}
	assert.True(t, sort.StringsAreSorted(ids))
}

func TestRegistryKnown(t *testing.T) {
	reg := NewRegistry()

	assert.True(t, reg.Known("PTAS001"))
	assert.True(t, reg.Known("PTAS"))
	assert.True(t, reg.Known("PT"))
	assert.False(t, reg.Known("PTXX"))
	assert.False(t, reg.Known("PTAS0011"))
	assert.False(t, reg.Known(""))
}

func TestRegistryGet(t *testing.T) {
	reg := NewRegistry()

	rule, ok := reg.Get("PTAS005")
	require.True(t, ok)
	assert.Equal(t, "assertion-count-ok", rule.Spec.Name)

	_, ok = reg.Get("PTAS")
	assert.False(t, ok)
}

func evalCtx(fn *models.TestFunction, params Params, sev models.Severity) *Context {
	return &Context{
		File:     &models.TestFile{Path: "tests/test_sample.py"},
		Function: fn,
		Params:   params,
		Severity: sev,
	}
}

func fnWithKinds(kinds ...models.StatementKind) *models.TestFunction {
	fn := &models.TestFunction{Name: "test_sample", StartLine: 1}
	for i, k := range kinds {
		fn.Statements = append(fn.Statements, models.Statement{Kind: k, Line: i + 2, EndLine: i + 2})
	}
	return fn
}

func TestAssertionWindowBelow(t *testing.T) {
	ctx := evalCtx(fnWithKinds(models.StmtCall), Params{"min_asserts": 1, "max_asserts": 3}, models.SeverityError)

	findings := evalAssertionWindow(ctx)
	require.Len(t, findings, 1)
	assert.Equal(t, "PTAS005", findings[0].RuleID)
	assert.Equal(t, models.SeverityError, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "Too few")
}

func TestAssertionWindowAbove(t *testing.T) {
	ctx := evalCtx(fnWithKinds(
		models.StmtAssert, models.StmtAssert, models.StmtAssert, models.StmtAssert,
	), Params{"min_asserts": 1, "max_asserts": 3}, models.SeverityError)

	findings := evalAssertionWindow(ctx)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "Too many")
}

func TestAssertionWindowInside(t *testing.T) {
	ctx := evalCtx(fnWithKinds(models.StmtCall, models.StmtAssert), Params{"min_asserts": 1, "max_asserts": 3}, models.SeverityError)

	findings := evalAssertionWindow(ctx)
	require.Len(t, findings, 1)
	assert.Equal(t, models.SeverityInfo, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "appropriate")
}

func TestNoAssertions(t *testing.T) {
	ctx := evalCtx(fnWithKinds(models.StmtCall), nil, models.SeverityError)
	findings := evalNoAssertions(ctx)
	require.Len(t, findings, 1)
	assert.Equal(t, "PTAS004", findings[0].RuleID)

	ctx = evalCtx(fnWithKinds(models.StmtAssert), nil, models.SeverityError)
	assert.Empty(t, evalNoAssertions(ctx))
}

func TestAssertionDensitySkipsEmptyBody(t *testing.T) {
	ctx := evalCtx(&models.TestFunction{Name: "test_empty", StartLine: 1}, Params{"max_density": 0.5}, models.SeverityWarning)
	assert.Empty(t, evalAssertionDensity(ctx))
}

func TestJapaneseNamingRules(t *testing.T) {
	ctx := evalCtx(&models.TestFunction{Name: "test_ユーザー登録", StartLine: 3}, nil, models.SeverityInfo)
	assert.Empty(t, evalJapaneseFunctionName(ctx))

	ctx = evalCtx(&models.TestFunction{Name: "test_user_signup", StartLine: 3}, nil, models.SeverityInfo)
	findings := evalJapaneseFunctionName(ctx)
	require.Len(t, findings, 1)
	assert.Equal(t, "PTNM001", findings[0].RuleID)
	assert.Equal(t, 3, findings[0].Line)
}

func TestJapaneseClassName(t *testing.T) {
	ctx := &Context{
		File:     &models.TestFile{Path: "tests/test_sample.py"},
		Class:    &models.TestClass{Name: "TestSignup", StartLine: 10},
		Severity: models.SeverityInfo,
	}
	findings := evalJapaneseClassName(ctx)
	require.Len(t, findings, 1)
	assert.Equal(t, "PTNM002", findings[0].RuleID)
	assert.Equal(t, "TestSignup", findings[0].Class)
}

func TestPrivateAccess(t *testing.T) {
	fn := &models.TestFunction{
		Name:      "test_sample",
		StartLine: 1,
		Accesses: []models.Access{
			{Object: "service", Attr: "_cache", Line: 4},
			{Object: "service", Attr: "__dict__", Line: 5},
			{Object: "self", Attr: "_fixture", Line: 6},
			{Object: "service", Attr: "result", Line: 7},
		},
	}
	ctx := evalCtx(fn, nil, models.SeverityWarning)

	findings := evalPrivateAccess(ctx)
	require.Len(t, findings, 1)
	assert.Equal(t, 4, findings[0].Line)
	assert.Contains(t, findings[0].Message, "_cache")
}

func TestTimeDependency(t *testing.T) {
	fn := &models.TestFunction{
		Name:      "test_sample",
		StartLine: 1,
		Calls:     []string{"datetime.now", "service.run"},
	}
	findings := evalTimeDependency(evalCtx(fn, nil, models.SeverityWarning))
	require.Len(t, findings, 1)
	assert.Equal(t, "PTVL002", findings[0].RuleID)
}

func TestRandomnessDependencyPrefixMatch(t *testing.T) {
	fn := &models.TestFunction{
		Name:      "test_sample",
		StartLine: 1,
		Calls:     []string{"random.randint", "uuid.uuid4", "uuid.uuid5"},
	}
	findings := evalRandomnessDependency(evalCtx(fn, nil, models.SeverityWarning))
	assert.Len(t, findings, 2)
}

func TestGlobalState(t *testing.T) {
	fn := &models.TestFunction{Name: "test_sample", StartLine: 1, UsesGlobal: true}
	findings := evalGlobalState(evalCtx(fn, nil, models.SeverityWarning))
	require.Len(t, findings, 1)
	assert.Equal(t, "PTVL004", findings[0].RuleID)
}

func TestClassVariableState(t *testing.T) {
	ctx := &Context{
		File:     &models.TestFile{Path: "tests/test_sample.py"},
		Class:    &models.TestClass{Name: "TestShared", StartLine: 5, HasClassVars: true, ClassVarLines: []int{6}},
		Severity: models.SeverityWarning,
	}
	findings := evalClassVariableState(ctx)
	require.Len(t, findings, 1)
	assert.Equal(t, 6, findings[0].Line)
}

func TestEdgeCaseCategoryRuleFiresOnlyWhenRelevant(t *testing.T) {
	eval := categoryEval("PTEC001", edgecase.CategoryNumeric, "zero, negative, or very large numbers")

	// No numeric literals: not relevant, no finding.
	fn := &models.TestFunction{Name: "test_sample", StartLine: 1}
	assert.Empty(t, eval(evalCtx(fn, Params{"min_cases": 1}, models.SeverityWarning)))

	// Only happy-path numbers: relevant and zero distinct edge cases.
	fn.Literals = []models.Literal{{Kind: models.LiteralNumber, Num: 42}}
	findings := eval(evalCtx(fn, Params{"min_cases": 1}, models.SeverityWarning))
	require.Len(t, findings, 1)
	assert.Equal(t, "PTEC001", findings[0].RuleID)

	// A zero input satisfies min_cases=1.
	fn.Literals = append(fn.Literals, models.Literal{Kind: models.LiteralNumber, Num: 0})
	assert.Empty(t, eval(evalCtx(fn, Params{"min_cases": 1}, models.SeverityWarning)))
}

func TestEdgeRatioBounds(t *testing.T) {
	params := Params{"min_edge_ratio": 0.2, "max_edge_ratio": 0.5}

	happy := &models.TestFunction{Name: "test_sample", StartLine: 1, Literals: []models.Literal{
		{Kind: models.LiteralNumber, Num: 1},
		{Kind: models.LiteralNumber, Num: 2},
		{Kind: models.LiteralNumber, Num: 3},
		{Kind: models.LiteralNumber, Num: 4},
		{Kind: models.LiteralNumber, Num: 5},
		{Kind: models.LiteralNumber, Num: 6},
	}}
	findings := evalEdgeRatio(evalCtx(happy, params, models.SeverityWarning))
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "below minimum")

	balanced := &models.TestFunction{Name: "test_sample", StartLine: 1, Literals: []models.Literal{
		{Kind: models.LiteralNumber, Num: 1},
		{Kind: models.LiteralNumber, Num: 2},
		{Kind: models.LiteralNumber, Num: 0},
	}}
	assert.Empty(t, evalEdgeRatio(evalCtx(balanced, params, models.SeverityWarning)))

	noInputs := &models.TestFunction{Name: "test_sample", StartLine: 1}
	assert.Empty(t, evalEdgeRatio(evalCtx(noInputs, params, models.SeverityWarning)))
}

func TestCoverageScoreThresholds(t *testing.T) {
	params := Params{"min_coverage": 0.3, "good_coverage": 0.6}

	// One of three numeric cases covered: score 1/3, warning tier.
	fn := &models.TestFunction{Name: "test_sample", StartLine: 1, Literals: []models.Literal{
		{Kind: models.LiteralNumber, Num: 0},
	}}
	findings := evalCoverageScore(evalCtx(fn, params, models.SeverityInfo))
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "room to improve")

	// All three numeric cases covered: score 1.0, nothing to say.
	fn.Literals = []models.Literal{
		{Kind: models.LiteralNumber, Num: 0},
		{Kind: models.LiteralNumber, Num: -1},
		{Kind: models.LiteralNumber, Num: 5_000_000},
	}
	assert.Empty(t, evalCoverageScore(evalCtx(fn, params, models.SeverityInfo)))
}

func TestEvalPatternResolution(t *testing.T) {
	reg := NewRegistry()
	res := resolveConfig(t, &config.Config{})

	fn := fnWithKinds(models.StmtAssign, models.StmtCall, models.StmtAssert)
	ctx := evalCtx(fn, nil, models.SeverityInfo)

	f := EvalPattern(ctx, reg, res)
	require.NotNil(t, f)
	assert.Equal(t, "PTLG001", f.RuleID)
}

func TestEvalPatternFallback(t *testing.T) {
	reg := NewRegistry()
	res := resolveConfig(t, &config.Config{})

	fn := fnWithKinds(models.StmtAssign)
	ctx := evalCtx(fn, nil, models.SeverityInfo)

	f := EvalPattern(ctx, reg, res)
	require.NotNil(t, f)
	assert.Equal(t, "PTST002", f.RuleID)
	assert.Equal(t, models.SeverityWarning, f.Severity)
}

func TestEvalPatternAllDisabled(t *testing.T) {
	reg := NewRegistry()
	res := resolveConfig(t, &config.Config{Select: []string{"PTAS"}})

	fn := fnWithKinds(models.StmtAssign)
	ctx := evalCtx(fn, nil, models.SeverityInfo)

	assert.Nil(t, EvalPattern(ctx, reg, res))
}
