// Package engine orchestrates rule evaluation over test files.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/mmocchi/pytestee/internal/cache"
	"github.com/mmocchi/pytestee/internal/fileproc"
	"github.com/mmocchi/pytestee/pkg/analyzer/assertion"
	"github.com/mmocchi/pytestee/pkg/builder"
	"github.com/mmocchi/pytestee/pkg/models"
	"github.com/mmocchi/pytestee/pkg/parser"
	"github.com/mmocchi/pytestee/pkg/rules"
)

// Engine evaluates the resolved rule set against test files.
type Engine struct {
	registry *rules.Registry
	resolved *rules.Resolved
	builder  *builder.Builder
	cache    *cache.Cache
	confHash string
	workers  int
}

// Option is a functional option for configuring Engine.
type Option func(*Engine)

// WithCache enables result caching keyed by file content hash and the
// resolved configuration.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithWorkers sets the parallel file worker count (0 = automatic).
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithBuilder replaces the default model builder.
func WithBuilder(b *builder.Builder) Option {
	return func(e *Engine) {
		e.builder = b
	}
}

// New creates an engine for one resolved configuration.
func New(registry *rules.Registry, resolved *rules.Resolved, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		resolved: resolved,
		builder:  builder.New(),
		confHash: cache.HashBytes([]byte(resolved.Fingerprint())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs every enabled rule against one test file. Rules run in
// a fixed order per function: the pattern family first, then assertion,
// edge case, naming, and vulnerability rules. Class-scoped rules run
// once per class.
func (e *Engine) Evaluate(tf *models.TestFile) *models.FileResult {
	result := &models.FileResult{
		Path:      tf.Path,
		TestCount: tf.TestCount(),
	}

	for i := range tf.Classes {
		cls := &tf.Classes[i]
		for _, rule := range e.orderedRules() {
			if rule.Spec.Scope != rules.ScopeClass || !e.resolved.Enabled(rule.Spec.ID) {
				continue
			}
			ctx := &rules.Context{
				File:     tf,
				Class:    cls,
				Params:   e.resolved.Params(rule.Spec.ID),
				Severity: e.resolved.Severity(rule.Spec.ID),
			}
			result.Findings = append(result.Findings, e.safeEval(rule, ctx, result)...)
		}
	}

	for _, ref := range tf.AllFunctions() {
		ctx := &rules.Context{File: tf, Class: ref.Class, Function: ref.Function}

		if f := rules.EvalPattern(ctx, e.registry, e.resolved); f != nil {
			result.Findings = append(result.Findings, *f)
		}

		for _, rule := range e.orderedRules() {
			if rule.Spec.PatternFamily || rule.Spec.Scope != rules.ScopeFunction {
				continue
			}
			if !e.resolved.Enabled(rule.Spec.ID) {
				continue
			}
			rctx := &rules.Context{
				File:     tf,
				Class:    ref.Class,
				Function: ref.Function,
				Params:   e.resolved.Params(rule.Spec.ID),
				Severity: e.resolved.Severity(rule.Spec.ID),
			}
			result.Findings = append(result.Findings, e.safeEval(rule, rctx, result)...)
		}

		result.Densities = append(result.Densities, assertion.Analyze(ref.Function).Density)
	}

	result.SortFindings()
	return result
}

// categoryOrder fixes the evaluation order of non-pattern families.
var categoryOrder = map[rules.Category]int{
	rules.CategoryAssertion:     0,
	rules.CategoryEdgeCase:      1,
	rules.CategoryNaming:        2,
	rules.CategoryVulnerability: 3,
}

// orderedRules returns the catalog sorted by family order then id.
func (e *Engine) orderedRules() []rules.Rule {
	all := append([]rules.Rule(nil), e.registry.All()...)
	sort.SliceStable(all, func(i, j int) bool {
		oi := categoryOrder[all[i].Spec.Category]
		oj := categoryOrder[all[j].Spec.Category]
		if oi != oj {
			return oi < oj
		}
		return all[i].Spec.ID < all[j].Spec.ID
	})
	return all
}

// safeEval runs one rule, converting panics into internal-error findings
// so a single faulty rule cannot abort the run.
func (e *Engine) safeEval(rule rules.Rule, ctx *rules.Context, result *models.FileResult) (findings []models.Finding) {
	defer func() {
		if r := recover(); r != nil {
			result.RuleFailures++
			line := 1
			if ctx.Function != nil {
				line = ctx.Function.StartLine
			} else if ctx.Class != nil {
				line = ctx.Class.StartLine
			}
			f := models.Finding{
				RuleID:   rule.Spec.ID,
				Severity: models.SeverityError,
				Message:  fmt.Sprintf("internal error: rule %s panicked: %v", rule.Spec.ID, r),
				Path:     ctx.File.Path,
				Line:     line,
				Internal: true,
			}
			if ctx.Function != nil {
				f.Function = ctx.Function.Name
			}
			findings = []models.Finding{f}
		}
	}()
	return rule.Eval(ctx)
}

// Run analyzes files in parallel and aggregates a deterministic result:
// files ordered by path, findings by line then rule id.
func (e *Engine) Run(ctx context.Context, files []string, onProgress func()) (*models.AnalysisResult, error) {
	fileResults, procErrs := fileproc.MapFilesCtx(ctx, files, e.workers, e.processFile, onProgress)

	if procErrs != nil {
		for _, pe := range procErrs.Errors {
			if errors.Is(pe.Err, context.Canceled) || errors.Is(pe.Err, context.DeadlineExceeded) {
				return nil, pe.Err
			}
			// I/O failures degrade to parse-failure findings.
			fileResults = append(fileResults, &models.FileResult{
				Path:        pe.Path,
				ParseFailed: true,
				Findings: []models.Finding{{
					RuleID:   "PTIO001",
					Severity: models.SeverityError,
					Message:  fmt.Sprintf("failed to read file: %v", pe.Err),
					Path:     pe.Path,
					Line:     1,
				}},
			})
		}
	}

	result := &models.AnalysisResult{}
	for _, fr := range fileResults {
		result.Files = append(result.Files, *fr)
	}
	result.Sort()
	result.Summary = summarize(result.Files)
	return result, nil
}

// processFile parses, builds, and evaluates one file, consulting the
// cache first. Cached entries are tagged with both the content hash and
// the resolved-configuration hash, so a config change invalidates them.
// Parse failures become findings rather than errors.
func (e *Engine) processFile(psr *parser.Parser, path string) (*models.FileResult, error) {
	if e.cache != nil {
		if hash, err := cache.HashFile(path); err == nil {
			if data, ok := e.cache.GetWithHash(path, hash+":"+e.confHash); ok {
				var fr models.FileResult
				if json.Unmarshal(data, &fr) == nil {
					return &fr, nil
				}
			}
		}
	}

	parsed, err := psr.ParseFile(path)
	if err != nil {
		return nil, err
	}

	tf, err := e.builder.Build(parsed)
	if err != nil {
		if errors.Is(err, builder.ErrParseFailure) {
			return &models.FileResult{
				Path:        path,
				ParseFailed: true,
				Findings: []models.Finding{{
					RuleID:   "PTPF001",
					Severity: models.SeverityError,
					Message:  fmt.Sprintf("failed to parse file: %v", err),
					Path:     path,
					Line:     1,
				}},
			}, nil
		}
		return nil, err
	}

	fr := e.Evaluate(tf)

	if e.cache != nil {
		if data, err := json.Marshal(fr); err == nil {
			_ = e.cache.SetWithHash(path, cache.HashBytes(parsed.Source)+":"+e.confHash, data)
		}
	}

	return fr, nil
}

// summarize computes aggregate counters and the assertion-density
// distribution across all analyzed functions.
func summarize(files []models.FileResult) models.Summary {
	s := models.Summary{
		BySeverity: make(map[models.Severity]int),
		ByRule:     make(map[string]int),
	}

	var densities []float64
	for _, fr := range files {
		s.TotalFiles++
		s.TotalTests += fr.TestCount
		s.RuleFailures += fr.RuleFailures
		if fr.ParseFailed {
			s.ParseFailures++
		}
		for _, f := range fr.Findings {
			s.TotalFindings++
			s.BySeverity[f.Severity]++
			s.ByRule[f.RuleID]++
		}
		densities = append(densities, fr.Densities...)
	}

	if len(densities) > 0 {
		sort.Float64s(densities)
		s.Density = models.DensityStats{
			Mean:   stat.Mean(densities, nil),
			Median: stat.Quantile(0.5, stat.Empirical, densities, nil),
			P90:    stat.Quantile(0.9, stat.Empirical, densities, nil),
		}
		// StdDev of a single sample is NaN, which JSON cannot encode.
		if len(densities) > 1 {
			s.Density.StdDev = stat.StdDev(densities, nil)
		}
	}

	return s
}
