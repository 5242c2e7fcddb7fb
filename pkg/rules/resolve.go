package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mmocchi/pytestee/pkg/config"
	"github.com/mmocchi/pytestee/pkg/models"
)

// ErrConfiguration indicates invalid configuration. Resolution fails
// fast: no evaluation happens after a configuration error.
var ErrConfiguration = errors.New("invalid configuration")

// conflicts lists rule combinations that may not be enabled together,
// because they would double-report the same assertion-count property.
var conflicts = [][2]string{
	{"PTAS004", "PTAS001"},
	{"PTAS004", "PTAS002"},
	{"PTAS004", "PTAS005"},
	{"PTAS005", "PTAS001"},
	{"PTAS005", "PTAS002"},
}

// Resolved is the immutable outcome of matching the catalog against
// configuration: which rules run, at what severity, with what params.
type Resolved struct {
	enabled  map[string]bool
	severity map[string]models.Severity
	params   map[string]Params
}

// Enabled reports whether a rule id is enabled.
func (r *Resolved) Enabled(id string) bool {
	return r.enabled[id]
}

// Severity returns the effective severity for a rule id.
func (r *Resolved) Severity(id string) models.Severity {
	return r.severity[id]
}

// Params returns the effective parameters for a rule id.
func (r *Resolved) Params(id string) Params {
	return r.params[id]
}

// Fingerprint returns a stable description of the resolved rule set:
// enabled ids, severities, and parameters in sorted order. Results
// cached under one fingerprint go stale when configuration changes.
func (r *Resolved) Fingerprint() string {
	ids := make([]string, 0, len(r.enabled))
	for id := range r.enabled {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "%s=%t:%s", id, r.enabled[id], r.severity[id])
		params := r.params[id]
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, ":%s=%v", k, params[k])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Resolve validates configuration against the catalog and computes the
// enabled set, severities, and parameters. It is a pure function of its
// inputs: resolving identical layers twice yields identical results.
func Resolve(reg *Registry, cfg *config.Config) (*Resolved, error) {
	if err := validateReferences(reg, cfg); err != nil {
		return nil, err
	}

	res := &Resolved{
		enabled:  make(map[string]bool),
		severity: make(map[string]models.Severity),
		params:   make(map[string]Params),
	}

	for _, rule := range reg.All() {
		id := rule.Spec.ID
		res.enabled[id] = isEnabled(id, cfg.Select, cfg.Ignore)
		res.severity[id] = effectiveSeverity(rule.Spec, cfg.Severity)
		res.params[id] = rule.Spec.Defaults.merged(cfg.Rules[id])
	}

	if err := validateConflicts(cfg); err != nil {
		return nil, err
	}
	if err := validateParams(reg, res); err != nil {
		return nil, err
	}

	return res, nil
}

// isEnabled applies prefix matching: selected (or select empty) and not
// ignored. Ignore always wins over select.
func isEnabled(id string, selects, ignores []string) bool {
	for _, pattern := range ignores {
		if strings.HasPrefix(id, pattern) {
			return false
		}
	}
	if len(selects) == 0 {
		return true
	}
	for _, pattern := range selects {
		if strings.HasPrefix(id, pattern) {
			return true
		}
	}
	return false
}

// effectiveSeverity applies precedence: exact id override, then the
// longest matching category prefix, then the catalog default.
func effectiveSeverity(spec Spec, overrides map[string]string) models.Severity {
	if s, ok := overrides[spec.ID]; ok {
		sev, _ := models.ParseSeverity(s)
		return sev
	}

	best := ""
	for key := range overrides {
		if key != spec.ID && strings.HasPrefix(spec.ID, key) && len(key) > len(best) {
			best = key
		}
	}
	if best != "" {
		sev, _ := models.ParseSeverity(overrides[best])
		return sev
	}

	return spec.DefaultSeverity
}

// validateReferences rejects select/ignore/severity/rules entries that
// name no known rule, and severity values that do not parse.
func validateReferences(reg *Registry, cfg *config.Config) error {
	for _, ref := range cfg.Select {
		if !reg.Known(ref) {
			return fmt.Errorf("%w: select references unknown rule %q", ErrConfiguration, ref)
		}
	}
	for _, ref := range cfg.Ignore {
		if !reg.Known(ref) {
			return fmt.Errorf("%w: ignore references unknown rule %q", ErrConfiguration, ref)
		}
	}
	for ref, value := range cfg.Severity {
		if !reg.Known(ref) {
			return fmt.Errorf("%w: severity references unknown rule %q", ErrConfiguration, ref)
		}
		if _, err := models.ParseSeverity(value); err != nil {
			return fmt.Errorf("%w: severity for %q: %v", ErrConfiguration, ref, err)
		}
	}
	for id := range cfg.Rules {
		if _, ok := reg.Get(id); !ok {
			return fmt.Errorf("%w: rule parameters reference unknown rule %q", ErrConfiguration, id)
		}
	}
	return nil
}

// validateConflicts rejects mutually exclusive rules named together in
// select. Prefix expansion is deliberately not checked: selecting a
// whole category expresses intent to run everything in it.
func validateConflicts(cfg *config.Config) error {
	selected := make(map[string]bool, len(cfg.Select))
	for _, ref := range cfg.Select {
		selected[ref] = true
	}
	for _, ref := range cfg.Ignore {
		delete(selected, ref)
	}
	for _, pair := range conflicts {
		if selected[pair[0]] && selected[pair[1]] {
			return fmt.Errorf("%w: rules %s and %s are mutually exclusive", ErrConfiguration, pair[0], pair[1])
		}
	}
	return nil
}

// validateParams checks bounds: counts non-negative, windows ordered,
// ratio-like values inside [0,1].
func validateParams(reg *Registry, res *Resolved) error {
	for _, rule := range reg.All() {
		id := rule.Spec.ID
		p := res.params[id]

		if v, ok := p["min_asserts"]; ok {
			if p.Int("min_asserts", 0) < 0 {
				return fmt.Errorf("%w: %s.min_asserts must be >= 0, got %v", ErrConfiguration, id, v)
			}
		}
		if v, ok := p["max_asserts"]; ok {
			if p.Int("max_asserts", 1) < 1 {
				return fmt.Errorf("%w: %s.max_asserts must be >= 1, got %v", ErrConfiguration, id, v)
			}
		}
		if _, ok := p["min_asserts"]; ok {
			if _, ok2 := p["max_asserts"]; ok2 {
				if p.Int("min_asserts", 0) > p.Int("max_asserts", 0) {
					return fmt.Errorf("%w: %s.min_asserts exceeds max_asserts", ErrConfiguration, id)
				}
			}
		}

		for key, v := range p {
			if !ratioKey(key) {
				continue
			}
			f := p.Float(key, 0)
			if f < 0 || f > 1 {
				return fmt.Errorf("%w: %s.%s must be within [0,1], got %v", ErrConfiguration, id, key, v)
			}
		}

		if _, ok := p["min_edge_ratio"]; ok {
			if _, ok2 := p["max_edge_ratio"]; ok2 {
				if p.Float("min_edge_ratio", 0) > p.Float("max_edge_ratio", 1) {
					return fmt.Errorf("%w: %s.min_edge_ratio exceeds max_edge_ratio", ErrConfiguration, id)
				}
			}
		}
	}
	return nil
}

func ratioKey(key string) bool {
	return strings.Contains(key, "density") ||
		strings.Contains(key, "ratio") ||
		strings.Contains(key, "coverage")
}
