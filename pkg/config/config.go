// Package config loads layered pytestee configuration: defaults, then a
// config file, then PYTESTEE_ environment variables, then CLI overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment variable overrides. Nested
// keys use double underscores: PYTESTEE_RULES__PTAS005__MAX_ASSERTS.
const EnvPrefix = "PYTESTEE_"

// Config holds all configuration options for pytestee.
type Config struct {
	// Rule selection: prefix patterns matched against rule ids.
	Select []string `koanf:"select"`
	Ignore []string `koanf:"ignore"`

	// Severity overrides by rule id or category prefix.
	Severity map[string]string `koanf:"severity"`

	// Per-rule parameters, e.g. rules.PTAS005.max_asserts.
	Rules map[string]map[string]any `koanf:"rules"`

	// Call names treated as assertion equivalents.
	AssertHelpers []string `koanf:"assert_helpers"`

	Exclude ExcludeConfig `koanf:"exclude"`
	Cache   CacheConfig   `koanf:"cache"`
	Output  OutputConfig  `koanf:"output"`

	// Workers is the parallel file worker count, 0 for automatic.
	Workers int `koanf:"workers"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns"`
	Dirs      []string `koanf:"dirs"`
	Gitignore bool     `koanf:"gitignore"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
	TTL     int    `koanf:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format"` // text, json, markdown
	Color   bool   `koanf:"color"`
	Verbose bool   `koanf:"verbose"`
}

// DefaultConfig returns a config with the default rule selection.
func DefaultConfig() *Config {
	return &Config{
		Select: []string{
			"PTCM003",
			"PTST001",
			"PTST002",
			"PTLG001",
			"PTAS005",
			"PTNM001",
			"PTVL001",
			"PTVL002",
			"PTEC001",
			"PTEC002",
			"PTEC003",
			"PTEC004",
			"PTEC005",
		},
		Severity: map[string]string{},
		Rules:    map[string]map[string]any{},
		Exclude: ExcludeConfig{
			Dirs: []string{
				".git",
				".venv",
				"venv",
				"node_modules",
				"__pycache__",
				".pytestee",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".pytestee/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   true,
			Verbose: false,
		},
	}
}

// Load builds the layered configuration. path may be empty to skip the
// file layer; overrides is a dotted-key map from CLI flags and wins over
// every other layer.
func Load(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFile(k, path); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("applying overrides: %w", err)
		}
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ruleRefRe matches rule ids and category prefixes like PTAS or PTAS005.
var ruleRefRe = regexp.MustCompile(`^PT[A-Z]{2}[0-9]{0,3}$`)

// envKey maps PYTESTEE_RULES__PTAS005__MAX_ASSERTS to
// rules.PTAS005.max_asserts. Single underscores stay literal so keys
// like max_asserts survive.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	parts := strings.Split(s, "__")
	for i, p := range parts {
		// Rule references keep their case; everything else is lowercased.
		if !ruleRefRe.MatchString(p) {
			parts[i] = strings.ToLower(p)
		}
	}
	return strings.Join(parts, ".")
}

// envValue maps an environment entry to its koanf key and a typed
// value. Environment variables are strings, but rule parameters need
// real numbers and booleans.
func envValue(key, value string) (string, any) {
	return envKey(key), ParseScalar(value)
}

// ParseScalar converts a string from an environment variable or CLI
// flag to a typed value.
func ParseScalar(s string) any {
	// Numbers before booleans: "1" means one, not true.
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// loadFile loads one config file, choosing the parser by extension.
// pyproject.toml is supported through its [tool.pytestee] table.
func loadFile(k *koanf.Koanf, path string) error {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if filepath.Base(path) == "pyproject.toml" {
		sub := koanf.New(".")
		if err := sub.Load(file.Provider(path), parser); err != nil {
			return err
		}
		return k.Merge(sub.Cut("tool.pytestee"))
	}

	return k.Load(file.Provider(path), parser)
}

// LoadOrDefault resolves the config file path and loads the layers. An
// explicit path must exist; otherwise standard locations are searched
// and a missing file just means defaults.
func LoadOrDefault(explicit string, overrides map[string]any) (*Config, error) {
	if explicit != "" {
		return Load(explicit, overrides)
	}
	return Load(findConfigFile(), overrides)
}

// findConfigFile searches standard config file locations.
func findConfigFile() string {
	names := []string{
		"pytestee.toml",
		"pytestee.yaml",
		"pytestee.yml",
		"pytestee.json",
		".pytestee.toml",
		".pytestee.yaml",
		".pytestee.yml",
		".pytestee.json",
		"pyproject.toml",
	}

	for _, name := range names {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// ShouldExclude checks if a path should be excluded from analysis.
func (c *Config) ShouldExclude(path string) bool {
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, string(filepath.Separator)+dir+string(filepath.Separator)) ||
			strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}
