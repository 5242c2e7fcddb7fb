// Package scanner discovers pytest test files under target paths.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/mmocchi/pytestee/pkg/config"
	"github.com/mmocchi/pytestee/pkg/parser"
)

// Scanner finds test files in a directory tree.
type Scanner struct {
	config *config.Config
}

// New creates a new file scanner.
func New(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// Scan resolves a mix of file and directory paths into a sorted,
// deduplicated list of test files.
func (s *Scanner) Scan(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}

		if info.IsDir() {
			found, err := s.ScanDir(path)
			if err != nil {
				return nil, err
			}
			for _, f := range found {
				if !seen[f] {
					seen[f] = true
					files = append(files, f)
				}
			}
			continue
		}

		// Explicit files bypass naming conventions but must be Python.
		if parser.IsPythonFile(path) && !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	sort.Strings(files)
	return files, nil
}

// ScanDir recursively scans a directory for pytest-style test files,
// honoring config excludes and .gitignore patterns.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	files := make([]string, 0, 256)

	// Built per root: one root's .gitignore must not leak into another.
	matcher := s.buildMatcher(root)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(root, path)

		if d.IsDir() {
			if relPath != "." && (isExcluded(matcher, relPath, true) || s.config.ShouldExclude(relPath+string(filepath.Separator))) {
				return filepath.SkipDir
			}
			return nil
		}

		if isExcluded(matcher, relPath, false) || s.config.ShouldExclude(relPath) {
			return nil
		}
		if parser.IsTestFile(path) {
			files = append(files, path)
		}

		return nil
	})

	return files, walkErr
}

// buildMatcher combines config exclude patterns with .gitignore files
// from the git repository enclosing root, returning nil when nothing
// applies.
func (s *Scanner) buildMatcher(root string) gitignore.Matcher {
	var patterns []gitignore.Pattern

	for _, pattern := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}
	for _, dir := range s.config.Exclude.Dirs {
		patterns = append(patterns, gitignore.ParsePattern(dir+"/", nil))
	}

	if s.config.Exclude.Gitignore {
		if gitRoot := findGitRoot(root); gitRoot != "" {
			fsys := osfs.New(gitRoot)
			if gitPatterns, err := gitignore.ReadPatterns(fsys, nil); err == nil {
				patterns = append(patterns, gitPatterns...)
			}
		}
	}

	if len(patterns) == 0 {
		return nil
	}
	return gitignore.NewMatcher(patterns)
}

// findGitRoot walks up from start looking for a .git directory.
func findGitRoot(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return ""
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// isExcluded checks if a path matches the root's exclusion matcher.
func isExcluded(m gitignore.Matcher, path string, isDir bool) bool {
	if m == nil {
		return false
	}
	return m.Match(strings.Split(path, string(filepath.Separator)), isDir)
}
