package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmocchi/pytestee/pkg/config"
)

func touch(t *testing.T, dir string, parts ...string) string {
	t.Helper()
	path := filepath.Join(append([]string{dir}, parts...)...)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("def test_ok():\n    assert True\n"), 0o644))
	return path
}

func TestScanDirFindsTestFiles(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, dir, "tests", "test_a.py")
	b := touch(t, dir, "tests", "sub", "util_test.py")
	touch(t, dir, "tests", "helper.py")
	touch(t, dir, "tests", "notes.txt")

	s := New(config.DefaultConfig())
	files, err := s.Scan([]string{dir})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, files)
}

func TestScanSortedAndDeduplicated(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, dir, "test_a.py")
	b := touch(t, dir, "test_b.py")

	s := New(config.DefaultConfig())
	files, err := s.Scan([]string{dir, b, a})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)
}

func TestScanExplicitFileBypassesNaming(t *testing.T) {
	dir := t.TempDir()
	helper := touch(t, dir, "helper.py")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))

	s := New(config.DefaultConfig())
	files, err := s.Scan([]string{helper, other})
	require.NoError(t, err)
	assert.Equal(t, []string{helper}, files)
}

func TestScanSkipsExcludedDirs(t *testing.T) {
	dir := t.TempDir()
	keep := touch(t, dir, "tests", "test_a.py")
	touch(t, dir, ".venv", "lib", "test_vendored.py")
	touch(t, dir, "__pycache__", "test_cached.py")

	s := New(config.DefaultConfig())
	files, err := s.Scan([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, files)
}

func TestScanHonorsExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	keep := touch(t, dir, "test_a.py")
	touch(t, dir, "test_generated.py")

	cfg := config.DefaultConfig()
	cfg.Exclude.Patterns = []string{"test_generated.py"}

	s := New(cfg)
	files, err := s.Scan([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, files)
}

func TestScanHonorsGitignore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("generated/\n"), 0o644))

	keep := touch(t, dir, "tests", "test_a.py")
	touch(t, dir, "generated", "test_gen.py")

	s := New(config.DefaultConfig())
	files, err := s.Scan([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, files)
}

func TestScanGitignoreScopedPerRoot(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repo, ".gitignore"), []byte("generated/\n"), 0o644))
	inRepo := touch(t, repo, "tests", "test_a.py")
	touch(t, repo, "generated", "test_gen.py")

	// The second root has no .gitignore; the first root's patterns must
	// not apply to it.
	plain := t.TempDir()
	outside := touch(t, plain, "generated", "test_gen.py")

	s := New(config.DefaultConfig())
	files, err := s.Scan([]string{repo, plain})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{inRepo, outside}, files)
}

func TestScanMissingPath(t *testing.T) {
	s := New(nil)
	_, err := s.Scan([]string{filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestFindGitRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	got, err := filepath.EvalSymlinks(findGitRoot(nested))
	require.NoError(t, err)
	assert.Equal(t, resolved, got)
}
