package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/dapper/internal/lang"
	"github.com/jward/dapper/internal/token"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func matcher(l token.Language) func(string) bool {
	return func(p string) bool { return lang.Matches(l, p) }
}

func rels(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestFiles_Directory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.cpp":            "",
		"include/util.HPP":    "",
		"deep/a/b/c/impl.tcc": "",
		".hidden/dir/x.c":     "",
		"node_modules/y.h":    "",
		"scripts/tool.py":     "",
		"CMakeLists.txt":      "",
		"cmake/deps.cmake":    "",
		"README.md":           "",
		"sub/cmakelists.txt":  "",
		"notes.txt":           "",
	})

	cpp, err := Files(root, matcher(token.Cpp))
	require.NoError(t, err)
	assert.Equal(t, []string{
		".hidden/dir/x.c",
		"deep/a/b/c/impl.tcc",
		"include/util.HPP",
		"main.cpp",
		"node_modules/y.h",
	}, rels(t, root, cpp))

	py, err := Files(root, matcher(token.Python))
	require.NoError(t, err)
	assert.Equal(t, []string{"scripts/tool.py"}, rels(t, root, py))

	cm, err := Files(root, matcher(token.CMake))
	require.NoError(t, err)
	assert.Equal(t, []string{"CMakeLists.txt", "cmake/deps.cmake", "sub/cmakelists.txt"}, rels(t, root, cm))
}

func TestFiles_SingleFile(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "", "b.txt": ""})

	got, err := Files(filepath.Join(root, "a.py"), matcher(token.Python))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.py")}, got)

	got, err = Files(filepath.Join(root, "a.py"), matcher(token.Cpp))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Files(filepath.Join(root, "b.txt"), matcher(token.Python))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFiles_MissingRoot(t *testing.T) {
	t.Parallel()

	_, err := Files(filepath.Join(t.TempDir(), "nope"), matcher(token.Cpp))
	assert.Error(t, err)
}

func TestFiles_SkipsSymlinks(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{"real.h": ""})
	if err := os.Symlink(filepath.Join(root, "real.h"), filepath.Join(root, "link.h")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	got, err := Files(root, matcher(token.Cpp))
	require.NoError(t, err)
	assert.Equal(t, []string{"real.h"}, rels(t, root, got))
}

func TestFiles_Gitignore(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":    "build/\n*.gen.py\n",
		"app.py":        "",
		"schema.gen.py": "",
		"build/out.py":  "",
		"pkg/inner.py":  "",
	})

	all, err := Files(root, matcher(token.Python))
	require.NoError(t, err)
	assert.Len(t, all, 4, "gitignore is off by default")

	filtered, err := Files(root, matcher(token.Python), WithGitignore(true))
	require.NoError(t, err)
	assert.Equal(t, []string{"app.py", "pkg/inner.py"}, rels(t, root, filtered))
}

func TestFiles_GitignoreMissingFile(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{"app.py": ""})

	got, err := Files(root, matcher(token.Python), WithGitignore(true))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
