package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDB writes a fixture index and returns its path.
func newTestDB(t *testing.T, files []FileRow, imports []ImportRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Load(files, imports))
	require.NoError(t, w.Close())
	return path
}

func newTestFileStore(t *testing.T, files []FileRow) *FileStore {
	t.Helper()
	s, err := OpenFileStore(newTestDB(t, files, nil), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var fixtureFiles = []FileRow{
	{FileName: "zlib.h", FilePath: "usr/include/zlib.h", PackageName: "zlib1g-dev"},
	{FileName: "zlib.h", FilePath: "usr/share/doc/zlib.h", PackageName: "zlib-doc"},
	{FileName: "libz.so.1", FilePath: "usr/lib/x86_64-linux-gnu/libz.so.1", PackageName: "zlib1g"},
	{FileName: "libfoo-1.2.so", FilePath: "usr/lib/libfoo-1.2.so", PackageName: "libfoo1"},
	{FileName: "git", FilePath: "usr/bin/git", PackageName: "git"},
}

// =============================================================================
// FileStore
// =============================================================================

func TestFileStore_FilesByName(t *testing.T) {
	t.Parallel()
	s := newTestFileStore(t, fixtureFiles)

	got, err := s.FilesByName("zlib.h")
	require.NoError(t, err)
	assert.ElementsMatch(t, []FileMatch{
		{Package: "zlib1g-dev", Path: "usr/include/zlib.h"},
		{Package: "zlib-doc", Path: "usr/share/doc/zlib.h"},
	}, got)

	got, err = s.FilesByName("missing.h")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileStore_ExactMatchOnly(t *testing.T) {
	t.Parallel()
	s := newTestFileStore(t, fixtureFiles)

	got, err := s.FilesByName("ZLIB.H")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileStore_FilesByNormalizedName(t *testing.T) {
	t.Parallel()
	s := newTestFileStore(t, fixtureFiles)

	got, err := s.FilesByNormalizedName("libfoo.so")
	require.NoError(t, err)
	assert.Equal(t, []FileMatch{{Package: "libfoo1", Path: "usr/lib/libfoo-1.2.so"}}, got)

	got, err = s.FilesByNormalizedName("libz.so")
	require.NoError(t, err)
	assert.Equal(t, []FileMatch{{Package: "zlib1g", Path: "usr/lib/x86_64-linux-gnu/libz.so.1"}}, got)
}

func TestFileStore_StatementReuse(t *testing.T) {
	t.Parallel()
	s := newTestFileStore(t, fixtureFiles)

	for range 50 {
		got, err := s.FilesByName("git")
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
}

func TestFileStore_WithoutNormalizedColumn(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE package_files (file_name TEXT, file_path TEXT, package_name TEXT);
		INSERT INTO package_files VALUES ('git', 'usr/bin/git', 'git');`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := OpenFileStore(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	got, err := s.FilesByName("git")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.FilesByNormalizedName("git")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileStore_ReadOnly(t *testing.T) {
	t.Parallel()
	s := newTestFileStore(t, fixtureFiles)

	_, err := s.db.Exec(`DELETE FROM package_files`)
	assert.Error(t, err)
}

func TestOpen_MissingDatabase(t *testing.T) {
	t.Parallel()
	missing := filepath.Join(t.TempDir(), "nope.db")

	_, err := OpenFileStore(missing, nil)
	assert.True(t, errors.Is(err, ErrNoDatabase))

	_, err = OpenImportStore(missing)
	assert.True(t, errors.Is(err, ErrNoDatabase))
}

// =============================================================================
// ImportStore
// =============================================================================

func TestImportStore_PackagesByImport(t *testing.T) {
	t.Parallel()
	path := newTestDB(t, nil, []ImportRow{
		{ImportAs: "numpy", PackageName: "numpy"},
		{ImportAs: "yaml", PackageName: "PyYAML"},
		{ImportAs: "yaml", PackageName: "ruamel.yaml"},
	})
	s, err := OpenImportStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	got, err := s.PackagesByImport("yaml")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"PyYAML", "ruamel.yaml"}, got)

	got, err = s.PackagesByImport("requests")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpenImportStore_NoView(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "files-only.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE package_files (file_name TEXT)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = OpenImportStore(path)
	assert.Error(t, err)
}

// =============================================================================
// Empty
// =============================================================================

func TestEmpty(t *testing.T) {
	t.Parallel()

	var e Empty
	files, err := e.FilesByName("x")
	assert.NoError(t, err)
	assert.Empty(t, files)
	pkgs, err := e.PackagesByImport("x")
	assert.NoError(t, err)
	assert.Empty(t, pkgs)
}

func TestWriter_CreateIdempotent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "index.db")

	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w, err = Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Load(fixtureFiles[:1], nil))
	require.NoError(t, w.Close())
}
