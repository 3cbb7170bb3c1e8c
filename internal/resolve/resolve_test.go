package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/dapper/internal/rank"
	"github.com/jward/dapper/internal/store"
	"github.com/jward/dapper/internal/token"
)

// fakeIndex is an in-memory FileIndex and ImportIndex that counts lookups.
type fakeIndex struct {
	files      map[string][]store.FileMatch
	normalized map[string][]store.FileMatch
	imports    map[string][]string
	err        error
	calls      map[string]int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		files:      map[string][]store.FileMatch{},
		normalized: map[string][]store.FileMatch{},
		imports:    map[string][]string{},
		calls:      map[string]int{},
	}
}

func (f *fakeIndex) FilesByName(name string) ([]store.FileMatch, error) {
	f.calls["file:"+name]++
	return f.files[name], f.err
}

func (f *fakeIndex) FilesByNormalizedName(name string) ([]store.FileMatch, error) {
	f.calls["normalized:"+name]++
	return f.normalized[name], f.err
}

func (f *fakeIndex) PackagesByImport(name string) ([]string, error) {
	f.calls["import:"+name]++
	return f.imports[name], f.err
}

var ctx = context.Background()

// =============================================================================
// Keys and matching
// =============================================================================

func TestIncludeKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "zlib.h", IncludeKey("zlib.h"))
	assert.Equal(t, "stdio.h", IncludeKey("sys/../STDIO.H"))
	assert.Equal(t, "png.h", IncludeKey("libpng16/png.h"))
	assert.Equal(t, "", IncludeKey("dir/"))
}

func TestIncludeMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path    string
		include string
		want    bool
	}{
		{"usr/include/zlib.h", "zlib.h", true},
		{"usr/include/libpng16/png.h", "libpng16/png.h", true},
		{"usr/include/libpng16/png.h", "png.h", true},
		// Whole components only.
		{"usr/include/myzlib.h", "zlib.h", false},
		{"usr/include/xlibpng16/png.h", "libpng16/png.h", false},
		// Must live under something called include.
		{"usr/share/doc/zlib.h", "zlib.h", false},
		// Case-sensitive path comparison.
		{"usr/include/Zlib.h", "zlib.h", false},
		{"usr/include/zlib.h", "./zlib.h", true},
		{"usr/include/zlib.h", "../zlib.h", false},
		{"zlib.h", "include/zlib.h", false},
	}
	for _, tt := range tests {
		t.Run(tt.path+"|"+tt.include, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IncludeMatches(tt.path, tt.include))
		})
	}
}

func TestPythonKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		module string
		key    string
		ok     bool
	}{
		{"numpy", "numpy", true},
		{"matplotlib.pyplot", "matplotlib", true},
		{"os.path", "os", false},
		{"cProfile", "cProfile", false},
		{"__future__", "__future__", false},
		{".sibling", ".sibling", false},
		{"..parent.mod", "..parent.mod", false},
	}
	for _, tt := range tests {
		key, ok := PythonKey(tt.module)
		assert.Equal(t, tt.key, key, tt.module)
		assert.Equal(t, tt.ok, ok, tt.module)
	}
}

// =============================================================================
// Resolver
// =============================================================================

func TestReference_Include(t *testing.T) {
	t.Parallel()
	idx := newFakeIndex()
	idx.files["zlib.h"] = []store.FileMatch{
		{Package: "zlib1g-dev", Path: "/usr/include/zlib.h"},
		{Package: "zlib-doc", Path: "/usr/share/doc/zlib.h"},
		{Package: "zlib1g-dev", Path: "/usr/include/zlib.h"},
	}
	r := New(idx, idx)

	res, err := r.Reference(ctx, token.SystemInclude("zlib.h"))
	require.NoError(t, err)
	assert.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, "zlib.h", res.Key)
	assert.Equal(t, []Candidate{{Package: "zlib1g-dev", Path: "/usr/include/zlib.h"}}, res.Candidates)
}

func TestReference_IncludeKeyIsLowercased(t *testing.T) {
	t.Parallel()
	idx := newFakeIndex()
	idx.files["windows.h"] = []store.FileMatch{
		{Package: "mingw-w64-common", Path: "/usr/share/mingw-w64/include/Windows.h"},
	}
	r := New(idx, idx)

	res, err := r.Reference(ctx, token.UserInclude("Windows.h"))
	require.NoError(t, err)
	assert.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, 1, idx.calls["file:windows.h"])
}

func TestReference_IncludeNoMatch(t *testing.T) {
	t.Parallel()
	idx := newFakeIndex()
	idx.files["config.h"] = []store.FileMatch{
		{Package: "something", Path: "/opt/lib/config.h"},
	}
	r := New(idx, idx)

	res, err := r.Reference(ctx, token.UserInclude("config.h"))
	require.NoError(t, err)
	assert.Equal(t, Unresolved, res.Outcome)
	assert.Empty(t, res.Candidates)
}

func TestReference_SharedObjectUsesNormalizedName(t *testing.T) {
	t.Parallel()
	idx := newFakeIndex()
	idx.normalized["libfoo.so"] = []store.FileMatch{
		{Package: "libfoo1", Path: "/usr/lib/x86_64-linux-gnu/libfoo-1.2.so"},
	}
	r := New(idx, idx)

	res, err := r.Reference(ctx, token.SystemInclude("libfoo-1.4.so"))
	require.NoError(t, err)
	assert.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, "libfoo1", res.Candidates[0].Package)
	assert.Equal(t, 1, idx.calls["normalized:libfoo.so"])

	_, err = r.Reference(ctx, token.SystemInclude("zlib.h"))
	require.NoError(t, err)
	assert.Zero(t, idx.calls["normalized:zlib.h"])
}

func TestReference_Python(t *testing.T) {
	t.Parallel()
	idx := newFakeIndex()
	idx.imports["matplotlib"] = []string{"matplotlib", "matplotlib", "matplotlib-base"}
	r := New(idx, idx)

	res, err := r.Reference(ctx, token.FromModule("matplotlib.pyplot", "plot"))
	require.NoError(t, err)
	assert.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, "matplotlib", res.Key)
	assert.Equal(t, []Candidate{{Package: "matplotlib"}, {Package: "matplotlib-base"}}, res.Candidates)

	res, err = r.Reference(ctx, token.Module("requests"))
	require.NoError(t, err)
	assert.Equal(t, Unresolved, res.Outcome)
}

func TestReference_PythonSkipsStdlibAndRelative(t *testing.T) {
	t.Parallel()
	idx := newFakeIndex()
	r := New(idx, idx)

	for _, ref := range []token.Reference{
		token.Module("os"),
		token.Alias("subprocess", "sp"),
		token.FromModule("collections.abc", "Mapping"),
		token.FromAlias(".utils", "helper", "h"),
	} {
		res, err := r.Reference(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, Skipped, res.Outcome, ref.String())
	}
	assert.Empty(t, idx.calls, "skipped imports must not be looked up")
}

func TestReference_CMakeIsRemote(t *testing.T) {
	t.Parallel()
	idx := newFakeIndex()
	r := New(idx, idx)

	res, err := r.Reference(ctx, token.GitRepoAt("https://github.com/google/googletest.git", "v1.14.0"))
	require.NoError(t, err)
	assert.Equal(t, Remote, res.Outcome)
	assert.Equal(t, "https://github.com/google/googletest.git", res.Key)
	assert.Empty(t, idx.calls)
}

func TestInvocation(t *testing.T) {
	t.Parallel()
	idx := newFakeIndex()
	idx.files["git"] = []store.FileMatch{{Package: "git", Path: "/usr/bin/git"}}
	r := New(idx, idx)

	res, err := r.Invocation(ctx, token.Python, token.Application("Git"))
	require.NoError(t, err)
	assert.Equal(t, Resolved, res.Outcome)
	assert.Equal(t, "git", res.Key)
	assert.Equal(t, []Candidate{{Package: "git", Path: "/usr/bin/git"}}, res.Candidates)

	res, err = r.Invocation(ctx, token.Cpp, token.Application("frobnicate"))
	require.NoError(t, err)
	assert.Equal(t, Unresolved, res.Outcome)
}

func TestMemoization(t *testing.T) {
	t.Parallel()
	idx := newFakeIndex()
	idx.imports["numpy"] = []string{"numpy"}
	r := New(idx, idx)

	for _, ref := range []token.Reference{
		token.Module("numpy"),
		token.Alias("numpy", "np"),
		token.FromModule("numpy.linalg", "norm"),
		token.SystemInclude("zlib.h"),
		token.UserInclude("zlib.h"),
	} {
		_, err := r.Reference(ctx, ref)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, idx.calls["import:numpy"])
	assert.Equal(t, 1, idx.calls["file:zlib.h"])
}

func TestLookupError(t *testing.T) {
	t.Parallel()
	idx := newFakeIndex()
	idx.err = errors.New("disk on fire")
	r := New(idx, idx)

	_, err := r.Reference(ctx, token.SystemInclude("zlib.h"))
	assert.ErrorContains(t, err, "disk on fire")
}

func TestNilIndexes(t *testing.T) {
	t.Parallel()
	r := New(nil, nil)

	res, err := r.Reference(ctx, token.Module("numpy"))
	require.NoError(t, err)
	assert.Equal(t, Unresolved, res.Outcome)
}

// =============================================================================
// Ranking
// =============================================================================

type reverseRanker struct{}

func (reverseRanker) Rank(_ context.Context, _ rank.Subject, c []Candidate) ([]Candidate, error) {
	out := make([]Candidate, len(c))
	for i := range c {
		out[len(c)-1-i] = c[i]
	}
	return out, nil
}

type failingRanker struct{}

func (failingRanker) Rank(context.Context, rank.Subject, []Candidate) ([]Candidate, error) {
	return nil, errors.New("boom")
}

func TestRanker(t *testing.T) {
	t.Parallel()
	idx := newFakeIndex()
	idx.imports["yaml"] = []string{"pyyaml", "ruamel-yaml"}

	res, err := New(idx, idx, WithRanker(reverseRanker{})).Reference(ctx, token.Module("yaml"))
	require.NoError(t, err)
	assert.Equal(t, []Candidate{{Package: "ruamel-yaml"}, {Package: "pyyaml"}}, res.Candidates)

	res, err = New(idx, idx, WithRanker(failingRanker{})).Reference(ctx, token.Module("yaml"))
	require.NoError(t, err)
	assert.Equal(t, []Candidate{{Package: "pyyaml"}, {Package: "ruamel-yaml"}}, res.Candidates)
}

func TestRankerCanDropEverything(t *testing.T) {
	t.Parallel()
	idx := newFakeIndex()
	idx.imports["yaml"] = []string{"pyyaml"}

	s := rank.NewScript(`[]`, "<inline>", nil)
	res, err := New(idx, idx, WithRanker(s)).Reference(ctx, token.Module("yaml"))
	require.NoError(t, err)
	assert.Equal(t, Unresolved, res.Outcome)
}
