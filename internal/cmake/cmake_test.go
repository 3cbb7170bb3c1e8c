package cmake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripComments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"none", "project(x)\n", "project(x)\n"},
		{"line", "set(A 1) # trailing\nset(B 2)\n", "set(A 1) \nset(B 2)\n"},
		{"line at eof", "set(A 1) # end", "set(A 1) "},
		{"bracket", "#[[ block\ncomment ]]set(A 1)", "set(A 1)"},
		{"bracket with level", "#[==[ a ]] still ]==]x()", "x()"},
		{"hash in quotes", `set(U "http://x/#frag")`, `set(U "http://x/#frag")`},
		{"hash in bracket arg", "set(U [[a # b]])", "set(U [[a # b]])"},
		{"escaped hash", `set(U a\#b)`, `set(U a\#b)`},
		{"adjacent comments", "#a\n#b\nx()", "\n\nx()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, StripComments(tt.src))
		})
	}
}

func TestMergeRanges(t *testing.T) {
	t.Parallel()

	got := mergeRanges([]byteRange{{10, 12}, {0, 4}, {3, 6}, {6, 8}})
	assert.Equal(t, []byteRange{{0, 8}, {10, 12}}, got)
	assert.Nil(t, mergeRanges(nil))
}

func TestParse_Arguments(t *testing.T) {
	t.Parallel()

	src := `
cmake_minimum_required(VERSION 3.14)
FetchContent_Declare(
  googletest
  GIT_REPOSITORY "https://github.com/google/googletest.git" # pinned below
  GIT_TAG        v1.14.0
)
`
	cmds := Parse(src)
	require.Len(t, cmds, 2)

	assert.Equal(t, "cmake_minimum_required", cmds[0].Name)
	assert.Equal(t, []string{"VERSION", "3.14"}, cmds[0].Args)
	assert.Equal(t, 2, cmds[0].Line)

	assert.Equal(t, "FetchContent_Declare", cmds[1].Name)
	assert.Equal(t, []string{
		"googletest",
		"GIT_REPOSITORY", "https://github.com/google/googletest.git",
		"GIT_TAG", "v1.14.0",
	}, cmds[1].Args)
	assert.Equal(t, 3, cmds[1].Line)
}

func TestParse_NestedParensFlattened(t *testing.T) {
	t.Parallel()

	cmds := Parse(`if((A AND B) OR C)`)
	require.Len(t, cmds, 1)
	assert.Equal(t, []string{"A", "AND", "B", "OR", "C"}, cmds[0].Args)
}

func TestParse_BracketArgument(t *testing.T) {
	t.Parallel()

	cmds := Parse("message([=[\nhello ]] world]=])")
	require.Len(t, cmds, 1)
	assert.Equal(t, []string{"hello ]] world"}, cmds[0].Args)
}

func TestParse_CommentedOutCommand(t *testing.T) {
	t.Parallel()

	cmds := Parse("# ExternalProject_Add(x URL http://a)\n#[[\nFetchContent_Declare(y)\n]]\nproject(z)")
	require.Len(t, cmds, 1)
	assert.Equal(t, "project", cmds[0].Name)
}

func TestParse_UnterminatedDropped(t *testing.T) {
	t.Parallel()

	cmds := Parse("project(a)\nset(B 1")
	require.Len(t, cmds, 1)
	assert.Equal(t, "project", cmds[0].Name)
}

func TestParse_EmptyArgs(t *testing.T) {
	t.Parallel()

	cmds := Parse("enable_testing()")
	require.Len(t, cmds, 1)
	assert.Empty(t, cmds[0].Args)
}
