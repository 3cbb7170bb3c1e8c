// Package lang maps source files to the languages dapper understands and
// supplies the tree-sitter grammars used to parse them.
package lang

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/jward/dapper/internal/token"
)

// extToLanguage maps lowercased file extensions to languages. C sources are
// parsed with the C++ grammar, which accepts the C subset dapper queries.
var extToLanguage = map[string]token.Language{
	".h":    token.Cpp,
	".c":    token.Cpp,
	".hh":   token.Cpp,
	".cc":   token.Cpp,
	".hpp":  token.Cpp,
	".cpp":  token.Cpp,
	".h++":  token.Cpp,
	".c++":  token.Cpp,
	".hxx":  token.Cpp,
	".cxx":  token.Cpp,
	".cppm": token.Cpp,
	".ccm":  token.Cpp,
	".c++m": token.Cpp,
	".cxxm": token.Cpp,
	".ipp":  token.Cpp,
	".ixx":  token.Cpp,
	".inl":  token.Cpp,
	".tcc":  token.Cpp,
	".tpp":  token.Cpp,

	".py": token.Python,

	".cmake": token.CMake,
}

// cmakeListsFile is matched case-insensitively against the base name.
const cmakeListsFile = "cmakelists.txt"

// All lists the supported languages in report order.
var All = []token.Language{token.Cpp, token.Python, token.CMake}

// LanguageForFile returns the language of path based on its extension, or
// its name for CMakeLists.txt. Returns ("", false) for anything else.
func LanguageForFile(path string) (token.Language, bool) {
	base := filepath.Base(path)
	if strings.ToLower(base) == cmakeListsFile {
		return token.CMake, true
	}
	l, ok := extToLanguage[strings.ToLower(filepath.Ext(base))]
	return l, ok
}

// Matches reports whether path belongs to l.
func Matches(l token.Language, path string) bool {
	got, ok := LanguageForFile(path)
	return ok && got == l
}

// Grammar returns the tree-sitter grammar for l. CMake has no grammar and
// reports false.
func Grammar(l token.Language) (*sitter.Language, bool) {
	switch l {
	case token.Cpp:
		return cpp.GetLanguage(), true
	case token.Python:
		return python.GetLanguage(), true
	default:
		return nil, false
	}
}

// Parse converts language names such as "cpp" or "Python" to languages.
// Names it does not recognize are returned separately.
func Parse(names []string) (langs []token.Language, unknown []string) {
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		switch token.Language(name) {
		case token.Cpp, token.Python, token.CMake:
			langs = append(langs, token.Language(name))
		default:
			unknown = append(unknown, name)
		}
	}
	return langs, unknown
}
