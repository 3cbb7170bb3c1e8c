package extract

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/dapper/internal/lang"
	"github.com/jward/dapper/internal/shell"
	"github.com/jward/dapper/internal/token"
)

const cppIncludeQuery = `
(preproc_include (system_lib_string) @system_include)
(preproc_include (string_literal) @user_include)
`

const cppSyscallQuery = `
(call_expression
  function: (identifier) @function_name
  arguments: (argument_list) @arg_list)
`

// cppSpawnFuncs are matched case-insensitively against the callee name.
var cppSpawnFuncs = []string{"system", "execlp", "execve"}

// CppExtractor extracts #include directives and system/exec calls from C and
// C++ sources.
type CppExtractor struct {
	grammar  grammar
	includes *sitter.Query
	syscalls *sitter.Query
	logger   *log.Logger
}

// NewCpp compiles the C/C++ queries.
func NewCpp(logger *log.Logger) (*CppExtractor, error) {
	g, err := newGrammar(token.Cpp)
	if err != nil {
		return nil, err
	}
	includes, err := g.compile("C++ include", cppIncludeQuery)
	if err != nil {
		return nil, err
	}
	syscalls, err := g.compile("C++ syscall", cppSyscallQuery)
	if err != nil {
		includes.Close()
		return nil, err
	}
	return &CppExtractor{
		grammar:  g,
		includes: includes,
		syscalls: syscalls,
		logger:   orDiscard(logger),
	}, nil
}

func (e *CppExtractor) Language() token.Language { return token.Cpp }

func (e *CppExtractor) Matches(path string) bool { return lang.Matches(token.Cpp, path) }

func (e *CppExtractor) ExtractReferences(ctx context.Context, path string, src []byte) ([]token.Reference, error) {
	tree, err := e.grammar.parse(ctx, path, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	return e.references(tree.RootNode(), src), nil
}

func (e *CppExtractor) ExtractInvocations(ctx context.Context, path string, src []byte) ([]token.Invocation, error) {
	tree, err := e.grammar.parse(ctx, path, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	return e.invocations(tree.RootNode(), src), nil
}

func (e *CppExtractor) Extract(ctx context.Context, path string, src []byte) (Extraction, error) {
	tree, err := e.grammar.parse(ctx, path, src)
	if err != nil {
		return Extraction{}, err
	}
	defer tree.Close()
	root := tree.RootNode()
	return Extraction{
		References:  e.references(root, src),
		Invocations: e.invocations(root, src),
	}, nil
}

func (e *CppExtractor) Close() {
	e.includes.Close()
	e.syscalls.Close()
}

func (e *CppExtractor) references(root *sitter.Node, src []byte) []token.Reference {
	var refs set[token.Reference]
	eachMatch(e.includes, root, src, func(c captures) {
		if text, ok := c.text("system_include", src); ok {
			refs.add(token.SystemInclude(stripDelimiters(text)))
		}
		if text, ok := c.text("user_include", src); ok {
			refs.add(token.UserInclude(stripDelimiters(text)))
		}
	})
	return refs.items
}

func (e *CppExtractor) invocations(root *sitter.Node, src []byte) []token.Invocation {
	var calls set[token.Invocation]
	eachMatch(e.syscalls, root, src, func(c captures) {
		name, ok := c.text("function_name", src)
		if !ok || !isCppSpawnFunc(name) {
			return
		}
		// Only the first string literal in the argument list names the
		// program, e.g. execlp("ls", "ls", "-a", ...).
		lit := firstOfType(c["arg_list"], "string_literal")
		if lit == nil {
			return
		}
		cmd := strings.Trim(lit.Content(src), `"`)
		if program := shell.Program(cmd); program != "" {
			calls.add(token.Application(program))
		}
	})
	return calls.items
}

func isCppSpawnFunc(name string) bool {
	for _, fn := range cppSpawnFuncs {
		if strings.EqualFold(name, fn) {
			return true
		}
	}
	return false
}

// stripDelimiters drops the first and last characters of an include path
// literal: the angle brackets or quotes.
func stripDelimiters(s string) string {
	if len(s) < 2 {
		return ""
	}
	return s[1 : len(s)-1]
}
