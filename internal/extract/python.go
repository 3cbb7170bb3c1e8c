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

// `from __future__ import x` is a future_import_statement and never matches.
const pythonImportQuery = `
(import_statement
  name: [
    (dotted_name) @module
    (aliased_import name: (dotted_name) @module alias: (_) @alias)
  ])

(import_from_statement
  module_name: [
    (dotted_name) @module
    (relative_import) @module
  ]
  name: [
    (dotted_name) @item
    (aliased_import name: (dotted_name) @item alias: (_) @alias)
  ])
`

const pythonSyscallQuery = `
(call
  function: (identifier) @function_name
  arguments: (argument_list) @arg_list)

(call
  function: (attribute
    object: (identifier) @module
    attribute: (identifier) @function_name)
  arguments: (argument_list) @arg_list)
`

// pythonSpawnFuncs are qualified module.function names, matched exactly.
// Unqualified calls such as run(...) are never treated as spawns.
var pythonSpawnFuncs = map[string]bool{
	"os.system":      true,
	"subprocess.run": true,
	"os.run":         true,
}

// PythonExtractor extracts import statements and os/subprocess calls from
// Python sources.
type PythonExtractor struct {
	grammar  grammar
	imports  *sitter.Query
	syscalls *sitter.Query
	logger   *log.Logger
}

// NewPython compiles the Python queries.
func NewPython(logger *log.Logger) (*PythonExtractor, error) {
	g, err := newGrammar(token.Python)
	if err != nil {
		return nil, err
	}
	imports, err := g.compile("Python import", pythonImportQuery)
	if err != nil {
		return nil, err
	}
	syscalls, err := g.compile("Python syscall", pythonSyscallQuery)
	if err != nil {
		imports.Close()
		return nil, err
	}
	return &PythonExtractor{
		grammar:  g,
		imports:  imports,
		syscalls: syscalls,
		logger:   orDiscard(logger),
	}, nil
}

func (e *PythonExtractor) Language() token.Language { return token.Python }

func (e *PythonExtractor) Matches(path string) bool { return lang.Matches(token.Python, path) }

func (e *PythonExtractor) ExtractReferences(ctx context.Context, path string, src []byte) ([]token.Reference, error) {
	tree, err := e.grammar.parse(ctx, path, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	return e.references(path, tree.RootNode(), src), nil
}

func (e *PythonExtractor) ExtractInvocations(ctx context.Context, path string, src []byte) ([]token.Invocation, error) {
	tree, err := e.grammar.parse(ctx, path, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	return e.invocations(tree.RootNode(), src), nil
}

func (e *PythonExtractor) Extract(ctx context.Context, path string, src []byte) (Extraction, error) {
	tree, err := e.grammar.parse(ctx, path, src)
	if err != nil {
		return Extraction{}, err
	}
	defer tree.Close()
	root := tree.RootNode()
	return Extraction{
		References:  e.references(path, root, src),
		Invocations: e.invocations(root, src),
	}, nil
}

func (e *PythonExtractor) Close() {
	e.imports.Close()
	e.syscalls.Close()
}

func (e *PythonExtractor) references(path string, root *sitter.Node, src []byte) []token.Reference {
	var refs set[token.Reference]
	eachMatch(e.imports, root, src, func(c captures) {
		module, hasModule := c.text("module", src)
		item, hasItem := c.text("item", src)
		alias, hasAlias := c.text("alias", src)

		switch {
		case !hasModule:
			e.logger.Warn("unexpected import shape", "path", path, "line", lineOf(c))
		case hasItem && hasAlias:
			refs.add(token.FromAlias(module, item, alias))
		case hasItem:
			refs.add(token.FromModule(module, item))
		case hasAlias:
			refs.add(token.Alias(module, alias))
		default:
			refs.add(token.Module(module))
		}
	})
	return refs.items
}

func (e *PythonExtractor) invocations(root *sitter.Node, src []byte) []token.Invocation {
	var calls set[token.Invocation]
	eachMatch(e.syscalls, root, src, func(c captures) {
		module, ok := c.text("module", src)
		if !ok {
			return
		}
		fn, _ := c.text("function_name", src)
		if !pythonSpawnFuncs[module+"."+fn] {
			return
		}

		// Every positional string argument is a candidate command; keyword
		// arguments such as shell=True are not.
		walk(c["arg_list"], func(n *sitter.Node) action {
			switch n.Type() {
			case "keyword_argument":
				return skip
			case "string":
				if program := shell.Program(cleanPythonString(n.Content(src))); program != "" {
					calls.add(token.Application(program))
				}
				return skip
			default:
				return descend
			}
		})
	})
	return calls.items
}

// cleanPythonString strips quote characters from a string literal and joins
// its lines.
func cleanPythonString(raw string) string {
	s := strings.Trim(raw, `"`)
	s = strings.Trim(s, `'`)
	return strings.ReplaceAll(s, "\n", " ")
}

// lineOf returns the 1-based line of any captured node, or 0.
func lineOf(c captures) int {
	for _, n := range c {
		if n != nil {
			return int(n.StartPoint().Row) + 1
		}
	}
	return 0
}
