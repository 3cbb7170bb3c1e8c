// Package extract pulls dependency tokens out of C/C++, Python and CMake
// sources.
//
// Each language has one Extractor. Extractors are safe for concurrent use:
// compiled queries are shared, while parsers and query cursors are created
// per call.
package extract

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/dapper/internal/lang"
	"github.com/jward/dapper/internal/token"
)

// Extraction is everything one file contributes.
type Extraction struct {
	References  []token.Reference
	Invocations []token.Invocation
}

// Empty reports whether the extraction holds no tokens.
func (e Extraction) Empty() bool {
	return len(e.References) == 0 && len(e.Invocations) == 0
}

// Extractor is the per-language capability set used by the scan pipeline.
type Extractor interface {
	Language() token.Language
	// Matches is the discovery predicate for this language.
	Matches(path string) bool
	ExtractReferences(ctx context.Context, path string, src []byte) ([]token.Reference, error)
	ExtractInvocations(ctx context.Context, path string, src []byte) ([]token.Invocation, error)
	// Extract parses src once and returns both token kinds.
	Extract(ctx context.Context, path string, src []byte) (Extraction, error)
	Close()
}

var (
	_ Extractor = (*CppExtractor)(nil)
	_ Extractor = (*PythonExtractor)(nil)
	_ Extractor = (*CMakeExtractor)(nil)
)

// New builds the extractor for l.
func New(l token.Language, logger *log.Logger) (Extractor, error) {
	switch l {
	case token.Cpp:
		return NewCpp(logger)
	case token.Python:
		return NewPython(logger)
	case token.CMake:
		return NewCMake(logger), nil
	default:
		return nil, fmt.Errorf("extract: unsupported language %q", l)
	}
}

// NewSet builds one extractor per language, in the order given. On error
// any extractors already built are closed.
func NewSet(langs []token.Language, logger *log.Logger) ([]Extractor, error) {
	out := make([]Extractor, 0, len(langs))
	for _, l := range langs {
		ex, err := New(l, logger)
		if err != nil {
			for _, built := range out {
				built.Close()
			}
			return nil, err
		}
		out = append(out, ex)
	}
	return out, nil
}

func orDiscard(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.New(io.Discard)
	}
	return logger
}

// grammar wraps the tree-sitter language an extractor parses with.
type grammar struct {
	lang *sitter.Language
}

func newGrammar(l token.Language) (grammar, error) {
	g, ok := lang.Grammar(l)
	if !ok {
		return grammar{}, fmt.Errorf("extract: no grammar for %s", l)
	}
	return grammar{lang: g}, nil
}

func (g grammar) compile(name, pattern string) (*sitter.Query, error) {
	q, err := sitter.NewQuery([]byte(pattern), g.lang)
	if err != nil {
		return nil, fmt.Errorf("extract: compiling %s query: %w", name, err)
	}
	return q, nil
}

// parse builds a fresh parser for each call; parsers are not goroutine-safe.
func (g grammar) parse(ctx context.Context, path string, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(g.lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("extract: parsing %s: %w", path, err)
	}
	return tree, nil
}

// captures maps capture names to nodes for one query match.
type captures map[string]*sitter.Node

func (c captures) text(name string, src []byte) (string, bool) {
	n, ok := c[name]
	if !ok || n == nil {
		return "", false
	}
	return n.Content(src), true
}

// eachMatch runs q over root and calls fn with the captures of every match
// that survives the query's predicates.
func eachMatch(q *sitter.Query, root *sitter.Node, src []byte, fn func(captures)) {
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)

	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		m = qc.FilterPredicates(m, src)
		if len(m.Captures) == 0 {
			continue
		}
		caps := make(captures, len(m.Captures))
		for _, c := range m.Captures {
			caps[q.CaptureNameForId(c.Index)] = c.Node
		}
		fn(caps)
	}
}

// set accumulates comparable values in first-seen order.
type set[T comparable] struct {
	seen  map[T]struct{}
	items []T
}

func (s *set[T]) add(v T) {
	if s.seen == nil {
		s.seen = make(map[T]struct{})
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}
