// Package resolve maps extracted tokens to the packages that may provide
// them.
//
// A Resolver is used from a single goroutine after extraction has finished.
// Lookups are memoized per key for the lifetime of the Resolver, so one
// Resolver should serve exactly one scan.
package resolve

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/jward/dapper/internal/rank"
	"github.com/jward/dapper/internal/soname"
	"github.com/jward/dapper/internal/store"
	"github.com/jward/dapper/internal/token"
)

// Candidate is one package that may provide a token.
type Candidate = rank.Candidate

// KindInvocation is the ranking subject kind used for invocation tokens.
const KindInvocation = "invocation"

// Outcome classifies what happened to a token during resolution.
type Outcome int

const (
	// Resolved tokens have at least one candidate.
	Resolved Outcome = iota
	// Unresolved tokens were looked up and nothing matched.
	Unresolved
	// Skipped tokens are not looked up: relative and standard-library
	// Python imports.
	Skipped
	// Remote tokens name a dependency fetched at build time.
	Remote
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Unresolved:
		return "unresolved"
	case Skipped:
		return "skipped"
	case Remote:
		return "remote"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is the resolution of one token.
type Result struct {
	Outcome    Outcome
	Key        string
	Candidates []Candidate
}

// Resolver looks tokens up in the package indexes.
type Resolver struct {
	files   store.FileIndex
	imports store.ImportIndex
	ranker  rank.Ranker
	logger  *log.Logger

	byName       map[string][]store.FileMatch
	byNormalized map[string][]store.FileMatch
	byImport     map[string][]string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRanker orders every candidate list with rk.
func WithRanker(rk rank.Ranker) Option {
	return func(r *Resolver) {
		if rk != nil {
			r.ranker = rk
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Resolver. Nil indexes behave as empty ones.
func New(files store.FileIndex, imports store.ImportIndex, opts ...Option) *Resolver {
	if files == nil {
		files = store.Empty{}
	}
	if imports == nil {
		imports = store.Empty{}
	}
	r := &Resolver{
		files:        files,
		imports:      imports,
		ranker:       rank.Identity{},
		logger:       log.New(io.Discard),
		byName:       make(map[string][]store.FileMatch),
		byNormalized: make(map[string][]store.FileMatch),
		byImport:     make(map[string][]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reference resolves a header, module or remote reference.
func (r *Resolver) Reference(ctx context.Context, ref token.Reference) (Result, error) {
	switch ref.Language {
	case token.Cpp:
		return r.include(ctx, ref)
	case token.Python:
		return r.module(ctx, ref)
	case token.CMake:
		return Result{Outcome: Remote, Key: ref.Name}, nil
	default:
		return Result{}, fmt.Errorf("resolve: unsupported language %q", ref.Language)
	}
}

// Invocation resolves a program name against the file index. l is the
// language of the file the invocation came from.
func (r *Resolver) Invocation(ctx context.Context, l token.Language, inv token.Invocation) (Result, error) {
	key := strings.ToLower(inv.Command)
	if key == "" {
		return Result{Outcome: Unresolved}, nil
	}
	rows, err := r.filesByName(key)
	if err != nil {
		return Result{}, err
	}

	candidates := fromFiles(rows)
	subject := rank.Subject{Language: string(l), Kind: KindInvocation, Token: inv.Command, Key: key}
	return r.finish(ctx, subject, candidates), nil
}

func (r *Resolver) include(ctx context.Context, ref token.Reference) (Result, error) {
	key := IncludeKey(ref.Name)
	if key == "" {
		return Result{Outcome: Unresolved}, nil
	}
	rows, err := r.filesByName(key)
	if err != nil {
		return Result{}, err
	}

	var matched []store.FileMatch
	for _, row := range rows {
		if IncludeMatches(row.Path, ref.Name) {
			matched = append(matched, row)
		}
	}

	if n, ok := soname.NormalizeFileName(key); ok && n.Name != "" {
		more, err := r.filesByNormalizedName(n.Name)
		if err != nil {
			return Result{}, err
		}
		matched = append(matched, more...)
	}

	subject := rank.Subject{Language: string(ref.Language), Kind: string(ref.Kind), Token: ref.String(), Key: key}
	return r.finish(ctx, subject, fromFiles(matched)), nil
}

func (r *Resolver) module(ctx context.Context, ref token.Reference) (Result, error) {
	key, ok := PythonKey(ref.Name)
	if !ok {
		return Result{Outcome: Skipped, Key: key}, nil
	}
	pkgs, err := r.packagesByImport(key)
	if err != nil {
		return Result{}, err
	}

	candidates := make([]Candidate, 0, len(pkgs))
	seen := make(map[string]bool, len(pkgs))
	for _, p := range pkgs {
		if seen[p] {
			continue
		}
		seen[p] = true
		candidates = append(candidates, Candidate{Package: p})
	}

	subject := rank.Subject{Language: string(ref.Language), Kind: string(ref.Kind), Token: ref.String(), Key: key}
	return r.finish(ctx, subject, candidates), nil
}

// finish ranks candidates and classifies the result. A failing ranker is
// logged and the lookup order kept.
func (r *Resolver) finish(ctx context.Context, subject rank.Subject, candidates []Candidate) Result {
	if len(candidates) == 0 {
		return Result{Outcome: Unresolved, Key: subject.Key}
	}
	ranked, err := r.ranker.Rank(ctx, subject, candidates)
	if err != nil {
		r.logger.Warn("ranking failed, keeping lookup order", "token", subject.Token, "err", err)
		ranked = candidates
	}
	if len(ranked) == 0 {
		return Result{Outcome: Unresolved, Key: subject.Key}
	}
	return Result{Outcome: Resolved, Key: subject.Key, Candidates: ranked}
}

func (r *Resolver) filesByName(key string) ([]store.FileMatch, error) {
	if rows, ok := r.byName[key]; ok {
		return rows, nil
	}
	rows, err := r.files.FilesByName(key)
	if err != nil {
		return nil, fmt.Errorf("resolve: file lookup %q: %w", key, err)
	}
	r.byName[key] = rows
	return rows, nil
}

func (r *Resolver) filesByNormalizedName(key string) ([]store.FileMatch, error) {
	if rows, ok := r.byNormalized[key]; ok {
		return rows, nil
	}
	rows, err := r.files.FilesByNormalizedName(key)
	if err != nil {
		return nil, fmt.Errorf("resolve: normalized file lookup %q: %w", key, err)
	}
	r.byNormalized[key] = rows
	return rows, nil
}

func (r *Resolver) packagesByImport(key string) ([]string, error) {
	if pkgs, ok := r.byImport[key]; ok {
		return pkgs, nil
	}
	pkgs, err := r.imports.PackagesByImport(key)
	if err != nil {
		return nil, fmt.Errorf("resolve: import lookup %q: %w", key, err)
	}
	r.byImport[key] = pkgs
	return pkgs, nil
}

// fromFiles converts file matches to candidates, dropping repeated
// (package, path) pairs.
func fromFiles(rows []store.FileMatch) []Candidate {
	out := make([]Candidate, 0, len(rows))
	seen := make(map[Candidate]bool, len(rows))
	for _, row := range rows {
		c := Candidate{Package: row.Package, Path: row.Path}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// IncludeKey is the lookup key for an include path: its last component,
// lower-cased.
func IncludeKey(include string) string {
	if i := strings.LastIndexByte(include, '/'); i >= 0 {
		include = include[i+1:]
	}
	return strings.ToLower(include)
}

// IncludeMatches reports whether filePath provides include: the path must
// end with every component of include, compared whole component by whole
// component, and must contain "include" somewhere.
func IncludeMatches(filePath, include string) bool {
	if !strings.Contains(filePath, "include") {
		return false
	}
	have := components(filePath)
	want := components(include)
	if len(want) == 0 || len(want) > len(have) {
		return false
	}
	tail := have[len(have)-len(want):]
	for i := range want {
		if tail[i] != want[i] {
			return false
		}
	}
	return true
}

// components splits p on '/', dropping empty and "." components.
func components(p string) []string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			out = append(out, part)
		}
	}
	return out
}

// PythonKey is the lookup key for an imported module: its first dotted
// segment. ok is false for relative and standard-library imports.
func PythonKey(module string) (key string, ok bool) {
	if strings.HasPrefix(module, ".") {
		return module, false
	}
	key, _, _ = strings.Cut(module, ".")
	if IsStdlib(key) {
		return key, false
	}
	return key, true
}
