package dapper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/jward/dapper/internal/discover"
	"github.com/jward/dapper/internal/extract"
	"github.com/jward/dapper/internal/lang"
	"github.com/jward/dapper/internal/rank"
	"github.com/jward/dapper/internal/resolve"
	"github.com/jward/dapper/internal/store"
	"github.com/jward/dapper/internal/token"
)

// Engine orchestrates the dapper pipeline: source discovery, parallel token
// extraction, aggregation, and package resolution.
//
// An Engine can run any number of scans. Nothing carries over from one scan
// to the next.
type Engine struct {
	logger            *log.Logger
	workers           int
	languages         []token.Language
	gitignore         bool
	includeUnresolved bool
	ranker            rank.Ranker

	linuxDB  string
	pythonDB string
	files    store.FileIndex
	imports  store.ImportIndex
	closers  []io.Closer

	extractors []extract.Extractor
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used by the Engine and its extractors.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithWorkers sets the extraction pool size. Values below one fall back to
// the number of CPUs.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLanguages restricts which languages the Engine scans.
func WithLanguages(languages ...token.Language) Option {
	return func(e *Engine) {
		e.languages = languages
	}
}

// WithGitignore skips files matched by the scan root's .gitignore.
func WithGitignore(enabled bool) Option {
	return func(e *Engine) {
		e.gitignore = enabled
	}
}

// WithIncludeUnresolved reports tokens that matched no package.
func WithIncludeUnresolved(enabled bool) Option {
	return func(e *Engine) {
		e.includeUnresolved = enabled
	}
}

// WithRanker orders candidate packages. The default keeps lookup order.
func WithRanker(r Ranker) Option {
	return func(e *Engine) {
		e.ranker = r
	}
}

// WithDatabases opens the Linux file index and the Python import index from
// SQLite files. A path that is empty or does not exist leaves that index
// empty.
func WithDatabases(linuxDB, pythonDB string) Option {
	return func(e *Engine) {
		e.linuxDB = linuxDB
		e.pythonDB = pythonDB
	}
}

// WithFileIndex uses idx for header and program lookups instead of a
// database file.
func WithFileIndex(idx store.FileIndex) Option {
	return func(e *Engine) {
		e.files = idx
	}
}

// WithImportIndex uses idx for Python import lookups instead of a database
// file.
func WithImportIndex(idx store.ImportIndex) Option {
	return func(e *Engine) {
		e.imports = idx
	}
}

// New creates an Engine. Extractors for every selected language are built
// up front; a grammar or query that fails to compile is returned as an
// error.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:    log.NewWithOptions(os.Stderr, log.Options{Level: log.WarnLevel}),
		workers:   runtime.NumCPU(),
		languages: lang.All,
		ranker:    rank.Identity{},
	}
	for _, opt := range opts {
		opt(e)
	}

	extractors, err := extract.NewSet(e.languages, e.logger)
	if err != nil {
		return nil, fmt.Errorf("dapper: build extractors: %w", err)
	}
	e.extractors = extractors

	if e.files == nil {
		e.files = e.openFileIndex()
	}
	if e.imports == nil {
		e.imports = e.openImportIndex()
	}
	return e, nil
}

func (e *Engine) openFileIndex() store.FileIndex {
	if e.linuxDB == "" {
		return store.Empty{}
	}
	fs, err := store.OpenFileStore(e.linuxDB, e.logger)
	if err != nil {
		e.warnIndex("linux", e.linuxDB, err)
		return store.Empty{}
	}
	e.closers = append(e.closers, fs)
	return fs
}

func (e *Engine) openImportIndex() store.ImportIndex {
	if e.pythonDB == "" {
		return store.Empty{}
	}
	is, err := store.OpenImportStore(e.pythonDB)
	if err != nil {
		e.warnIndex("python", e.pythonDB, err)
		return store.Empty{}
	}
	e.closers = append(e.closers, is)
	return is
}

func (e *Engine) warnIndex(name, path string, err error) {
	if errors.Is(err, store.ErrNoDatabase) {
		e.logger.Warn("package index not installed, lookups will find nothing", "index", name, "path", path)
		return
	}
	e.logger.Warn("package index unusable, lookups will find nothing", "index", name, "path", path, "err", err)
}

// Close releases the extractors and any databases the Engine opened.
func (e *Engine) Close() error {
	for _, ex := range e.extractors {
		ex.Close()
	}
	e.extractors = nil

	var errs []error
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// Languages returns the languages the Engine scans.
func (e *Engine) Languages() []token.Language {
	return e.languages
}

// Matches reports whether any of the Engine's extractors handles path.
func (e *Engine) Matches(path string) bool {
	for _, ex := range e.extractors {
		if ex.Matches(path) {
			return true
		}
	}
	return false
}

// Scan discovers source files under root (a directory or a single file),
// extracts dependency tokens from them in parallel, and resolves the tokens
// against the package indexes.
func (e *Engine) Scan(ctx context.Context, root string) (*Report, error) {
	paths, err := discover.Files(root, e.Matches, discover.WithGitignore(e.gitignore))
	if err != nil {
		return nil, fmt.Errorf("dapper: discover %s: %w", root, err)
	}
	e.logger.Debug("discovered source files", "root", root, "files", len(paths))

	agg := e.extractAll(ctx, paths)

	report := &Report{
		Root:     root,
		Resolved: []Resolution{},
		Remote:   []RemoteDependency{},
		Stats: Stats{
			Files:        len(agg.files),
			FilesSkipped: len(agg.skipped),
			References:   len(agg.references),
			Invocations:  len(agg.invocations),
		},
	}

	r := resolve.New(e.files, e.imports,
		resolve.WithRanker(e.ranker),
		resolve.WithLogger(e.logger),
	)
	for _, ref := range sortedReferences(agg.references) {
		res, err := r.Reference(ctx, ref)
		if err != nil {
			e.logger.Warn("lookup failed", "token", ref.String(), "err", err)
			res = resolve.Result{Outcome: resolve.Unresolved}
		}
		e.record(report, res, string(ref.Language), string(ref.Kind), ref.String(), agg.references[ref], ref)
	}
	for _, k := range sortedInvocations(agg.invocations) {
		res, err := r.Invocation(ctx, k.Language, k.Invocation)
		if err != nil {
			e.logger.Warn("lookup failed", "command", k.Invocation.Command, "err", err)
			res = resolve.Result{Outcome: resolve.Unresolved}
		}
		e.record(report, res, string(k.Language), resolve.KindInvocation, k.Invocation.Command, agg.invocations[k], token.Reference{})
	}

	sortResolutions(report.Resolved)
	sortResolutions(report.Unresolved)
	sort.Slice(report.Remote, func(i, j int) bool {
		a, b := report.Remote[i], report.Remote[j]
		if a.URL != b.URL {
			return a.URL < b.URL
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Tag < b.Tag
	})
	return report, nil
}

// record files one resolution result into the report. ref is only read for
// remote results.
func (e *Engine) record(report *Report, res resolve.Result, language, kind, tok string, files []string, ref token.Reference) {
	files = sortedFiles(files)
	switch res.Outcome {
	case resolve.Resolved:
		report.Stats.Resolved++
		report.Resolved = append(report.Resolved, Resolution{
			Language:   language,
			Kind:       kind,
			Token:      tok,
			Key:        res.Key,
			Packages:   packageNames(res.Candidates),
			Candidates: res.Candidates,
			Files:      files,
		})
	case resolve.Unresolved:
		report.Stats.Unresolved++
		if e.includeUnresolved {
			report.Unresolved = append(report.Unresolved, Resolution{
				Language: language,
				Kind:     kind,
				Token:    tok,
				Key:      res.Key,
				Files:    files,
			})
		}
	case resolve.Remote:
		report.Stats.Remote++
		report.Remote = append(report.Remote, RemoteDependency{
			Kind:  string(ref.Kind),
			URL:   ref.Name,
			Tag:   ref.Tag,
			Files: files,
		})
	case resolve.Skipped:
		report.Stats.Ignored++
	}
}

func packageNames(candidates []Candidate) []string {
	var out []string
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if seen[c.Package] {
			continue
		}
		seen[c.Package] = true
		out = append(out, c.Package)
	}
	return out
}

func sortedFiles(files []string) []string {
	out := append([]string(nil), files...)
	sort.Strings(out)
	return out
}

func sortedReferences(m Occurrences[token.Reference]) []token.Reference {
	out := make([]token.Reference, 0, len(m))
	for ref := range m {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Language != b.Language {
			return a.Language < b.Language
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.String() < b.String()
	})
	return out
}

func sortedInvocations(m Occurrences[invocationKey]) []invocationKey {
	out := make([]invocationKey, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Language != out[j].Language {
			return out[i].Language < out[j].Language
		}
		return out[i].Invocation.Command < out[j].Invocation.Command
	})
	return out
}

func sortResolutions(rs []Resolution) {
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.Language != b.Language {
			return a.Language < b.Language
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Token < b.Token
	})
}
