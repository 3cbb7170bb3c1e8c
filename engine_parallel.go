package dapper

import (
	"context"
	"os"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/jward/dapper/internal/extract"
	"github.com/jward/dapper/internal/token"
)

// fileResult is what one worker reports for one (file, extractor) pair.
type fileResult struct {
	path       string
	lang       token.Language
	extraction extract.Extraction
	skipped    bool
}

// aggregate collects worker results. It is owned by the single consumer
// goroutine in extractAll.
type aggregate struct {
	references  Occurrences[token.Reference]
	invocations Occurrences[invocationKey]
	files       map[string]bool
	skipped     map[string]bool
}

func newAggregate() *aggregate {
	return &aggregate{
		references:  make(Occurrences[token.Reference]),
		invocations: make(Occurrences[invocationKey]),
		files:       make(map[string]bool),
		skipped:     make(map[string]bool),
	}
}

func (a *aggregate) add(r fileResult) {
	a.files[r.path] = true
	if r.skipped {
		a.skipped[r.path] = true
		return
	}
	for _, ref := range r.extraction.References {
		a.references[ref] = append(a.references[ref], r.path)
	}
	for _, inv := range r.extraction.Invocations {
		k := invocationKey{Language: r.lang, Invocation: inv}
		a.invocations[k] = append(a.invocations[k], r.path)
	}
}

// extractAll runs every matching extractor over paths on a bounded worker
// pool. Workers send results on a channel drained by one aggregator
// goroutine; extractAll returns after both the pool and the aggregator have
// finished.
func (e *Engine) extractAll(ctx context.Context, paths []string) *aggregate {
	results := make(chan fileResult, e.workers)
	agg := newAggregate()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range results {
			agg.add(r)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, path := range paths {
		for _, ex := range e.extractors {
			if !ex.Matches(path) {
				continue
			}
			g.Go(func() error {
				results <- e.extractFile(gctx, ex, path)
				return nil
			})
		}
	}
	_ = g.Wait() // workers never fail; per-file problems are logged
	close(results)
	<-done
	return agg
}

// extractFile reads and extracts a single file. Unreadable files, files that
// are not valid UTF-8, and parse failures are logged and contribute nothing.
func (e *Engine) extractFile(ctx context.Context, ex extract.Extractor, path string) fileResult {
	res := fileResult{path: path, lang: ex.Language()}

	src, err := os.ReadFile(path)
	if err != nil {
		e.logger.Warn("skipping unreadable file", "path", path, "err", err)
		res.skipped = true
		return res
	}
	if !utf8.Valid(src) {
		e.logger.Warn("skipping file that is not valid UTF-8", "path", path)
		res.skipped = true
		return res
	}

	extraction, err := ex.Extract(ctx, path, src)
	if err != nil {
		e.logger.Warn("skipping file that failed to parse", "path", path, "err", err)
		res.skipped = true
		return res
	}
	res.extraction = extraction
	return res
}
