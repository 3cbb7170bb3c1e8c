// Package discover finds candidate source files under a root path.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	ignore "github.com/sabhiram/go-gitignore"
)

// Options tunes a discovery walk.
type Options struct {
	// RespectGitignore skips paths matched by root/.gitignore.
	RespectGitignore bool
}

// Option configures Files.
type Option func(*Options)

// WithGitignore toggles .gitignore filtering.
func WithGitignore(enabled bool) Option {
	return func(o *Options) {
		o.RespectGitignore = enabled
	}
}

// Files returns the regular files under root accepted by match, sorted by
// path. When root is a file, it is returned alone iff match accepts it.
// Directories are always traversed, and unreadable entries are skipped.
func Files(root string, match func(path string) bool, opts ...Option) ([]string, error) {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	if !info.IsDir() {
		if info.Mode().IsRegular() && match(root) {
			return []string{root}, nil
		}
		return nil, nil
	}

	var gi *ignore.GitIgnore
	if o.RespectGitignore {
		gi = loadGitignore(root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if path == root {
			return nil
		}
		if gi != nil {
			if rel, relErr := filepath.Rel(root, path); relErr == nil && gi.MatchesPath(filepath.ToSlash(rel)) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if match(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover: walk %s: %w", root, err)
	}

	sort.Strings(paths)
	return paths, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
