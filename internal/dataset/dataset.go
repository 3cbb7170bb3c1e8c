// Package dataset locates the package index databases installed on this
// machine. It only reads; downloading and updating datasets is done by
// other tooling.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// InfoFile is the catalog of installed datasets inside the data directory.
const InfoFile = "dataset_info.toml"

// Default database file names used when the catalog does not list one.
const (
	DefaultLinuxDB  = "LinuxPackageDB.db"
	DefaultPythonDB = "PyPIPackageDB.db"
)

// Categories used to pick databases from the catalog.
const (
	CategoryLinux  = "linux"
	CategoryPython = "python"
)

// Info is the parsed dataset_info.toml.
type Info struct {
	SchemaVersion int                `toml:"schema_version"`
	Datasets      map[string]Dataset `toml:"datasets"`
}

// Dataset is one installed database.
type Dataset struct {
	Version    int       `toml:"version"`
	Format     string    `toml:"format"`
	Timestamp  time.Time `toml:"timestamp"`
	Categories []string  `toml:"categories"`
	Filepath   string    `toml:"filepath"`
}

// HasCategory reports whether d is tagged with category.
func (d Dataset) HasCategory(category string) bool {
	for _, c := range d.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Named pairs a dataset with its catalog key.
type Named struct {
	Name string
	Dataset
}

// DataDir returns $XDG_DATA_HOME/dapper, falling back to
// ~/.local/share/dapper.
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "dapper"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("dataset: locating data directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "dapper"), nil
}

// Load reads dir/dataset_info.toml. A missing catalog yields an error
// matching os.ErrNotExist.
func Load(dir string) (*Info, error) {
	path := filepath.Join(dir, InfoFile)
	var info Info
	if _, err := toml.DecodeFile(path, &info); err != nil {
		return nil, fmt.Errorf("dataset: reading %s: %w", path, err)
	}
	return &info, nil
}

// Sorted returns every dataset ordered by name.
func (i *Info) Sorted() []Named {
	out := make([]Named, 0, len(i.Datasets))
	for name, d := range i.Datasets {
		out = append(out, Named{Name: name, Dataset: d})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// ByCategory returns the datasets tagged with category, ordered by name.
func (i *Info) ByCategory(category string) []Named {
	var out []Named
	for _, n := range i.Sorted() {
		if n.HasCategory(category) {
			out = append(out, n)
		}
	}
	return out
}

// Paths holds the database files a scan reads.
type Paths struct {
	Linux  string
	Python string
}

// Locate resolves the database paths for dir. Catalog entries win; relative
// catalog paths are taken relative to dir. Without a catalog entry the
// default file names inside dir are used. The files may not exist.
func Locate(dir string, logger *log.Logger) Paths {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	paths := Paths{
		Linux:  filepath.Join(dir, DefaultLinuxDB),
		Python: filepath.Join(dir, DefaultPythonDB),
	}

	info, err := Load(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("ignoring unreadable dataset catalog", "err", err)
		}
		return paths
	}

	if p, ok := pick(info, CategoryLinux, dir, logger); ok {
		paths.Linux = p
	}
	if p, ok := pick(info, CategoryPython, dir, logger); ok {
		paths.Python = p
	}
	return paths
}

func pick(info *Info, category, dir string, logger *log.Logger) (string, bool) {
	matches := info.ByCategory(category)
	if len(matches) == 0 {
		return "", false
	}
	if len(matches) > 1 {
		logger.Debug("several datasets share a category, using the first",
			"category", category, "dataset", matches[0].Name)
	}
	p := matches[0].Filepath
	if p == "" {
		return "", false
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	return p, true
}
