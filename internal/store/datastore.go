package store

// FileIndex looks up packages by the name of a file they install. Both
// FileStore (SQLite) and Empty implement it.
type FileIndex interface {
	FilesByName(name string) ([]FileMatch, error)
	// FilesByNormalizedName matches against normalized shared-object names.
	FilesByNormalizedName(name string) ([]FileMatch, error)
}

// ImportIndex looks up packages by Python import name.
type ImportIndex interface {
	PackagesByImport(name string) ([]string, error)
}

// Compile-time checks.
var (
	_ FileIndex   = (*FileStore)(nil)
	_ ImportIndex = (*ImportStore)(nil)
	_ FileIndex   = Empty{}
	_ ImportIndex = Empty{}
)

// Empty is an index with no rows. It stands in for a database that is not
// installed.
type Empty struct{}

func (Empty) FilesByName(string) ([]FileMatch, error)           { return nil, nil }
func (Empty) FilesByNormalizedName(string) ([]FileMatch, error) { return nil, nil }
func (Empty) PackagesByImport(string) ([]string, error)         { return nil, nil }
