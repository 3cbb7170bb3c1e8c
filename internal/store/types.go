package store

// Package index domain types

// FileRow is one row of the package_files table: a file shipped by a package.
type FileRow struct {
	FileName           string
	NormalizedFileName string
	FilePath           string
	PackageName        string
}

// ImportRow maps a Python import name to the package that provides it.
type ImportRow struct {
	ImportAs    string
	PackageName string
}

// FileMatch is a file lookup result.
type FileMatch struct {
	Package string
	Path    string
}
