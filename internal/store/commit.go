package store

import (
	"database/sql"
	"fmt"

	"github.com/jward/dapper/internal/soname"
)

// Writer creates index databases in the layout FileStore and ImportStore
// read. It is used to build small local indexes and test fixtures; the
// published datasets are produced elsewhere.
type Writer struct {
	db *sql.DB
}

// Create opens (creating if needed) a writable index database at path and
// applies the schema. Idempotent.
func Create(path string) (*Writer, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Writer{db: db}, nil
}

// Close closes the underlying database connection.
func (w *Writer) Close() error {
	return w.db.Close()
}

// Load inserts files and imports in a single transaction. A file row with
// no NormalizedFileName gets one from the soname normalizer when its name is
// a shared object.
func (w *Writer) Load(files []FileRow, imports []ImportRow) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("store: load: begin: %w", err)
	}
	defer tx.Rollback()

	for _, f := range files {
		if f.NormalizedFileName == "" {
			if n, ok := soname.NormalizeFileName(f.FileName); ok {
				f.NormalizedFileName = n.Name
			}
		}
		if err := insertFileTx(tx, &f); err != nil {
			return fmt.Errorf("store: load: file %q: %w", f.FileName, err)
		}
	}
	for _, imp := range imports {
		if err := insertImportTx(tx, &imp); err != nil {
			return fmt.Errorf("store: load: import %q: %w", imp.ImportAs, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: load: commit: %w", err)
	}
	return nil
}

func insertFileTx(tx *sql.Tx, f *FileRow) error {
	var normalized any
	if f.NormalizedFileName != "" {
		normalized = f.NormalizedFileName
	}
	_, err := tx.Exec(
		`INSERT INTO package_files (file_name, normalized_file_name, file_path, package_name)
		 VALUES (?, ?, ?, ?)`,
		f.FileName, normalized, f.FilePath, f.PackageName,
	)
	return err
}

func insertImportTx(tx *sql.Tx, imp *ImportRow) error {
	_, err := tx.Exec(
		`INSERT INTO package_imports (import_as, package_name) VALUES (?, ?)`,
		imp.ImportAs, imp.PackageName,
	)
	return err
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS package_files (
  id                   INTEGER PRIMARY KEY,
  file_name            TEXT NOT NULL,
  normalized_file_name TEXT,
  file_path            TEXT NOT NULL,
  package_name         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_package_files_name ON package_files(file_name);
CREATE INDEX IF NOT EXISTS idx_package_files_normalized ON package_files(normalized_file_name);

CREATE TABLE IF NOT EXISTS package_imports (
  id           INTEGER PRIMARY KEY,
  import_as    TEXT NOT NULL,
  package_name TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_package_imports_name ON package_imports(import_as);

CREATE VIEW IF NOT EXISTS v_package_imports AS
  SELECT package_name, import_as FROM package_imports;
`
