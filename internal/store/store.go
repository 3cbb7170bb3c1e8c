package store

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNoDatabase is returned when an index database file does not exist.
var ErrNoDatabase = errors.New("store: database not found")

// openReadOnly opens the SQLite database at path without write access.
func openReadOnly(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoDatabase, path)
		}
		return nil, fmt.Errorf("store: stat %s: %w", path, err)
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}
	return db, nil
}

// FileStore answers file-name lookups against a package_files table.
// Statements are prepared once at open and reused for every key.
type FileStore struct {
	db           *sql.DB
	byName       *sql.Stmt
	byNormalized *sql.Stmt // nil when the column is unavailable
}

// OpenFileStore opens a file index read-only. A database without a
// normalized_file_name column still works; normalized lookups then return
// nothing and a warning is logged.
func OpenFileStore(path string, logger *log.Logger) (*FileStore, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	db, err := openReadOnly(path)
	if err != nil {
		return nil, err
	}

	byName, err := db.Prepare(`SELECT package_name, file_path FROM package_files WHERE file_name = ?`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: prepare file lookup: %w", err)
	}

	s := &FileStore{db: db, byName: byName}
	byNormalized, err := db.Prepare(`SELECT package_name, file_path FROM package_files WHERE normalized_file_name = ?`)
	if err != nil {
		logger.Warn("normalized file name lookups disabled", "db", path, "err", err)
	} else {
		s.byNormalized = byNormalized
	}
	return s, nil
}

func (s *FileStore) FilesByName(name string) ([]FileMatch, error) {
	return queryFiles(s.byName, name)
}

func (s *FileStore) FilesByNormalizedName(name string) ([]FileMatch, error) {
	if s.byNormalized == nil {
		return nil, nil
	}
	return queryFiles(s.byNormalized, name)
}

// Close releases the statements and the connection.
func (s *FileStore) Close() error {
	s.byName.Close()
	if s.byNormalized != nil {
		s.byNormalized.Close()
	}
	return s.db.Close()
}

func queryFiles(stmt *sql.Stmt, key string) ([]FileMatch, error) {
	rows, err := stmt.Query(key)
	if err != nil {
		return nil, fmt.Errorf("store: files for %q: %w", key, err)
	}
	defer rows.Close()

	var out []FileMatch
	for rows.Next() {
		var m FileMatch
		var path sql.NullString
		if err := rows.Scan(&m.Package, &path); err != nil {
			return nil, fmt.Errorf("store: scan file row: %w", err)
		}
		m.Path = path.String
		out = append(out, m)
	}
	return out, rows.Err()
}

// ImportStore answers import-name lookups against v_package_imports.
type ImportStore struct {
	db       *sql.DB
	byImport *sql.Stmt
}

// OpenImportStore opens an import index read-only.
func OpenImportStore(path string) (*ImportStore, error) {
	db, err := openReadOnly(path)
	if err != nil {
		return nil, err
	}
	stmt, err := db.Prepare(`SELECT package_name FROM v_package_imports WHERE import_as = ?`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: prepare import lookup: %w", err)
	}
	return &ImportStore{db: db, byImport: stmt}, nil
}

func (s *ImportStore) PackagesByImport(name string) ([]string, error) {
	rows, err := s.byImport.Query(name)
	if err != nil {
		return nil, fmt.Errorf("store: packages for %q: %w", name, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var pkg string
		if err := rows.Scan(&pkg); err != nil {
			return nil, fmt.Errorf("store: scan import row: %w", err)
		}
		out = append(out, pkg)
	}
	return out, rows.Err()
}

// Close releases the statement and the connection.
func (s *ImportStore) Close() error {
	s.byImport.Close()
	return s.db.Close()
}
