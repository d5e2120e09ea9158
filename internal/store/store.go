package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for declaration-graph snapshots.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS modules (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL UNIQUE,
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS module_edges (
  id              INTEGER PRIMARY KEY,
  module_id       INTEGER NOT NULL REFERENCES modules(id),
  target          TEXT NOT NULL,
  kind            TEXT NOT NULL,
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS declarations (
  id               INTEGER PRIMARY KEY,
  module_id        INTEGER NOT NULL REFERENCES modules(id),
  parent_id        INTEGER REFERENCES declarations(id),
  decl_key         TEXT NOT NULL,
  name             TEXT NOT NULL,
  qualified_name   TEXT NOT NULL,
  package          TEXT NOT NULL,
  kind             TEXT NOT NULL,
  origin           TEXT NOT NULL,
  visibility       TEXT NOT NULL,
  modality         TEXT NOT NULL,
  modifiers        TEXT,
  ordinal          INTEGER NOT NULL,
  type_json        TEXT,
  receiver_json    TEXT,
  jvm_name         TEXT,
  annotations_json TEXT,
  throws_json      TEXT,
  default_json     TEXT,
  signature_hash   TEXT
);

CREATE TABLE IF NOT EXISTS type_params (
  id              INTEGER PRIMARY KEY,
  decl_id         INTEGER NOT NULL REFERENCES declarations(id),
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  variance        INTEGER NOT NULL,
  reified         INTEGER NOT NULL DEFAULT 0,
  bounds_json     TEXT
);

CREATE TABLE IF NOT EXISTS supertypes (
  id              INTEGER PRIMARY KEY,
  decl_id         INTEGER NOT NULL REFERENCES declarations(id),
  ordinal         INTEGER NOT NULL,
  type_json       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS params (
  id               INTEGER PRIMARY KEY,
  decl_id          INTEGER NOT NULL REFERENCES declarations(id),
  ordinal          INTEGER NOT NULL,
  name             TEXT NOT NULL,
  type_json        TEXT,
  vararg           INTEGER NOT NULL DEFAULT 0,
  has_default      INTEGER NOT NULL DEFAULT 0,
  default_json     TEXT,
  annotations_json TEXT
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_edges_module ON module_edges(module_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON module_edges(target);
CREATE INDEX IF NOT EXISTS idx_decls_module ON declarations(module_id);
CREATE INDEX IF NOT EXISTS idx_decls_parent ON declarations(parent_id);
CREATE INDEX IF NOT EXISTS idx_decls_qname ON declarations(qualified_name);
CREATE INDEX IF NOT EXISTS idx_decls_key ON declarations(decl_key);
CREATE INDEX IF NOT EXISTS idx_type_params_decl ON type_params(decl_id);
CREATE INDEX IF NOT EXISTS idx_supertypes_decl ON supertypes(decl_id);
CREATE INDEX IF NOT EXISTS idx_params_decl ON params(decl_id);
`

// GetMetadata returns the value stored under key, or "" when absent.
func (s *Store) GetMetadata(key string) (string, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %q: %w", key, err)
	}
	return v, nil
}

// SetMetadata stores value under key, replacing any previous value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}

// DeleteModule removes a module and every row that belongs to it, so the
// module can be written again.
func (s *Store) DeleteModule(name string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := deleteModule(tx, name); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteModule(tx *sql.Tx, name string) error {
	var moduleID int64
	err := tx.QueryRow("SELECT id FROM modules WHERE name = ?", name).Scan(&moduleID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete module %q: %w", name, err)
	}

	declSubquery := "SELECT id FROM declarations WHERE module_id = ?"
	stmts := []string{
		"DELETE FROM type_params WHERE decl_id IN (" + declSubquery + ")",
		"DELETE FROM supertypes WHERE decl_id IN (" + declSubquery + ")",
		"DELETE FROM params WHERE decl_id IN (" + declSubquery + ")",
		// Children before parents for the self-referencing foreign key.
		"DELETE FROM declarations WHERE module_id = ? AND parent_id IS NOT NULL",
		"DELETE FROM declarations WHERE module_id = ?",
		"DELETE FROM module_edges WHERE module_id = ?",
		"DELETE FROM modules WHERE id = ?",
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, moduleID); err != nil {
			return fmt.Errorf("delete module %q: %w", name, err)
		}
	}
	return nil
}
