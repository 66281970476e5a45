// Package storage provides the SQLite store adapter for the Synapse engine.
//
// The store is owned jointly: nodes, edges, the TF-IDF vocabulary and the
// full-text index are written by the external graph builder; the engine only
// reads them. The engine itself writes task traces and metadata upserts.
// The adapter must tolerate a database that is mid-rewrite — a missing table
// degrades the feature that needs it rather than failing the whole engine.
package storage

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// schemaStatements is the minimum shape the engine needs to operate. The
// graph builder provisions the full schema; these statements only guarantee
// the engine-owned tables (task_traces, graph_metadata) exist on a fresh
// database. Statements are applied one by one with failures tolerated: the
// FTS5 virtual table is optional and triggers may already exist.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS nodes (
		node_id     TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		file        TEXT,
		node_type   TEXT,
		signature   TEXT,
		body_text   TEXT,
		doc_text    TEXT,
		complexity  REAL,
		pagerank    REAL,
		task_weight REAL,
		pkg_name    TEXT,
		pkg_version TEXT,
		embedding   TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS edges (
		source_id TEXT NOT NULL REFERENCES nodes(node_id),
		target_id TEXT NOT NULL REFERENCES nodes(node_id),
		edge_type TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id)`,
	`CREATE TABLE IF NOT EXISTS tfidf_vocab (
		term       TEXT PRIMARY KEY,
		idf        REAL NOT NULL,
		doc_count  INTEGER NOT NULL DEFAULT 0,
		term_count INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS graph_metadata (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS task_traces (
		trace_id   INTEGER PRIMARY KEY AUTOINCREMENT,
		query      TEXT,
		nodes_json TEXT,
		polarity   REAL NOT NULL DEFAULT 0,
		session_id TEXT,
		created_at TEXT
	)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
		name, body_text, doc_text,
		content='nodes', content_rowid='rowid'
	)`,
}

// Store wraps a single SQLite connection to the graph database.
type Store struct {
	db   *sql.DB
	Path string
}

// Open opens the graph database at path with WAL journaling and foreign keys
// enabled, and ensures the engine-owned tables exist. An unopenable database
// is fatal: no engine operation can proceed without the store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	// WAL keeps readers unblocked while traces are appended.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, Path: path}
	s.ensureSchema()
	return s, nil
}

// ensureSchema applies the minimum schema, tolerating individual failures
// (FTS5 unavailable, tables locked by a builder mid-rewrite).
func (s *Store) ensureSchema() {
	for _, stmt := range schemaStatements {
		_, _ = s.db.Exec(stmt)
	}
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection for custom queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// isMissingTable reports whether err is SQLite's complaint about a table that
// has not been provisioned yet.
func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

// nullStr converts a nullable column to a *string.
func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// nullFloat converts a nullable column to a *float64.
func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
