package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	defaultPath = "data/edgescout.db"
)

// Store wraps a SQLite DB connection.
type Store struct {
	path string
	db   *sql.DB
}

// Open creates (if needed) and opens the SQLite database.
func Open(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := ensureWAL(db); err != nil {
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	return &Store{path: path, db: db}, nil
}

func ensureWAL(db *sql.DB) error {
	const (
		maxAttempts = 5
		delay       = 200 * time.Millisecond
	)
	for i := 0; i < maxAttempts; i++ {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			if strings.Contains(err.Error(), "database is locked") {
				time.Sleep(delay)
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("database is locked after retries")
}

// Path returns the path backing the store.
func (s *Store) Path() string {
	return s.path
}

// Close closes the DB.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateTables ensures the schema exists.
func (s *Store) CreateTables(ctx context.Context) error {
	for _, stmt := range schemaSQL {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Migrate brings an existing database up to the current schema. The
// creation statements are idempotent, so re-running is safe; data repairs
// and guarded ALTERs append to migrateSQL.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.CreateTables(ctx); err != nil {
		return err
	}
	for _, stmt := range migrateSQL {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var migrateSQL = []string{
	// Rows written before the status default was enforced.
	`UPDATE signals SET status = 'active' WHERE status IS NULL OR status = '';`,
}

// DropTables removes every table.
func (s *Store) DropTables(ctx context.Context) error {
	stmts := []string{
		`DROP TABLE IF EXISTS strategy_signals;`,
		`DROP TABLE IF EXISTS scans;`,
		`DROP TABLE IF EXISTS signals;`,
		`DROP TABLE IF EXISTS strategies;`,
		`DROP TABLE IF EXISTS topics;`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// ClearTables truncates signal and scan history, keeping topics/strategies.
func (s *Store) ClearTables(ctx context.Context) error {
	stmts := []string{
		`DELETE FROM strategy_signals;`,
		`DELETE FROM scans;`,
		`DELETE FROM signals;`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var schemaSQL = []string{
	`CREATE TABLE IF NOT EXISTS topics (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	keywords_json TEXT NOT NULL,
	created_at TEXT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS signals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	topic_id TEXT NOT NULL,
	market_id TEXT NOT NULL,
	question TEXT NOT NULL,
	side TEXT NOT NULL,
	market_price REAL NOT NULL,
	ai_fair_price REAL NOT NULL,
	edge_bps INTEGER NOT NULL,
	rationale TEXT,
	volume REAL,
	liquidity REAL,
	end_date TEXT,
	status TEXT NOT NULL DEFAULT 'active',
	created_at TEXT NOT NULL,
	FOREIGN KEY (topic_id) REFERENCES topics(id)
);`,
	`CREATE INDEX IF NOT EXISTS idx_signals_topic_status ON signals(topic_id, status);`,
	`CREATE TABLE IF NOT EXISTS strategies (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at TEXT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS strategy_signals (
	strategy_id TEXT NOT NULL,
	signal_id INTEGER NOT NULL,
	added_at TEXT NOT NULL,
	PRIMARY KEY (strategy_id, signal_id),
	FOREIGN KEY (strategy_id) REFERENCES strategies(id),
	FOREIGN KEY (signal_id) REFERENCES signals(id)
);`,
	`CREATE TABLE IF NOT EXISTS scans (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	topic_id TEXT NOT NULL,
	outcome TEXT NOT NULL,
	created_count INTEGER NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL
);`,
}
