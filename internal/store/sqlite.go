package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLite keeps the blob in a key/value table, the way browser local storage
// keeps string values under keys.
type SQLite struct {
	conn *sql.DB
	key  string
}

// OpenSQLite opens (creating if needed) the database at dbPath.
func OpenSQLite(dbPath, key string) (*SQLite, error) {
	if key == "" {
		key = DefaultKey
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	// WAL mode allows simultaneous readers and writers
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, err
	}
	// Synchronous NORMAL is safe against app crashes, faster than FULL
	if _, err := db.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, err
	}

	query := `
	CREATE TABLE IF NOT EXISTS storage (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{conn: db, key: key}, nil
}

func (s *SQLite) Load(ctx context.Context) ([]byte, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, "SELECT value FROM storage WHERE key = ?", s.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (s *SQLite) Save(ctx context.Context, data []byte) error {
	// INSERT OR REPLACE upserts the single blob row
	_, err := s.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO storage (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)",
		s.key, string(data))
	return err
}

func (s *SQLite) Type() string { return "sqlite" }

func (s *SQLite) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
