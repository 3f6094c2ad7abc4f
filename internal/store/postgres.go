package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Postgres keeps the blob in a key/value table of a PostgreSQL database.
type Postgres struct {
	db  *sql.DB
	key string
}

// OpenPostgres connects to databaseURL and ensures the storage table exists.
func OpenPostgres(ctx context.Context, databaseURL, key string) (*Postgres, error) {
	if key == "" {
		key = DefaultKey
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	query := `
	CREATE TABLE IF NOT EXISTS storage (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		db.Close()
		return nil, fmt.Errorf("create storage table: %w", err)
	}

	return &Postgres{db: db, key: key}, nil
}

func (p *Postgres) Load(ctx context.Context) ([]byte, error) {
	var value string
	err := p.db.QueryRowContext(ctx, "SELECT value FROM storage WHERE key = $1", p.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (p *Postgres) Save(ctx context.Context, data []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO storage (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		p.key, string(data))
	return err
}

func (p *Postgres) Type() string { return "postgres" }

func (p *Postgres) Close() error {
	return p.db.Close()
}
