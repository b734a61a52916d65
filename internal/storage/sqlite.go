package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

var sqliteQueries = sqlQueries{
	schema: `
		CREATE TABLE IF NOT EXISTS reggie_objects (
			bucket       TEXT NOT NULL,
			name         TEXT NOT NULL,
			content_type TEXT NOT NULL,
			data         BLOB NOT NULL,
			updated_at   TIMESTAMP NOT NULL,
			PRIMARY KEY (bucket, name)
		)`,
	put: `
		INSERT INTO reggie_objects (bucket, name, content_type, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (bucket, name) DO UPDATE
		SET content_type = excluded.content_type,
		    data = excluded.data,
		    updated_at = excluded.updated_at`,
	get: `
		SELECT content_type, data, updated_at
		FROM reggie_objects
		WHERE bucket = ? AND name = ?`,
	names: `
		SELECT name
		FROM reggie_objects
		WHERE bucket = ? AND substr(name, 1, length(?)) = ?
		ORDER BY name`,
	list: `
		SELECT name, content_type, data, updated_at
		FROM reggie_objects
		WHERE bucket = ? AND substr(name, 1, length(?)) = ?
		ORDER BY name`,
	delete: `DELETE FROM reggie_objects WHERE bucket = ? AND name = ?`,
	prefixArgs: func(bucket, prefix string) []any {
		return []any{bucket, prefix, prefix}
	},
}

// NewSQLiteBucket opens (or creates) the database file at path.
//
// The connection pool is limited to one connection: SQLite allows a single
// writer and WAL mode lets readers proceed meanwhile.
func NewSQLiteBucket(ctx context.Context, path, bucket string) (Bucket, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	b, err := newSQLBucket(ctx, db, bucket, sqliteQueries)
	if err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}
