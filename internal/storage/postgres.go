// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

var postgresQueries = sqlQueries{
	schema: `
		CREATE TABLE IF NOT EXISTS reggie_objects (
			bucket       TEXT NOT NULL,
			name         TEXT NOT NULL,
			content_type TEXT NOT NULL,
			data         BYTEA NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (bucket, name)
		)`,
	put: `
		INSERT INTO reggie_objects (bucket, name, content_type, data, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (bucket, name) DO UPDATE
		SET content_type = EXCLUDED.content_type,
		    data = EXCLUDED.data,
		    updated_at = EXCLUDED.updated_at`,
	get: `
		SELECT content_type, data, updated_at
		FROM reggie_objects
		WHERE bucket = $1 AND name = $2`,
	names: `
		SELECT name
		FROM reggie_objects
		WHERE bucket = $1 AND left(name, length($2)) = $2
		ORDER BY name COLLATE "C"`,
	list: `
		SELECT name, content_type, data, updated_at
		FROM reggie_objects
		WHERE bucket = $1 AND left(name, length($2)) = $2
		ORDER BY name COLLATE "C"`,
	delete: `DELETE FROM reggie_objects WHERE bucket = $1 AND name = $2`,
	prefixArgs: func(bucket, prefix string) []any {
		return []any{bucket, prefix}
	},
}

// NewPostgresBucket opens dsn and creates the objects table if needed.
func NewPostgresBucket(ctx context.Context, dsn, bucket string) (Bucket, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	b, err := newSQLBucket(ctx, db, bucket, postgresQueries)
	if err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}
