package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// sqlQueries holds the dialect-specific statements of a sqlBucket.
type sqlQueries struct {
	schema string
	put    string
	get    string
	names  string
	list   string
	delete string
	// prefixArgs expands (bucket, prefix) for the names and list statements.
	prefixArgs func(bucket, prefix string) []any
}

// sqlBucket stores objects as rows of one table, partitioned by bucket name.
type sqlBucket struct {
	db     *sql.DB
	bucket string
	q      sqlQueries
}

func newSQLBucket(ctx context.Context, db *sql.DB, bucket string, q sqlQueries) (*sqlBucket, error) {
	if _, err := db.ExecContext(ctx, q.schema); err != nil {
		return nil, wrap("migrate", "", err)
	}
	return &sqlBucket{db: db, bucket: bucket, q: q}, nil
}

func (b *sqlBucket) Put(ctx context.Context, name, contentType string, data []byte) error {
	_, err := b.db.ExecContext(ctx, b.q.put, b.bucket, name, contentType, data, time.Now().UTC())
	return wrap("put", name, err)
}

func (b *sqlBucket) Get(ctx context.Context, name string) (Object, error) {
	obj := Object{Name: name}
	err := b.db.QueryRowContext(ctx, b.q.get, b.bucket, name).Scan(&obj.ContentType, &obj.Data, &obj.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Object{}, wrap("get", name, ErrNotFound)
	}
	if err != nil {
		return Object{}, wrap("get", name, err)
	}
	return obj, nil
}

func (b *sqlBucket) Names(ctx context.Context, prefix string) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, b.q.names, b.q.prefixArgs(b.bucket, prefix)...)
	if err != nil {
		return nil, wrap("list", prefix, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrap("list", prefix, err)
		}
		names = append(names, name)
	}
	return names, wrap("list", prefix, rows.Err())
}

func (b *sqlBucket) List(ctx context.Context, prefix string) ([]Object, error) {
	rows, err := b.db.QueryContext(ctx, b.q.list, b.q.prefixArgs(b.bucket, prefix)...)
	if err != nil {
		return nil, wrap("list", prefix, err)
	}
	defer rows.Close()

	var objects []Object
	for rows.Next() {
		var obj Object
		if err := rows.Scan(&obj.Name, &obj.ContentType, &obj.Data, &obj.Updated); err != nil {
			return nil, wrap("list", prefix, err)
		}
		objects = append(objects, obj)
	}
	return objects, wrap("list", prefix, rows.Err())
}

func (b *sqlBucket) Delete(ctx context.Context, name string) error {
	res, err := b.db.ExecContext(ctx, b.q.delete, b.bucket, name)
	if err != nil {
		return wrap("delete", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("delete", name, err)
	}
	if n == 0 {
		return wrap("delete", name, ErrNotFound)
	}
	return nil
}

func (b *sqlBucket) Ping(ctx context.Context) error {
	return wrap("ping", "", b.db.PingContext(ctx))
}

func (b *sqlBucket) Close() error {
	return b.db.Close()
}
