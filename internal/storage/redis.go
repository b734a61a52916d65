package storage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBucket stores each object as a hash at "<bucket>:<name>".
type RedisBucket struct {
	client *redis.Client
	bucket string
}

func NewRedisBucket(ctx context.Context, opts *redis.Options, bucket string) (*RedisBucket, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisBucket{client: client, bucket: bucket}, nil
}

func (b *RedisBucket) key(name string) string {
	return b.bucket + ":" + name
}

func (b *RedisBucket) Put(ctx context.Context, name, contentType string, data []byte) error {
	err := b.client.HSet(ctx, b.key(name),
		"content_type", contentType,
		"data", data,
		"updated", time.Now().UTC().UnixNano(),
	).Err()
	return wrap("put", name, err)
}

func (b *RedisBucket) Get(ctx context.Context, name string) (Object, error) {
	fields, err := b.client.HGetAll(ctx, b.key(name)).Result()
	if err != nil {
		return Object{}, wrap("get", name, err)
	}
	if len(fields) == 0 {
		return Object{}, wrap("get", name, ErrNotFound)
	}
	return objectFromHash(name, fields)
}

func (b *RedisBucket) Names(ctx context.Context, prefix string) ([]string, error) {
	match := escapeGlob(b.key(prefix)) + "*"
	var names []string
	iter := b.client.Scan(ctx, 0, match, 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), b.bucket+":"))
	}
	if err := iter.Err(); err != nil {
		return nil, wrap("list", prefix, err)
	}
	// SCAN may return a key more than once.
	sort.Strings(names)
	return compactSorted(names), nil
}

func (b *RedisBucket) List(ctx context.Context, prefix string) ([]Object, error) {
	names, err := b.Names(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(names))
	_, err = b.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, name := range names {
			cmds[i] = p.HGetAll(ctx, b.key(name))
		}
		return nil
	})
	if err != nil {
		return nil, wrap("list", prefix, err)
	}

	objects := make([]Object, 0, len(names))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// deleted between SCAN and HGETALL
			continue
		}
		obj, err := objectFromHash(names[i], fields)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

func (b *RedisBucket) Delete(ctx context.Context, name string) error {
	n, err := b.client.Del(ctx, b.key(name)).Result()
	if err != nil {
		return wrap("delete", name, err)
	}
	if n == 0 {
		return wrap("delete", name, ErrNotFound)
	}
	return nil
}

func (b *RedisBucket) Ping(ctx context.Context) error {
	return wrap("ping", "", b.client.Ping(ctx).Err())
}

func (b *RedisBucket) Close() error {
	return b.client.Close()
}

func objectFromHash(name string, fields map[string]string) (Object, error) {
	nanos, err := strconv.ParseInt(fields["updated"], 10, 64)
	if err != nil {
		return Object{}, wrap("get", name, fmt.Errorf("bad updated field: %w", err))
	}
	return Object{
		Name:        name,
		ContentType: fields["content_type"],
		Data:        []byte(fields["data"]),
		Updated:     time.Unix(0, nanos).UTC(),
	}, nil
}

// escapeGlob quotes the characters SCAN MATCH treats as patterns.
func escapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func compactSorted(names []string) []string {
	out := names[:0]
	for i, name := range names {
		if i > 0 && name == names[i-1] {
			continue
		}
		out = append(out, name)
	}
	return out
}
