// Package cache is the read-through cache in front of the record store.
// It is never authoritative: every entry carries a TTL and may be missing or stale.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"

	"github.com/and161185/notekeeper/internal/model"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is a byte-oriented key/value store with TTLs.
type Cache interface {
	// Get returns the stored bytes or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores val under key for ttl.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// Delete removes keys; missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// KeysByPrefix lists keys starting with prefix.
	KeysByPrefix(ctx context.Context, prefix string) ([]string, error)
}

// Redis implements Cache on top of go-redis. Prefix listing walks SCAN cursors.
type Redis struct {
	rdb       redis.Cmdable
	scanCount int64
}

var _ Cache = (*Redis)(nil)

// NewRedis wraps a redis client.
func NewRedis(rdb redis.Cmdable) *Redis {
	return &Redis{rdb: rdb, scanCount: 200}
}

// Get returns the value or ErrMiss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

// Set stores a value with expiry.
func (r *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, val, ttl).Err()
}

// Delete removes keys.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.rdb.Del(ctx, keys...).Err()
}

// KeysByPrefix iterates SCAN MATCH prefix*.
func (r *Redis) KeysByPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	it := r.rdb.Scan(ctx, 0, globEscape(prefix)+"*", r.scanCount).Iterator()
	for it.Next(ctx) {
		keys = append(keys, it.Val())
	}
	return keys, it.Err()
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func globEscape(s string) string { return globReplacer.Replace(s) }

// DeletePrefix removes every key under prefix and returns how many were found.
// Not atomic with concurrent writers: a key set between SCAN and DEL survives.
func DeletePrefix(ctx context.Context, c Cache, prefix string) (int, error) {
	keys, err := c.KeysByPrefix(ctx, prefix)
	if err != nil {
		return 0, err
	}
	return len(keys), c.Delete(ctx, keys...)
}

// GetJSON decodes a cached value into T.
func GetJSON[T any](ctx context.Context, c Cache, key string) (*T, error) {
	b, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var v T
	if err := sonic.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &v, nil
}

// SetJSON encodes v and stores it.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	b, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.Set(ctx, key, b, ttl)
}

// NoteKey is the single-note snapshot key.
func NoteKey(noteID uuid.UUID) string { return "note:" + noteID.String() }

// ListPrefix covers every cached list page of an owner.
func ListPrefix(ownerID uuid.UUID) string { return "notes:list:" + ownerID.String() + ":" }

// ListKey identifies one cached list page.
func ListKey(ownerID uuid.UUID, o model.ListOptions) string {
	folder := "-"
	if o.FolderID != nil {
		folder = o.FolderID.String()
	}
	return fmt.Sprintf("%s%s:%t:%s:%s:%d:%d", ListPrefix(ownerID), folder, o.Archived,
		o.SortBy, o.Order, model.ClampLimit(o.Limit), max(o.Offset, 0))
}
