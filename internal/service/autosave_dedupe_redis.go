package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// AutosaveDeduper remembers recently seen autosave tokens so retried
// client requests do not re-run the merge. A nil deduper disables the
// check; retries then still land safely because the merge is
// last-write-wins per key.
type AutosaveDeduper interface {
	Seen(ctx context.Context, token string) bool
}

type redisAutosaveDeduper struct {
	client redisSetter
	ttl    time.Duration
	prefix string
}

type redisSetter interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

func NewRedisAutosaveDeduper(client *redis.Client, ttl time.Duration) AutosaveDeduper {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisAutosaveDeduper{
		client: client,
		ttl:    ttl,
		prefix: "autosave:dedupe:",
	}
}

// Seen records the token and reports whether it was already present.
// Redis trouble degrades to "not seen": a replayed merge is harmless,
// a dropped one is not.
func (d *redisAutosaveDeduper) Seen(ctx context.Context, token string) bool {
	if d == nil || d.client == nil {
		return false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}

	opCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	fresh, err := d.client.SetNX(opCtx, d.prefix+token, 1, d.ttl).Result()
	if err != nil {
		return false
	}
	return !fresh
}
