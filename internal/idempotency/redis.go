package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "supaspend:idem:"

// Redis keeps records in Redis so replays work across instances.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (Record, bool, error) {
	val, err := r.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	var rec Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (r *Redis) Put(ctx context.Context, key string, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, keyPrefix+key, b, r.ttl).Err()
}

// Ready pings the server.
func (r *Redis) Ready(ctx context.Context) error { return r.rdb.Ping(ctx).Err() }
