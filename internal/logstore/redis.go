package logstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisKey is the key used when RedisOptions.Key is empty.
const DefaultRedisKey = "agentcore:logs"

// RedisOptions configures a RedisPersister.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string

	// TTL expires the snapshot key; zero keeps it forever.
	TTL time.Duration
}

// RedisPersister keeps the snapshot as a JSON string under one key.
type RedisPersister struct {
	rdb    redis.Cmdable
	closer func() error
	key    string
	ttl    time.Duration
}

// NewRedisPersister dials a client for opts.Addr.
func NewRedisPersister(opts RedisOptions) *RedisPersister {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	p := NewRedisPersisterWithClient(client, opts.Key, opts.TTL)
	p.closer = client.Close
	return p
}

// NewRedisPersisterWithClient uses an existing client. Close does not close
// a client passed in this way.
func NewRedisPersisterWithClient(rdb redis.Cmdable, key string, ttl time.Duration) *RedisPersister {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisPersister{rdb: rdb, key: key, ttl: ttl}
}

// Ping checks the connection.
func (p *RedisPersister) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// Save stores the snapshot.
func (p *RedisPersister) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return p.rdb.Set(ctx, p.key, data, p.ttl).Err()
}

// Load reads the snapshot. A missing key yields an empty snapshot.
func (p *RedisPersister) Load(ctx context.Context) (Snapshot, error) {
	data, err := p.rdb.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode %s: %w", p.key, err)
	}
	return snap, nil
}

// Close releases a client created by NewRedisPersister.
func (p *RedisPersister) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
