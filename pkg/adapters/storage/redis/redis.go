package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pmcdi/jarvais-highcharts-service/pkg/adapters/storage"
)

// keyPrefix namespaces analyzer records so the keyspace stays partitionable
// and inspectable by operators.
const keyPrefix = "analyzer:"

// Backend implements storage.Backend using Redis. Expiry is enforced by
// Redis itself via native per-key TTL, so no separate bookkeeping is needed.
type Backend struct {
	client *redis.Client
	logger *zap.Logger
}

// NewBackend creates a Redis-backed record store. The client's connection
// pool is shared and reused across calls; a single unreachable call does not
// tear it down.
func NewBackend(client *redis.Client, logger *zap.Logger) *Backend {
	return &Backend{
		client: client,
		logger: logger,
	}
}

// Name identifies this backend in logs and health output.
func (b *Backend) Name() string {
	return "redis"
}

// Put stores the record payload with the record's TTL.
func (b *Backend) Put(ctx context.Context, rec storage.Record) error {
	key := recordKey(rec.ID)

	if err := b.client.Set(ctx, key, rec.Payload, rec.TTL).Err(); err != nil {
		return unavailable("put", rec.ID, err)
	}

	b.logger.Debug("record stored",
		zap.String("id", rec.ID),
		zap.Duration("ttl", rec.TTL))

	return nil
}

// Get retrieves the record for id. Redis reclaims expired keys itself, so a
// missing key covers both "never existed" and "expired".
func (b *Backend) Get(ctx context.Context, id string) (storage.Record, error) {
	key := recordKey(id)

	payload, err := b.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return storage.Record{}, fmt.Errorf("get %s: %w", id, storage.ErrNotFound)
		}
		return storage.Record{}, unavailable("get", id, err)
	}

	rec := storage.Record{
		ID:      id,
		Payload: payload,
	}

	// Reconstruct the remaining lifetime from the key's TTL. Best effort:
	// the payload itself is the contract, the metadata is derived.
	if ttl, err := b.client.PTTL(ctx, key).Result(); err == nil && ttl > 0 {
		rec.TTL = ttl
		rec.CreatedAt = time.Now()
	}

	return rec, nil
}

// Delete removes the record for id. Absent ids are not an error.
func (b *Backend) Delete(ctx context.Context, id string) error {
	if err := b.client.Del(ctx, recordKey(id)).Err(); err != nil {
		return unavailable("delete", id, err)
	}

	b.logger.Debug("record deleted", zap.String("id", id))
	return nil
}

// ListKeys enumerates all live record ids under the analyzer prefix.
func (b *Backend) ListKeys(ctx context.Context) ([]string, error) {
	pattern := keyPrefix + "*"

	var cursor uint64
	var keys []string

	for {
		var batch []string
		var err error

		batch, cursor, err = b.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, unavailable("list", "", err)
		}

		keys = append(keys, batch...)

		if cursor == 0 {
			break
		}
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		if len(key) > len(keyPrefix) {
			ids = append(ids, key[len(keyPrefix):])
		}
	}

	return ids, nil
}

// Ping probes connectivity without touching any record.
func (b *Backend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping: %w: %v", storage.ErrBackendUnavailable, err)
	}
	return nil
}

// unavailable wraps a connection-level failure with operation context. Any
// error from the client here means the call did not complete: timeouts,
// refused connections and protocol errors all map to the same outcome.
func unavailable(op, id string, err error) error {
	if id == "" {
		return fmt.Errorf("%s: %w: %v", op, storage.ErrBackendUnavailable, err)
	}
	return fmt.Errorf("%s %s: %w: %v", op, id, storage.ErrBackendUnavailable, err)
}

// recordKey returns the Redis key for an analyzer record.
func recordKey(id string) string {
	return keyPrefix + id
}
