package storage

import (
	"context"
	"errors"
	"time"
)

// Storage layer errors. Backends translate their own failure modes into
// these sentinels; callers distinguish outcomes with errors.Is.
var (
	// ErrNotFound means the id has no live record: it never existed, was
	// deleted, or has expired. A normal outcome, not a failure.
	ErrNotFound = errors.New("record not found")

	// ErrBackendUnavailable means the backend could not be reached within
	// its timeout. Transient; failover policy lives in the manager, not here.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrSerialization means a payload could not be round-tripped.
	ErrSerialization = errors.New("payload serialization failed")
)

// Record is one stored analyzer payload plus metadata. The payload is an
// opaque byte sequence; the store round-trips it exactly and never inspects it.
type Record struct {
	ID        string
	Payload   []byte
	CreatedAt time.Time
	TTL       time.Duration
}

// ExpiresAt returns the instant after which the record is no longer live.
func (r Record) ExpiresAt() time.Time {
	return r.CreatedAt.Add(r.TTL)
}

// Live reports whether the record has not yet expired at the given instant.
func (r Record) Live(now time.Time) bool {
	return now.Before(r.ExpiresAt())
}

// Backend is one concrete storage implementation. All operations are
// single-key; there are no multi-key transactions. Any operation that cannot
// complete within its bounded timeout reports ErrBackendUnavailable without
// retrying internally.
type Backend interface {
	// Put stores the record under its id with the record's TTL.
	Put(ctx context.Context, rec Record) error

	// Get returns the live record for id, or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)

	// Delete removes the record for id. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// ListKeys returns the ids of all live records.
	ListKeys(ctx context.Context) ([]string, error)

	// Ping is a side-effect-free liveness probe.
	Ping(ctx context.Context) error

	// Name identifies the backend ("redis" or "memory") for logs and health.
	Name() string
}
