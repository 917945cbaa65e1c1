package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pmcdi/jarvais-highcharts-service/pkg/adapters/storage"
)

// Backend implements storage.Backend with a process-local map. There is no
// native expiry, so every read filters out records whose lifetime has passed;
// an optional background sweep bounds memory but is not required for
// correctness. This backend is a single point of truth only within one
// process and is never shared across service instances.
type Backend struct {
	mu      sync.RWMutex
	records map[string]storage.Record

	logger *zap.Logger

	// now is replaceable in tests to fast-forward expiry.
	now func() time.Time

	sweepOnce sync.Once
	closeOnce sync.Once
	stopSweep chan struct{}
}

// NewBackend creates an empty in-memory record store.
func NewBackend(logger *zap.Logger) *Backend {
	return &Backend{
		records:   make(map[string]storage.Record),
		logger:    logger,
		now:       time.Now,
		stopSweep: make(chan struct{}),
	}
}

// Name identifies this backend in logs and health output.
func (b *Backend) Name() string {
	return "memory"
}

// Put stores the record, replacing any previous record with the same id.
func (b *Backend) Put(_ context.Context, rec storage.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records[rec.ID] = rec
	return nil
}

// Get returns the live record for id. An expired record is reported as not
// found and removed on the spot.
func (b *Backend) Get(_ context.Context, id string) (storage.Record, error) {
	b.mu.RLock()
	rec, ok := b.records[id]
	b.mu.RUnlock()

	if !ok {
		return storage.Record{}, fmt.Errorf("get %s: %w", id, storage.ErrNotFound)
	}

	if !rec.Live(b.now()) {
		b.mu.Lock()
		// Re-check under the write lock: a concurrent Put may have
		// replaced the expired record with a fresh one.
		if cur, ok := b.records[id]; ok && !cur.Live(b.now()) {
			delete(b.records, id)
		}
		b.mu.Unlock()
		return storage.Record{}, fmt.Errorf("get %s: %w", id, storage.ErrNotFound)
	}

	return rec, nil
}

// Delete removes the record for id. Absent ids are not an error.
func (b *Backend) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.records, id)
	return nil
}

// ListKeys returns the ids of all live records, skipping expired entries.
func (b *Backend) ListKeys(_ context.Context) ([]string, error) {
	now := b.now()

	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]string, 0, len(b.records))
	for id, rec := range b.records {
		if rec.Live(now) {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// Ping always succeeds; the map is local and never unreachable.
func (b *Backend) Ping(_ context.Context) error {
	return nil
}

// StartSweep launches a background loop that physically removes expired
// entries at the given interval. Lazy filtering on reads already guarantees
// correctness; the sweep only bounds memory.
func (b *Backend) StartSweep(interval time.Duration) {
	b.sweepOnce.Do(func() {
		go b.sweepLoop(interval)
	})
}

// Close stops the background sweep if it was started.
func (b *Backend) Close() {
	b.closeOnce.Do(func() {
		close(b.stopSweep)
	})
}

func (b *Backend) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopSweep:
			return
		case <-ticker.C:
			if removed := b.sweep(); removed > 0 {
				b.logger.Debug("swept expired records", zap.Int("removed", removed))
			}
		}
	}
}

// sweep removes all expired entries and returns how many were dropped.
func (b *Backend) sweep() int {
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for id, rec := range b.records {
		if !rec.Live(now) {
			delete(b.records, id)
			removed++
		}
	}

	return removed
}
