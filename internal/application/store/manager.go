package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pmcdi/jarvais-highcharts-service/pkg/adapters/storage"
)

// State is the manager's position in the failover cycle.
type State string

const (
	// StateProbing is the initial state before the startup probe completes.
	StateProbing State = "probing"
	// StateConnected means Redis is active.
	StateConnected State = "connected"
	// StateDegraded means the in-memory fallback is active.
	StateDegraded State = "degraded"
)

// MetricsCollector receives storage-layer measurements.
type MetricsCollector interface {
	RecordStorageOp(op, backend, status string, duration time.Duration)
	RecordFailover()
	SetBackendConnected(connected bool)
}

// Manager routes all record traffic to the single active backend and owns
// every transition between them. Callers never hold a Backend reference.
type Manager struct {
	remote   storage.Backend
	fallback storage.Backend
	metrics  MetricsCollector
	logger   *zap.Logger

	probeInterval time.Duration
	opTimeout     time.Duration

	// mu guards state and lastProbe only. It is never held across a
	// network call; an in-flight call finishes against the backend it
	// started on even if a transition happens mid-call.
	mu        sync.RWMutex
	state     State
	lastProbe time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewManager creates a storage manager in the probing state. Call Init to
// run the startup probe and start the background probe loop.
func NewManager(
	remote storage.Backend,
	fallback storage.Backend,
	metrics MetricsCollector,
	logger *zap.Logger,
	probeInterval, opTimeout time.Duration,
) *Manager {
	return &Manager{
		remote:        remote,
		fallback:      fallback,
		metrics:       metrics,
		logger:        logger,
		probeInterval: probeInterval,
		opTimeout:     opTimeout,
		state:         StateProbing,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Init probes the remote backend once to pick the initial state, then starts
// the background probe loop.
func (m *Manager) Init(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, m.opTimeout)
	err := m.remote.Ping(pingCtx)
	cancel()

	m.mu.Lock()
	m.lastProbe = time.Now()
	if err != nil {
		m.state = StateDegraded
		m.mu.Unlock()
		m.metrics.SetBackendConnected(false)
		m.logger.Warn("redis not available, using in-memory storage",
			zap.Error(err))
	} else {
		m.state = StateConnected
		m.mu.Unlock()
		m.metrics.SetBackendConnected(true)
		m.logger.Info("connected to redis storage")
	}

	go m.probeLoop()

	return nil
}

// Shutdown stops the background probe loop.
func (m *Manager) Shutdown(ctx context.Context) error {
	close(m.stopCh)

	select {
	case <-m.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("storage manager shutdown: %w", ctx.Err())
	}
}

// Put stores a record through the active backend.
func (m *Manager) Put(ctx context.Context, rec storage.Record) error {
	return m.do(ctx, "put", rec.ID, func(ctx context.Context, b storage.Backend) error {
		return b.Put(ctx, rec)
	})
}

// Get retrieves the live record for id from the active backend.
func (m *Manager) Get(ctx context.Context, id string) (storage.Record, error) {
	var rec storage.Record
	err := m.do(ctx, "get", id, func(ctx context.Context, b storage.Backend) error {
		r, err := b.Get(ctx, id)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	return rec, err
}

// Delete removes the record for id. Absent ids are not an error.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.do(ctx, "delete", id, func(ctx context.Context, b storage.Backend) error {
		return b.Delete(ctx, id)
	})
}

// ListKeys returns the ids of all live records in the active backend.
func (m *Manager) ListKeys(ctx context.Context) ([]string, error) {
	var ids []string
	err := m.do(ctx, "list", "", func(ctx context.Context, b storage.Backend) error {
		keys, err := b.ListKeys(ctx)
		if err != nil {
			return err
		}
		ids = keys
		return nil
	})
	return ids, err
}

// do routes one call to the active backend. If the remote backend reports
// unavailability the manager degrades immediately and the same call is
// retried once against the fallback, so a single request does not observe
// the failover. Only when both backends fail does the caller see an error.
func (m *Manager) do(ctx context.Context, op, id string, fn func(context.Context, storage.Backend) error) error {
	backend := m.active()

	start := time.Now()
	err := m.invoke(ctx, backend, fn)
	m.observe(op, backend.Name(), err, time.Since(start))

	if err == nil || !errors.Is(err, storage.ErrBackendUnavailable) {
		return err
	}
	if backend == m.fallback {
		return err
	}

	m.degrade(op, id, err)

	start = time.Now()
	retryErr := m.invoke(ctx, m.fallback, fn)
	m.observe(op, m.fallback.Name(), retryErr, time.Since(start))
	if retryErr != nil {
		if errors.Is(retryErr, storage.ErrBackendUnavailable) {
			return fmt.Errorf("%s: no backend available: %w", op, retryErr)
		}
		return retryErr
	}

	return nil
}

// invoke runs fn against one backend, bounding remote calls with the
// operation timeout. Memory calls are non-blocking and run unbounded.
func (m *Manager) invoke(ctx context.Context, b storage.Backend, fn func(context.Context, storage.Backend) error) error {
	if b == m.remote {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opTimeout)
		defer cancel()
	}
	return fn(ctx, b)
}

// active resolves the current backend from the state word.
func (m *Manager) active() storage.Backend {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state == StateConnected {
		return m.remote
	}
	return m.fallback
}

// degrade switches to the fallback backend. The transition and its log line
// happen at most once per outage; later failures during the same outage find
// the state already degraded.
func (m *Manager) degrade(op, id string, err error) {
	m.mu.Lock()
	already := m.state == StateDegraded
	m.state = StateDegraded
	m.mu.Unlock()

	if already {
		return
	}

	m.metrics.RecordFailover()
	m.metrics.SetBackendConnected(false)
	m.logger.Warn("redis unavailable, failing over to in-memory storage",
		zap.String("op", op),
		zap.String("id", id),
		zap.Error(err))
}

// probeLoop re-pings the remote backend on a fixed interval. The ping runs
// without holding the state lock; only applying the result takes it.
func (m *Manager) probeLoop() {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.probe()
		}
	}
}

func (m *Manager) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), m.opTimeout)
	err := m.remote.Ping(ctx)
	cancel()

	m.mu.Lock()
	m.lastProbe = time.Now()
	prev := m.state
	if err == nil {
		m.state = StateConnected
	} else {
		m.state = StateDegraded
	}
	next := m.state
	m.mu.Unlock()

	if prev == next {
		return
	}

	if next == StateConnected {
		m.metrics.SetBackendConnected(true)
		m.logger.Info("redis recovered, switching back to redis storage")
	} else {
		m.metrics.SetBackendConnected(false)
		m.logger.Warn("redis probe failed, using in-memory storage",
			zap.Error(err))
	}
}

// observe records one storage operation outcome. NotFound is a normal
// outcome, not a failure.
func (m *Manager) observe(op, backend string, err error, duration time.Duration) {
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		status = "not_found"
	case errors.Is(err, storage.ErrBackendUnavailable):
		status = "unavailable"
	default:
		status = "error"
	}
	m.metrics.RecordStorageOp(op, backend, status, duration)
}
