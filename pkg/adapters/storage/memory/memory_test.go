package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pmcdi/jarvais-highcharts-service/pkg/adapters/storage"
)

// fakeClock lets tests fast-forward expiry without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestBackend(t *testing.T) (*Backend, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	b := NewBackend(zap.NewNop())
	b.now = clock.now
	return b, clock
}

func record(id string, payload []byte, createdAt time.Time, ttl time.Duration) storage.Record {
	return storage.Record{
		ID:        id,
		Payload:   payload,
		CreatedAt: createdAt,
		TTL:       ttl,
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	b, clock := newTestBackend(t)
	ctx := context.Background()

	payload := []byte{0x00, 0x01, 0xff, 0xfe, 'j', 's', 'o', 'n'}
	rec := record("abc", payload, clock.now(), time.Hour)

	require.NoError(t, b.Put(ctx, rec))

	got, err := b.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, payload, got.Payload)
	assert.Equal(t, rec.CreatedAt, got.CreatedAt)
	assert.Equal(t, rec.TTL, got.TTL)
}

func TestGetUnknownID(t *testing.T) {
	b, _ := newTestBackend(t)

	_, err := b.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestExpiryIsLazy(t *testing.T) {
	b, clock := newTestBackend(t)
	ctx := context.Background()

	rec := record("short", []byte("x"), clock.now(), time.Second)
	require.NoError(t, b.Put(ctx, rec))

	// Retrievable while live.
	_, err := b.Get(ctx, "short")
	require.NoError(t, err)

	// Gone once now >= expires_at, even though nothing swept it.
	clock.advance(time.Second)
	_, err = b.Get(ctx, "short")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// The expired entry was also physically removed by the read.
	b.mu.RLock()
	_, stillThere := b.records["short"]
	b.mu.RUnlock()
	assert.False(t, stillThere)
}

func TestListKeysExcludesExpired(t *testing.T) {
	b, clock := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, record("a", []byte("a"), clock.now(), 10*time.Second)))
	require.NoError(t, b.Put(ctx, record("b", []byte("b"), clock.now(), 0)))

	ids, err := b.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)
}

func TestDeleteIsIdempotent(t *testing.T) {
	b, clock := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, record("a", []byte("a"), clock.now(), time.Hour)))

	require.NoError(t, b.Delete(ctx, "a"))
	require.NoError(t, b.Delete(ctx, "a"))
	require.NoError(t, b.Delete(ctx, "never-existed"))
}

func TestSweepRemovesExpired(t *testing.T) {
	b, clock := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, record("live", []byte("l"), clock.now(), time.Hour)))
	require.NoError(t, b.Put(ctx, record("dead1", []byte("d"), clock.now(), time.Second)))
	require.NoError(t, b.Put(ctx, record("dead2", []byte("d"), clock.now(), time.Second)))

	clock.advance(time.Minute)

	assert.Equal(t, 2, b.sweep())

	ids, err := b.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"live"}, ids)
}

func TestConcurrentPutsDistinctIDs(t *testing.T) {
	b, clock := newTestBackend(t)
	ctx := context.Background()

	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("id-%d", i)
			_ = b.Put(ctx, record(id, []byte(id), clock.now(), time.Hour))
		}(i)
	}
	wg.Wait()

	ids, err := b.ListKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, n)

	for i := 0; i < n; i++ {
		id := fmt.Sprintf("id-%d", i)
		got, err := b.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []byte(id), got.Payload)
	}
}

func TestConcurrentMixedOpsSameID(t *testing.T) {
	b, clock := newTestBackend(t)
	ctx := context.Background()

	payloads := [][]byte{[]byte("one"), []byte("two"), []byte("three")}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			_ = b.Put(ctx, record("same", payloads[i%len(payloads)], clock.now(), time.Hour))
		}(i)
		go func() {
			defer wg.Done()
			_, _ = b.Get(ctx, "same")
		}()
		go func() {
			defer wg.Done()
			_ = b.Delete(ctx, "same")
		}()
	}
	wg.Wait()

	// Whatever survived must be one of the written payloads, intact.
	got, err := b.Get(ctx, "same")
	if err != nil {
		assert.ErrorIs(t, err, storage.ErrNotFound)
		return
	}
	assert.Contains(t, payloads, got.Payload)
}
