package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/migrant/internal/adapters/database"
	"github.com/satishbabariya/migrant/internal/adapters/database/sqlite"
)

func TestHashKey(t *testing.T) {
	assert.Equal(t, HashKey("music"), HashKey("music"))
	assert.NotEqual(t, HashKey("music"), HashKey("venues"))
	assert.GreaterOrEqual(t, HashKey("music"), int64(0))
}

func TestProcessLock_Exclusive(t *testing.T) {
	l := NewProcessLock()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "music")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := l.Acquire(ctx, "music")
		if err == nil {
			close(acquired)
			second()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should block while the lock is held")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, release())
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire did not proceed after release")
	}
}

func TestProcessLock_IndependentKeys(t *testing.T) {
	l := NewProcessLock()
	ctx := context.Background()

	a, err := l.Acquire(ctx, "music")
	require.NoError(t, err)
	b, err := l.Acquire(ctx, "venues")
	require.NoError(t, err)

	assert.NoError(t, a())
	assert.NoError(t, b())
}

func TestProcessLock_ContextCancelled(t *testing.T) {
	l := NewProcessLock()
	release, err := l.Acquire(context.Background(), "music")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = l.Acquire(ctx, "music")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProcessLock_ReleaseIsIdempotent(t *testing.T) {
	l := NewProcessLock()
	release, err := l.Acquire(context.Background(), "music")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release()
		}()
	}
	wg.Wait()

	again, err := l.Acquire(context.Background(), "music")
	require.NoError(t, err)
	assert.NoError(t, again())
}

func TestNew(t *testing.T) {
	adapter, err := sqlite.NewSQLiteAdapter(database.Config{URL: ":memory:"})
	require.NoError(t, err)

	l, err := New(adapter)
	require.NoError(t, err)
	assert.IsType(t, &ProcessLock{}, l)
}

func TestPostgresLock(t *testing.T) {
	t.Skip("Requires database connection")
}
