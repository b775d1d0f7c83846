// Package lock serializes migration runs against one database.
package lock

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/satishbabariya/migrant/internal/adapters/database"
)

// Locker provides mutual exclusion for migration runs across processes.
type Locker interface {
	// Acquire blocks until the lock for key is held. The returned release
	// function must be called exactly once.
	Acquire(ctx context.Context, key string) (release func() error, err error)
}

// New returns the locker suited to the adapter's dialect.
func New(adapter database.Adapter) (Locker, error) {
	switch adapter.GetDialect() {
	case database.PostgreSQL:
		return NewPostgresLock(adapter), nil
	case database.MySQL:
		return NewMySQLLock(adapter, 0), nil
	case database.SQLite:
		return NewProcessLock(), nil
	default:
		return nil, fmt.Errorf("no migration lock for dialect %s", adapter.GetDialect())
	}
}

// PostgresLock uses a session advisory lock held on a reserved connection.
type PostgresLock struct {
	adapter database.Adapter
}

// NewPostgresLock creates a PostgresLock.
func NewPostgresLock(adapter database.Adapter) *PostgresLock {
	return &PostgresLock{adapter: adapter}
}

// Acquire takes pg_advisory_lock on a key derived from key.
func (l *PostgresLock) Acquire(ctx context.Context, key string) (func() error, error) {
	id := HashKey(key)

	conn, err := l.adapter.Conn(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, id); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pg_advisory_lock(%d): %w", id, err)
	}

	return once(func() error {
		defer conn.Close()
		if _, err := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, id); err != nil {
			return fmt.Errorf("pg_advisory_unlock(%d): %w", id, err)
		}
		return nil
	}), nil
}

// MySQLLock uses GET_LOCK held on a reserved connection.
type MySQLLock struct {
	adapter database.Adapter
	timeout int
}

// NewMySQLLock creates a MySQLLock. A timeout of zero or less waits
// indefinitely.
func NewMySQLLock(adapter database.Adapter, timeoutSeconds int) *MySQLLock {
	return &MySQLLock{adapter: adapter, timeout: timeoutSeconds}
}

// Acquire takes GET_LOCK on key.
func (l *MySQLLock) Acquire(ctx context.Context, key string) (func() error, error) {
	name := "migrant:" + key
	timeout := l.timeout
	if timeout <= 0 {
		timeout = -1
	}

	conn, err := l.adapter.Conn(ctx)
	if err != nil {
		return nil, err
	}

	var got sql.NullInt64
	if err := conn.QueryRowContext(ctx, `SELECT GET_LOCK(?, ?)`, name, timeout).Scan(&got); err != nil {
		conn.Close()
		return nil, fmt.Errorf("GET_LOCK(%s): %w", name, err)
	}
	if !got.Valid || got.Int64 != 1 {
		conn.Close()
		return nil, fmt.Errorf("GET_LOCK(%s): lock not granted", name)
	}

	return once(func() error {
		defer conn.Close()
		if _, err := conn.ExecContext(context.Background(), `SELECT RELEASE_LOCK(?)`, name); err != nil {
			return fmt.Errorf("RELEASE_LOCK(%s): %w", name, err)
		}
		return nil
	}), nil
}

// ProcessLock is a per-key mutex within the current process. SQLite has a
// single writer and its file locking covers other processes.
type ProcessLock struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewProcessLock creates a ProcessLock.
func NewProcessLock() *ProcessLock {
	return &ProcessLock{locks: make(map[string]chan struct{})}
}

// Acquire waits for key to be free or ctx to be done.
func (l *ProcessLock) Acquire(ctx context.Context, key string) (func() error, error) {
	l.mu.Lock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
	}

	return once(func() error {
		<-ch
		return nil
	}), nil
}

// HashKey derives a stable positive advisory lock ID from key using FNV-1a.
func HashKey(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64() & 0x7FFFFFFFFFFFFFFF)
}

func once(release func() error) func() error {
	var (
		o   sync.Once
		err error
	)
	return func() error {
		o.Do(func() { err = release() })
		return err
	}
}
