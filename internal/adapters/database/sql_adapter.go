package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLAdapter implements Adapter on top of database/sql. Engine packages
// configure it with their driver name and connection hooks.
type SQLAdapter struct {
	db      *sql.DB
	config  Config
	driver  string
	dialect SQLDialect

	// singleConn limits the pool to one connection.
	singleConn bool
	// afterConnect runs once the connection has been verified.
	afterConnect func(ctx context.Context, db *sql.DB) error
}

// SQLOption configures a SQLAdapter.
type SQLOption func(*SQLAdapter)

// WithSingleConnection limits the pool to a single connection.
func WithSingleConnection() SQLOption {
	return func(a *SQLAdapter) { a.singleConn = true }
}

// WithAfterConnect registers a hook that runs after a successful ping.
func WithAfterConnect(fn func(ctx context.Context, db *sql.DB) error) SQLOption {
	return func(a *SQLAdapter) { a.afterConnect = fn }
}

// NewSQLAdapter creates an adapter for the given database/sql driver.
func NewSQLAdapter(driver string, dialect SQLDialect, config Config, opts ...SQLOption) *SQLAdapter {
	a := &SQLAdapter{driver: driver, dialect: dialect, config: config}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Connect establishes a connection to the database.
func (a *SQLAdapter) Connect(ctx context.Context) error {
	db, err := sql.Open(a.driver, a.config.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	if a.singleConn {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else if a.config.MaxConnections > 0 {
		db.SetMaxOpenConns(a.config.MaxConnections)
		db.SetMaxIdleConns(a.config.MaxConnections / 2)
	}
	db.SetConnMaxIdleTime(time.Duration(a.config.MaxIdleTime) * time.Second)

	timeout := time.Duration(a.config.ConnectTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if a.afterConnect != nil {
		if err := a.afterConnect(ctx, db); err != nil {
			db.Close()
			return err
		}
	}

	a.db = db
	return nil
}

// Disconnect closes the database connection.
func (a *SQLAdapter) Disconnect(ctx context.Context) error {
	if a.db != nil {
		err := a.db.Close()
		a.db = nil
		return err
	}
	return nil
}

// Execute executes a query without returning rows.
func (a *SQLAdapter) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	return a.db.ExecContext(ctx, query, args...)
}

// Query executes a query that returns rows.
func (a *SQLAdapter) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	return a.db.QueryContext(ctx, query, args...)
}

// QueryRow executes a query that returns a single row.
func (a *SQLAdapter) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	if a.db == nil {
		return nil
	}
	return a.db.QueryRowContext(ctx, query, args...)
}

// Begin starts a new transaction.
func (a *SQLAdapter) Begin(ctx context.Context) (Transaction, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &SQLTransaction{tx: tx}, nil
}

// Conn reserves a single connection from the pool.
func (a *SQLAdapter) Conn(ctx context.Context) (*sql.Conn, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	return a.db.Conn(ctx)
}

// Ping checks if the database connection is alive.
func (a *SQLAdapter) Ping(ctx context.Context) error {
	if a.db == nil {
		return fmt.Errorf("database not connected")
	}
	return a.db.PingContext(ctx)
}

// GetDialect returns the SQL dialect.
func (a *SQLAdapter) GetDialect() SQLDialect {
	return a.dialect
}

// Driver returns the database/sql driver name in use.
func (a *SQLAdapter) Driver() string {
	return a.driver
}

// SQLTransaction implements the Transaction interface.
type SQLTransaction struct {
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *SQLTransaction) Commit() error {
	return t.tx.Commit()
}

// Rollback rolls back the transaction.
func (t *SQLTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Execute executes a query within the transaction.
func (t *SQLTransaction) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

// Query executes a query within the transaction.
func (t *SQLTransaction) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

// Ensure SQLAdapter implements Adapter interface.
var _ Adapter = (*SQLAdapter)(nil)

// Ensure SQLTransaction implements Transaction interface.
var _ Transaction = (*SQLTransaction)(nil)
