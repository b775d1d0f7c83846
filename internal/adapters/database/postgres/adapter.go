// Package postgres implements PostgreSQL database adapter.
package postgres

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver, registered as "pgx"
	_ "github.com/lib/pq"              // PostgreSQL driver

	"github.com/satishbabariya/migrant/internal/adapters/database"
)

// Supported drivers.
const (
	DriverPQ  = "postgres"
	DriverPgx = "pgx"
)

// NewPostgresAdapter creates a new PostgreSQL adapter. The lib/pq driver is
// used unless config.Driver selects pgx.
func NewPostgresAdapter(config database.Config) (*database.SQLAdapter, error) {
	driver := DriverPQ
	switch config.Driver {
	case "", DriverPQ, "pq":
	case DriverPgx:
		driver = DriverPgx
	default:
		return nil, fmt.Errorf("unsupported postgres driver: %s", config.Driver)
	}
	return database.NewSQLAdapter(driver, database.PostgreSQL, config), nil
}
