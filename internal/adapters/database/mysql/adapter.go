// Package mysql implements MySQL database adapter.
package mysql

import (
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/satishbabariya/migrant/internal/adapters/database"
)

// NewMySQLAdapter creates a new MySQL adapter. Time columns are always
// scanned into time.Time.
func NewMySQLAdapter(config database.Config) (*database.SQLAdapter, error) {
	cfg, err := mysql.ParseDSN(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	config.URL = cfg.FormatDSN()

	return database.NewSQLAdapter("mysql", database.MySQL, config), nil
}
