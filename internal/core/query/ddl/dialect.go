// Package ddl builds the DDL statements the migration manager executes.
package ddl

import (
	"fmt"

	"github.com/satishbabariya/migrant/internal/core/migration/domain"
	"github.com/satishbabariya/migrant/internal/core/schema"
)

// Dialect renders DDL statements for one database engine. Methods return
// domain.ErrUnsupported for operations the engine cannot express.
type Dialect interface {
	// Name returns the provider name of the dialect.
	Name() string

	CreateTable(t domain.TableHandle, columns []schema.Column) (string, error)
	DropTable(t domain.TableHandle) (string, error)
	RenameTable(t domain.TableHandle, newName string) (string, error)

	AddColumn(t domain.TableHandle, column schema.Column) (string, error)
	DropColumn(c domain.ColumnHandle) (string, error)
	RenameColumn(c domain.ColumnHandle, newName string) (string, error)

	SetColumnType(c domain.ColumnHandle, column schema.Column) (string, error)
	SetNull(c domain.ColumnHandle, null bool) (string, error)
	SetLength(c domain.ColumnHandle, length int) (string, error)
	SetUnique(c domain.ColumnHandle, unique bool) (string, error)
	SetDigits(c domain.ColumnHandle, digits *schema.Digits) (string, error)
	SetDefault(c domain.ColumnHandle, kind schema.Kind, value any) (string, error)
	DropDefault(c domain.ColumnHandle) (string, error)
	CreateIndex(c domain.ColumnHandle) (string, error)
	DropIndex(c domain.ColumnHandle) (string, error)
}

// Provider names.
const (
	PostgreSQL = "postgres"
	MySQL      = "mysql"
	SQLite     = "sqlite"
)

// ForProvider returns the dialect for a database provider.
func ForProvider(provider string) (Dialect, error) {
	switch provider {
	case PostgreSQL, "postgresql":
		return NewPostgres(), nil
	case MySQL:
		return NewMySQL(), nil
	case SQLite, "sqlite3":
		return NewSQLite(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func unsupported(d Dialect, op string) (string, error) {
	return "", fmt.Errorf("%s %s: %w", d.Name(), op, domain.ErrUnsupported)
}

// IndexName returns the name of the index created for a column.
func IndexName(c domain.ColumnHandle) string {
	return fmt.Sprintf("%s_%s", c.Table.TableName, c.ColumnName)
}

// UniqueName returns the name of the unique constraint created for a column.
func UniqueName(c domain.ColumnHandle) string {
	return fmt.Sprintf("%s_%s_key", c.Table.TableName, c.ColumnName)
}
