package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/migrant/internal/adapters/database"
)

func TestNewMySQLAdapter_ForcesParseTime(t *testing.T) {
	adapter, err := NewMySQLAdapter(database.Config{URL: "root:secret@tcp(localhost:3306)/music"})
	require.NoError(t, err)
	assert.Equal(t, database.MySQL, adapter.GetDialect())
	assert.Equal(t, "mysql", adapter.Driver())
}

func TestNewMySQLAdapter_InvalidDSN(t *testing.T) {
	_, err := NewMySQLAdapter(database.Config{URL: "not a dsn"})
	assert.Error(t, err)
}
