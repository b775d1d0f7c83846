package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/migrant/internal/adapters/database"
)

func TestNewPostgresAdapter_Driver(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{"", DriverPQ},
		{"pq", DriverPQ},
		{"pgx", DriverPgx},
	}
	for _, tt := range tests {
		adapter, err := NewPostgresAdapter(database.Config{URL: "postgres://localhost/music", Driver: tt.driver})
		require.NoError(t, err)
		assert.Equal(t, tt.want, adapter.Driver())
		assert.Equal(t, database.PostgreSQL, adapter.GetDialect())
	}

	_, err := NewPostgresAdapter(database.Config{Driver: "odbc"})
	assert.Error(t, err)
}

func TestPostgresAdapter_Connect(t *testing.T) {
	t.Skip("Requires database connection")
}
