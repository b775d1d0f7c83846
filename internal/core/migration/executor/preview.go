package executor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/satishbabariya/migrant/internal/core/query/ddl"
)

// PreviewEngine renders statements without touching a database. Committed
// statements are kept; rolled back ones are discarded.
type PreviewEngine struct {
	dialect ddl.Dialect

	mu         sync.Mutex
	statements []string
}

// NewPreviewEngine creates a preview engine for dialect.
func NewPreviewEngine(dialect ddl.Dialect) *PreviewEngine {
	return &PreviewEngine{dialect: dialect}
}

// Begin starts a recording transaction.
func (e *PreviewEngine) Begin(ctx context.Context) (Tx, error) {
	var pending []string
	return &statementTx{
		dialect: e.dialect,
		logger:  slog.New(slog.DiscardHandler),
		exec: func(ctx context.Context, query string, args ...any) error {
			pending = append(pending, query)
			return nil
		},
		commit: func() error {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.statements = append(e.statements, pending...)
			pending = nil
			return nil
		},
		rollback: func() error {
			pending = nil
			return nil
		},
	}, nil
}

// Dialect returns the provider name of the engine.
func (e *PreviewEngine) Dialect() string {
	return e.dialect.Name()
}

// Statements returns the committed statements in execution order.
func (e *PreviewEngine) Statements() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.statements...)
}

// Ensure PreviewEngine implements Engine interface.
var _ Engine = (*PreviewEngine)(nil)
