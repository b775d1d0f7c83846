package domain

import "time"

// AppliedMigration is a row of the migration ledger.
type AppliedMigration struct {
	ID        int64
	Name      string
	Module    string
	AppliedAt time.Time
}
