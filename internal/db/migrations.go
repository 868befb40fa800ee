package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: public blood request listing filters on both status columns.
	`CREATE INDEX IF NOT EXISTS idx_blood_requests_visibility
	     ON blood_requests(approval_status, status)`,
	// Migration 2: the availability job scans donors by last donation.
	`CREATE INDEX IF NOT EXISTS idx_users_last_donate
	     ON users(last_donate_date) WHERE last_donate_date IS NOT NULL`,
}

func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}
	return nil
}
