package repository

import (
	"database/sql"
	"fmt"
)

// schema is executed at startup. Statements are idempotent so restarts
// are safe. The unique constraints back the application-level checks:
// channels.invite_code resolves the check-then-insert race on invite
// issuance, users.email rejects duplicate registrations and the
// channel_members primary key rejects duplicate join attempts.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		default_currency TEXT NOT NULL DEFAULT 'USD',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS channels (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		currency TEXT NOT NULL,
		creator_id TEXT NOT NULL REFERENCES users(id),
		invite_code TEXT NOT NULL UNIQUE,
		total_expenses DOUBLE PRECISION NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS channel_members (
		channel_id TEXT NOT NULL REFERENCES channels(id),
		member_id TEXT NOT NULL REFERENCES users(id),
		role TEXT NOT NULL,
		joined_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (channel_id, member_id)
	)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		channel_id TEXT NOT NULL REFERENCES channels(id),
		title TEXT NOT NULL,
		description TEXT,
		amount DOUBLE PRECISION NOT NULL,
		currency TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'Other',
		paid_by TEXT NOT NULL REFERENCES users(id),
		date TIMESTAMPTZ NOT NULL,
		receipt TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	// member_id is deliberately not a foreign key into channel_members:
	// a split entry stays valid after the member leaves the channel.
	`CREATE TABLE IF NOT EXISTS expense_splits (
		expense_id TEXT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
		member_id TEXT NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (expense_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_channel_date ON expenses (channel_id, date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_channel_members_member ON channel_members (member_id)`,
}

// InitSchema creates all tables and indexes if they do not exist yet.
func InitSchema(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
