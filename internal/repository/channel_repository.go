package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/BalajiRKB/Zero/internal/apperr"
	"github.com/BalajiRKB/Zero/internal/models"
)

// ChannelWriteRepository handles all state-mutating operations for
// channels and the membership roster. It operates exclusively against the
// PostgreSQL write store (source of truth).
type ChannelWriteRepository struct {
	db *sql.DB
}

func NewChannelWriteRepository(db *sql.DB) *ChannelWriteRepository {
	return &ChannelWriteRepository{db: db}
}

// Create inserts the channel and its initial roster in one transaction.
// A duplicate invite code surfaces as Conflict so the caller can retry
// generation.
func (r *ChannelWriteRepository) Create(channel *models.Channel) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO channels (id, name, description, currency, creator_id, invite_code, total_expenses, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = tx.Exec(query,
		channel.ID, channel.Name, nullString(channel.Description), channel.Currency,
		channel.CreatorID, channel.InviteCode, channel.TotalExpenses, channel.IsActive,
		channel.CreatedAt, channel.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("%w: invite code already in use", apperr.ErrConflict)
		}
		return fmt.Errorf("failed to create channel: %w", err)
	}

	for _, m := range channel.Members {
		_, err = tx.Exec(
			`INSERT INTO channel_members (channel_id, member_id, role, joined_at) VALUES ($1, $2, $3, $4)`,
			channel.ID, m.UserID, m.Role, m.JoinedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to add channel member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit channel creation: %w", err)
	}
	return nil
}

// GetByID fetches the full write model including the roster, in join order.
func (r *ChannelWriteRepository) GetByID(id string) (*models.Channel, error) {
	query := `
		SELECT id, name, COALESCE(description, ''), currency, creator_id, invite_code, total_expenses, is_active, created_at, updated_at
		FROM channels
		WHERE id = $1
	`
	var channel models.Channel
	err := r.db.QueryRow(query, id).Scan(
		&channel.ID, &channel.Name, &channel.Description, &channel.Currency,
		&channel.CreatorID, &channel.InviteCode, &channel.TotalExpenses, &channel.IsActive,
		&channel.CreatedAt, &channel.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: channel", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	members, err := r.members(channel.ID)
	if err != nil {
		return nil, err
	}
	channel.Members = members
	return &channel, nil
}

// GetByInviteCode resolves an invite code to its channel. Soft-deleted
// channels are unreachable by invite.
func (r *ChannelWriteRepository) GetByInviteCode(code string) (*models.Channel, error) {
	query := `
		SELECT id, name, COALESCE(description, ''), currency, creator_id, invite_code, total_expenses, is_active, created_at, updated_at
		FROM channels
		WHERE invite_code = $1 AND is_active = TRUE
	`
	var channel models.Channel
	err := r.db.QueryRow(query, code).Scan(
		&channel.ID, &channel.Name, &channel.Description, &channel.Currency,
		&channel.CreatorID, &channel.InviteCode, &channel.TotalExpenses, &channel.IsActive,
		&channel.CreatedAt, &channel.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: invite code", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve invite code: %w", err)
	}

	members, err := r.members(channel.ID)
	if err != nil {
		return nil, err
	}
	channel.Members = members
	return &channel, nil
}

// InviteCodeExists checks a candidate code against the active set. Used
// as the issuer's best-effort pre-check; the unique constraint is the
// actual guarantee.
func (r *ChannelWriteRepository) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM channels WHERE invite_code = $1 AND is_active = TRUE`, code,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check invite code: %w", err)
	}
	return count > 0, nil
}

func (r *ChannelWriteRepository) Update(channel *models.Channel) error {
	query := `
		UPDATE channels
		SET name = $2, description = $3, updated_at = $4
		WHERE id = $1 AND is_active = TRUE
	`
	result, err := r.db.Exec(query, channel.ID, channel.Name, nullString(channel.Description), channel.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update channel: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: channel", apperr.ErrNotFound)
	}
	return nil
}

// Deactivate soft-deletes the channel and removes every membership in one
// transaction, so the channel drops out of all member listings at once.
func (r *ChannelWriteRepository) Deactivate(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE channels SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active = TRUE`, id,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate channel: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: channel", apperr.ErrNotFound)
	}

	if _, err := tx.Exec(`DELETE FROM channel_members WHERE channel_id = $1`, id); err != nil {
		return fmt.Errorf("failed to remove memberships: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit channel deactivation: %w", err)
	}
	return nil
}

// AddMember appends a member to the roster. The composite primary key
// rejects a duplicate join, surfaced as AlreadyMember.
func (r *ChannelWriteRepository) AddMember(channelID, userID, role string, joinedAt time.Time) error {
	_, err := r.db.Exec(
		`INSERT INTO channel_members (channel_id, member_id, role, joined_at) VALUES ($1, $2, $3, $4)`,
		channelID, userID, role, joinedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return apperr.ErrAlreadyMember
		}
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// IsMember reports whether the user is on the channel's roster. Every
// ledger and settlement operation checks this before touching anything.
func (r *ChannelWriteRepository) IsMember(channelID, userID string) (bool, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM channel_members WHERE channel_id = $1 AND member_id = $2`,
		channelID, userID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return count > 0, nil
}

// RoleOf returns the member's role, or "" when the user is not a member.
func (r *ChannelWriteRepository) RoleOf(channelID, userID string) (string, error) {
	var role string
	err := r.db.QueryRow(
		`SELECT role FROM channel_members WHERE channel_id = $1 AND member_id = $2`,
		channelID, userID,
	).Scan(&role)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

func (r *ChannelWriteRepository) members(channelID string) ([]models.ChannelMember, error) {
	rows, err := r.db.Query(
		`SELECT member_id, role, joined_at FROM channel_members WHERE channel_id = $1 ORDER BY joined_at, member_id`,
		channelID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []models.ChannelMember
	for rows.Next() {
		var m models.ChannelMember
		if err := rows.Scan(&m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
