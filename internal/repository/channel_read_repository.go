package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BalajiRKB/Zero/internal/apperr"
	"github.com/BalajiRKB/Zero/internal/models"
	zeroredis "github.com/BalajiRKB/Zero/internal/redis"
)

const channelViewKeyPrefix = "channel:view:"

// ChannelReadRepository handles all read operations for channels. It
// treats Redis as the primary read store and falls back to PostgreSQL
// transparently, warming the cache on every cold read.
type ChannelReadRepository struct {
	db    *sql.DB
	cache *zeroredis.ViewCache[models.ChannelView]
}

func NewChannelReadRepository(db *sql.DB, redisClient *zeroredis.Client) *ChannelReadRepository {
	return &ChannelReadRepository{
		db:    db,
		cache: zeroredis.NewViewCache[models.ChannelView](redisClient, 0),
	}
}

// GetByID returns a ChannelView, trying Redis first then PostgreSQL.
func (r *ChannelReadRepository) GetByID(ctx context.Context, id string) (*models.ChannelView, error) {
	if view, ok := r.cache.Get(ctx, channelViewKeyPrefix+id); ok {
		return view, nil
	}

	view, err := r.loadView(ctx, id)
	if err != nil {
		return nil, err
	}

	// Warm the cache
	r.CacheChannelView(ctx, view)
	return view, nil
}

// ListByUserID returns every active channel the user belongs to, most
// recently updated first. Listings always come from PostgreSQL; only
// single-channel views are cached.
func (r *ChannelReadRepository) ListByUserID(ctx context.Context, userID string) ([]models.ChannelView, error) {
	query := `
		SELECT c.id
		FROM channels c
		JOIN channel_members cm ON cm.channel_id = c.id
		WHERE cm.member_id = $1 AND c.is_active = TRUE
		ORDER BY c.updated_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan channel id: %w", err)
		}
		ids = append(ids, id)
	}

	views := make([]models.ChannelView, 0, len(ids))
	for _, id := range ids {
		view, err := r.loadView(ctx, id)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

// Refresh re-reads the channel from PostgreSQL, bypassing the cache, and
// re-caches the result. The event subscriber calls this after ledger
// mutations to keep the read model current.
func (r *ChannelReadRepository) Refresh(ctx context.Context, id string) error {
	view, err := r.loadView(ctx, id)
	if err != nil {
		return err
	}
	r.CacheChannelView(ctx, view)
	return nil
}

// CacheChannelView stores or refreshes the Redis read model for a channel.
// Called by the command service after every mutation.
func (r *ChannelReadRepository) CacheChannelView(ctx context.Context, view *models.ChannelView) {
	r.cache.Set(ctx, channelViewKeyPrefix+view.ID, view)
}

// InvalidateChannelView removes the read model entry for a deactivated channel.
func (r *ChannelReadRepository) InvalidateChannelView(ctx context.Context, id string) {
	r.cache.Delete(ctx, channelViewKeyPrefix+id)
}

// loadView assembles a ChannelView from PostgreSQL with the creator and
// every roster member resolved to display identities.
func (r *ChannelReadRepository) loadView(ctx context.Context, id string) (*models.ChannelView, error) {
	query := `
		SELECT c.id, c.name, COALESCE(c.description, ''), c.currency,
		       c.creator_id, creator.name, creator.email,
		       c.invite_code, c.total_expenses, c.is_active, c.created_at, c.updated_at
		FROM channels c
		JOIN users creator ON creator.id = c.creator_id
		WHERE c.id = $1
	`
	var view models.ChannelView
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&view.ID, &view.Name, &view.Description, &view.Currency,
		&view.Creator.ID, &view.Creator.Name, &view.Creator.Email,
		&view.InviteCode, &view.TotalExpenses, &view.IsActive,
		&view.CreatedAt, &view.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: channel", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	memberQuery := `
		SELECT cm.member_id, u.name, u.email, cm.role, cm.joined_at
		FROM channel_members cm
		JOIN users u ON u.id = cm.member_id
		WHERE cm.channel_id = $1
		ORDER BY cm.joined_at, cm.member_id
	`
	rows, err := r.db.QueryContext(ctx, memberQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.ChannelMemberView
		if err := rows.Scan(&m.User.ID, &m.User.Name, &m.User.Email, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		view.Members = append(view.Members, m)
	}
	return &view, nil
}
