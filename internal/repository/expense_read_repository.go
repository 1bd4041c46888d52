package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/BalajiRKB/Zero/internal/apperr"
	"github.com/BalajiRKB/Zero/internal/models"
	zeroredis "github.com/BalajiRKB/Zero/internal/redis"
)

const expenseViewKeyPrefix = "expense:view:"

// ExpenseFilter narrows a channel's expense listing. Zero values mean
// no constraint; the date bounds are inclusive.
type ExpenseFilter struct {
	Category  string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PageSize  int
}

// ExpenseReadRepository serves resolved expense views, cache-first with
// a Postgres fallback that warms the cache.
type ExpenseReadRepository struct {
	db    *sql.DB
	cache *zeroredis.ViewCache[models.ExpenseView]
}

func NewExpenseReadRepository(db *sql.DB, client *zeroredis.Client) *ExpenseReadRepository {
	return &ExpenseReadRepository{
		db:    db,
		cache: zeroredis.NewViewCache[models.ExpenseView](client, 10*time.Minute),
	}
}

func (r *ExpenseReadRepository) GetViewByID(ctx context.Context, id string) (*models.ExpenseView, error) {
	if view, ok := r.cache.Get(ctx, expenseViewKeyPrefix+id); ok {
		return view, nil
	}

	view, err := r.loadView(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Set(ctx, expenseViewKeyPrefix+id, view)
	return view, nil
}

// List returns one page of resolved views for the channel, newest date
// first, along with the total match count before pagination.
func (r *ExpenseReadRepository) List(ctx context.Context, channelID string, filter ExpenseFilter) ([]models.ExpenseView, int, error) {
	where := "WHERE e.channel_id = $1"
	args := []any{channelID}

	if filter.Category != "" {
		args = append(args, filter.Category)
		where += fmt.Sprintf(" AND e.category = $%d", len(args))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		where += fmt.Sprintf(" AND e.date >= $%d", len(args))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		where += fmt.Sprintf(" AND e.date <= $%d", len(args))
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM expenses e " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count expenses: %w", err)
	}

	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	query := fmt.Sprintf(`
		SELECT e.id, e.channel_id, e.title, COALESCE(e.description, ''), e.amount, e.currency, e.category,
		       p.id, p.name, p.email, e.date, COALESCE(e.receipt, ''), e.created_at, e.updated_at
		FROM expenses e
		JOIN users p ON p.id = e.paid_by
		%s
		ORDER BY e.date DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	views := []models.ExpenseView{}
	ids := []string{}
	for rows.Next() {
		var v models.ExpenseView
		err := rows.Scan(
			&v.ID, &v.ChannelID, &v.Title, &v.Description, &v.Amount, &v.Currency, &v.Category,
			&v.PaidBy.ID, &v.PaidBy.Name, &v.PaidBy.Email, &v.Date, &v.Receipt, &v.CreatedAt, &v.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan expense: %w", err)
		}
		views = append(views, v)
		ids = append(ids, v.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	if err := r.attachSplits(ctx, views, ids); err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// ListForSettlement loads every expense of the channel as settlement
// input, splits included, without resolving member names.
func (r *ExpenseReadRepository) ListForSettlement(ctx context.Context, channelID string) ([]models.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount, category, paid_by FROM expenses WHERE channel_id = $1`,
		channelID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	index := map[string]int{}
	ids := []string{}
	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(&e.ID, &e.Amount, &e.Category, &e.PaidBy); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		index[e.ID] = len(expenses)
		expenses = append(expenses, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	if len(expenses) == 0 {
		return expenses, nil
	}

	splitRows, err := r.db.QueryContext(ctx,
		`SELECT expense_id, member_id, amount FROM expense_splits WHERE expense_id = ANY($1) ORDER BY expense_id, position`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	defer splitRows.Close()

	for splitRows.Next() {
		var expenseID string
		var s models.SplitEntry
		if err := splitRows.Scan(&expenseID, &s.UserID, &s.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		i := index[expenseID]
		expenses[i].SplitBetween = append(expenses[i].SplitBetween, s)
	}
	return expenses, splitRows.Err()
}

// Refresh rebuilds the cached view from Postgres. Called by the event
// subscriber; a deleted expense just drops out of the cache.
func (r *ExpenseReadRepository) Refresh(ctx context.Context, id string) error {
	view, err := r.loadView(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			r.cache.Delete(ctx, expenseViewKeyPrefix+id)
			return nil
		}
		return err
	}
	r.cache.Set(ctx, expenseViewKeyPrefix+id, view)
	return nil
}

func (r *ExpenseReadRepository) CacheExpenseView(ctx context.Context, view *models.ExpenseView) {
	r.cache.Set(ctx, expenseViewKeyPrefix+view.ID, view)
}

func (r *ExpenseReadRepository) InvalidateExpenseView(ctx context.Context, id string) {
	r.cache.Delete(ctx, expenseViewKeyPrefix+id)
}

func (r *ExpenseReadRepository) loadView(ctx context.Context, id string) (*models.ExpenseView, error) {
	query := `
		SELECT e.id, e.channel_id, e.title, COALESCE(e.description, ''), e.amount, e.currency, e.category,
		       p.id, p.name, p.email, e.date, COALESCE(e.receipt, ''), e.created_at, e.updated_at
		FROM expenses e
		JOIN users p ON p.id = e.paid_by
		WHERE e.id = $1
	`
	var v models.ExpenseView
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.ChannelID, &v.Title, &v.Description, &v.Amount, &v.Currency, &v.Category,
		&v.PaidBy.ID, &v.PaidBy.Name, &v.PaidBy.Email, &v.Date, &v.Receipt, &v.CreatedAt, &v.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: expense", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load expense view: %w", err)
	}

	views := []models.ExpenseView{v}
	if err := r.attachSplits(ctx, views, []string{id}); err != nil {
		return nil, err
	}
	return &views[0], nil
}

// attachSplits resolves split members in bulk for the given views. A
// departed member has no users row anymore; the split keeps its id and
// amount with name and email blanked.
func (r *ExpenseReadRepository) attachSplits(ctx context.Context, views []models.ExpenseView, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		SELECT s.expense_id, s.member_id, COALESCE(u.name, ''), COALESCE(u.email, ''), s.amount
		FROM expense_splits s
		LEFT JOIN users u ON u.id = s.member_id
		WHERE s.expense_id = ANY($1)
		ORDER BY s.expense_id, s.position
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to list splits: %w", err)
	}
	defer rows.Close()

	index := map[string]int{}
	for i, v := range views {
		index[v.ID] = i
	}

	for rows.Next() {
		var expenseID string
		var s models.SplitEntryView
		if err := rows.Scan(&expenseID, &s.User.ID, &s.User.Name, &s.User.Email, &s.Amount); err != nil {
			return fmt.Errorf("failed to scan split: %w", err)
		}
		i, ok := index[expenseID]
		if !ok {
			slog.Warn("split row for unknown expense", "expenseId", expenseID)
			continue
		}
		views[i].SplitBetween = append(views[i].SplitBetween, s)
	}
	return rows.Err()
}
