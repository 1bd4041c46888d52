package repository

import (
	"database/sql"
	"fmt"

	"github.com/BalajiRKB/Zero/internal/apperr"
	"github.com/BalajiRKB/Zero/internal/models"
)

// ExpenseWriteRepository handles all state-mutating operations for
// expenses. Every mutation adjusts the owning channel's total_expenses
// accumulator inside the same transaction, with an atomic in-place
// increment rather than a read-modify-write, so concurrent writers
// cannot lose updates.
type ExpenseWriteRepository struct {
	db *sql.DB
}

func NewExpenseWriteRepository(db *sql.DB) *ExpenseWriteRepository {
	return &ExpenseWriteRepository{db: db}
}

const adjustTotalQuery = `
	UPDATE channels
	SET total_expenses = total_expenses + $2, updated_at = NOW()
	WHERE id = $1
`

// Create inserts the expense with its splits and adds the amount to the
// channel total, all in one transaction.
func (r *ExpenseWriteRepository) Create(expense *models.Expense) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO expenses (id, channel_id, title, description, amount, currency, category, paid_by, date, receipt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = tx.Exec(query,
		expense.ID, expense.ChannelID, expense.Title, nullString(expense.Description),
		expense.Amount, expense.Currency, expense.Category, expense.PaidBy,
		expense.Date, nullString(expense.Receipt), expense.CreatedAt, expense.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}

	if err := insertSplits(tx, expense.ID, expense.SplitBetween); err != nil {
		return err
	}

	if _, err := tx.Exec(adjustTotalQuery, expense.ChannelID, expense.Amount); err != nil {
		return fmt.Errorf("failed to adjust channel total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit expense creation: %w", err)
	}
	return nil
}

// Update rewrites the expense and adjusts the channel total by the
// difference between the new amount and the stored one. The stored row is
// locked while that difference is computed, so concurrent updates of the
// same expense serialise instead of basing their adjustments on the same
// stale amount. Returns the applied delta. When replaceSplits is false
// the recorded split rows are left untouched.
func (r *ExpenseWriteRepository) Update(expense *models.Expense, replaceSplits bool) (float64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var oldAmount float64
	err = tx.QueryRow(`SELECT amount FROM expenses WHERE id = $1 FOR UPDATE`, expense.ID).Scan(&oldAmount)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: expense", apperr.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock expense: %w", err)
	}

	query := `
		UPDATE expenses
		SET title = $2, description = $3, amount = $4, category = $5, date = $6, updated_at = $7
		WHERE id = $1
	`
	_, err = tx.Exec(query,
		expense.ID, expense.Title, nullString(expense.Description),
		expense.Amount, expense.Category, expense.Date, expense.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update expense: %w", err)
	}

	if replaceSplits {
		if _, err := tx.Exec(`DELETE FROM expense_splits WHERE expense_id = $1`, expense.ID); err != nil {
			return 0, fmt.Errorf("failed to clear splits: %w", err)
		}
		if err := insertSplits(tx, expense.ID, expense.SplitBetween); err != nil {
			return 0, err
		}
	}

	delta := expense.Amount - oldAmount
	if _, err := tx.Exec(adjustTotalQuery, expense.ChannelID, delta); err != nil {
		return 0, fmt.Errorf("failed to adjust channel total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit expense update: %w", err)
	}
	return delta, nil
}

// Delete removes the expense and subtracts its amount from the channel
// total in the same transaction. The subtraction trusts the incremental
// accumulator; the total is never recomputed from the remaining rows.
func (r *ExpenseWriteRepository) Delete(expenseID, channelID string, amount float64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM expenses WHERE id = $1`, expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: expense", apperr.ErrNotFound)
	}

	if _, err := tx.Exec(adjustTotalQuery, channelID, -amount); err != nil {
		return fmt.Errorf("failed to adjust channel total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit expense deletion: %w", err)
	}
	return nil
}

// GetByID fetches the full write model including splits in stored order.
func (r *ExpenseWriteRepository) GetByID(id string) (*models.Expense, error) {
	query := `
		SELECT id, channel_id, title, COALESCE(description, ''), amount, currency, category, paid_by, date, COALESCE(receipt, ''), created_at, updated_at
		FROM expenses
		WHERE id = $1
	`
	var expense models.Expense
	err := r.db.QueryRow(query, id).Scan(
		&expense.ID, &expense.ChannelID, &expense.Title, &expense.Description,
		&expense.Amount, &expense.Currency, &expense.Category, &expense.PaidBy,
		&expense.Date, &expense.Receipt, &expense.CreatedAt, &expense.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: expense", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	rows, err := r.db.Query(
		`SELECT member_id, amount FROM expense_splits WHERE expense_id = $1 ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.SplitEntry
		if err := rows.Scan(&s.UserID, &s.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		expense.SplitBetween = append(expense.SplitBetween, s)
	}
	return &expense, nil
}

func insertSplits(tx *sql.Tx, expenseID string, splits []models.SplitEntry) error {
	for i, s := range splits {
		_, err := tx.Exec(
			`INSERT INTO expense_splits (expense_id, member_id, amount, position) VALUES ($1, $2, $3, $4)`,
			expenseID, s.UserID, s.Amount, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}
	return nil
}
