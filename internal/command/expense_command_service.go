package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BalajiRKB/Zero/internal/apperr"
	"github.com/BalajiRKB/Zero/internal/cqrs"
	"github.com/BalajiRKB/Zero/internal/events"
	"github.com/BalajiRKB/Zero/internal/models"
	"github.com/BalajiRKB/Zero/internal/settlement"
	"github.com/BalajiRKB/Zero/internal/utils"
)

// ExpenseWriter is the write-side store for expenses. Update derives the
// channel-total delta from the stored row and reports it back.
type ExpenseWriter interface {
	Create(expense *models.Expense) error
	Update(expense *models.Expense, replaceSplits bool) (float64, error)
	Delete(expenseID, channelID string, amount float64) error
	GetByID(id string) (*models.Expense, error)
}

// ExpenseViews is the cached read model kept in step after mutations.
type ExpenseViews interface {
	Refresh(ctx context.Context, id string) error
	GetViewByID(ctx context.Context, id string) (*models.ExpenseView, error)
	InvalidateExpenseView(ctx context.Context, id string)
}

// ChannelRoster answers the channel and membership questions ledger
// mutations depend on.
type ChannelRoster interface {
	GetByID(id string) (*models.Channel, error)
	IsMember(channelID, userID string) (bool, error)
	RoleOf(channelID, userID string) (string, error)
}

// EventPublisher emits domain events to a stream.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// ExpenseCommandService handles ledger mutations. Splits are validated
// against the expense amount before any write, and every mutation keeps
// the channel's running total in step transactionally.
type ExpenseCommandService struct {
	writeRepo   ExpenseWriter
	readRepo    ExpenseViews
	channelRepo ChannelRoster
	publisher   EventPublisher
}

func NewExpenseCommandService(
	writeRepo ExpenseWriter,
	readRepo ExpenseViews,
	channelRepo ChannelRoster,
	publisher EventPublisher,
) *ExpenseCommandService {
	return &ExpenseCommandService{
		writeRepo:   writeRepo,
		readRepo:    readRepo,
		channelRepo: channelRepo,
		publisher:   publisher,
	}
}

// CreateExpense records an expense in the channel ledger. The payer must
// be a member. An empty split list means an equal split across the
// current roster; supplied splits must sum to the amount within the
// settlement tolerance. The expense always carries the channel currency.
func (s *ExpenseCommandService) CreateExpense(cmd cqrs.CreateExpenseCommand) (*models.ExpenseView, error) {
	ctx := context.Background()

	channel, err := s.channelRepo.GetByID(cmd.ChannelID)
	if err != nil {
		return nil, err
	}
	if !channel.IsActive {
		return nil, fmt.Errorf("%w: channel", apperr.ErrNotFound)
	}

	isMember, err := s.channelRepo.IsMember(cmd.ChannelID, cmd.PayerID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, fmt.Errorf("%w: not a channel member", apperr.ErrAccessDenied)
	}

	category := cmd.Category
	if category == "" {
		category = models.CategoryOther
	}
	if !models.IsValidCategory(category) {
		return nil, fmt.Errorf("%w: unknown category %q", apperr.ErrValidation, category)
	}

	splits, err := resolveSplits(cmd.SplitBetween, cmd.Amount, channel)
	if err != nil {
		return nil, err
	}

	date := time.Now().UTC()
	if cmd.Date != nil {
		date = cmd.Date.UTC()
	}

	now := time.Now().UTC()
	expense := &models.Expense{
		ID:           utils.GenerateID("exp"),
		ChannelID:    cmd.ChannelID,
		Title:        cmd.Title,
		Description:  cmd.Description,
		Amount:       cmd.Amount,
		Currency:     channel.Currency,
		Category:     category,
		PaidBy:       cmd.PayerID,
		SplitBetween: splits,
		Date:         date,
		Receipt:      cmd.Receipt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.writeRepo.Create(expense); err != nil {
		return nil, err
	}

	if err := s.readRepo.Refresh(ctx, expense.ID); err != nil {
		slog.Warn("Failed to cache expense view", "expenseId", expense.ID, "error", err)
	}

	if err := s.publisher.Publish(ctx, events.ExpenseEventsStream, events.ExpenseCreated, events.ExpenseCreatedEvent{
		ExpenseID: expense.ID,
		ChannelID: expense.ChannelID,
		PaidBy:    expense.PaidBy,
		Amount:    expense.Amount,
		Category:  expense.Category,
		Delta:     expense.Amount,
	}); err != nil {
		slog.Warn("Failed to publish expense.created event", "expenseId", expense.ID, "error", err)
	}

	return s.readRepo.GetViewByID(ctx, expense.ID)
}

// UpdateExpense rewrites an expense. Only the payer or a channel admin
// may do it. A nil split list keeps the recorded split; note the old
// split is not revalidated against a changed amount in that case, the
// caller owns that tradeoff.
func (s *ExpenseCommandService) UpdateExpense(cmd cqrs.UpdateExpenseCommand) (*models.ExpenseView, error) {
	ctx := context.Background()

	expense, err := s.writeRepo.GetByID(cmd.ExpenseID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeMutation(expense, cmd.RequestingUserID); err != nil {
		return nil, err
	}

	if cmd.Title != "" {
		expense.Title = cmd.Title
	}
	if cmd.Description != "" {
		expense.Description = cmd.Description
	}
	if cmd.Amount > 0 {
		expense.Amount = cmd.Amount
	}
	if cmd.Category != "" {
		if !models.IsValidCategory(cmd.Category) {
			return nil, fmt.Errorf("%w: unknown category %q", apperr.ErrValidation, cmd.Category)
		}
		expense.Category = cmd.Category
	}
	if cmd.Date != nil {
		expense.Date = cmd.Date.UTC()
	}

	replaceSplits := cmd.SplitBetween != nil
	if replaceSplits {
		splits := make([]models.SplitEntry, len(cmd.SplitBetween))
		for i, in := range cmd.SplitBetween {
			splits[i] = models.SplitEntry{UserID: in.UserID, Amount: in.Amount}
		}
		if !splitsMatch(splits, expense.Amount) {
			return nil, apperr.ErrSplitMismatch
		}
		expense.SplitBetween = splits
	}

	expense.UpdatedAt = time.Now().UTC()
	delta, err := s.writeRepo.Update(expense, replaceSplits)
	if err != nil {
		return nil, err
	}

	if err := s.readRepo.Refresh(ctx, expense.ID); err != nil {
		slog.Warn("Failed to refresh expense view", "expenseId", expense.ID, "error", err)
	}

	if err := s.publisher.Publish(ctx, events.ExpenseEventsStream, events.ExpenseUpdated, events.ExpenseUpdatedEvent{
		ExpenseID: expense.ID,
		ChannelID: expense.ChannelID,
		Amount:    expense.Amount,
		Delta:     delta,
	}); err != nil {
		slog.Warn("Failed to publish expense.updated event", "expenseId", expense.ID, "error", err)
	}

	return s.readRepo.GetViewByID(ctx, expense.ID)
}

// DeleteExpense removes an expense and rolls its amount out of the
// channel total. Only the payer or a channel admin may do it.
func (s *ExpenseCommandService) DeleteExpense(cmd cqrs.DeleteExpenseCommand) error {
	ctx := context.Background()

	expense, err := s.writeRepo.GetByID(cmd.ExpenseID)
	if err != nil {
		return err
	}
	if err := s.authorizeMutation(expense, cmd.RequestingUserID); err != nil {
		return err
	}

	if err := s.writeRepo.Delete(expense.ID, expense.ChannelID, expense.Amount); err != nil {
		return err
	}

	s.readRepo.InvalidateExpenseView(ctx, expense.ID)

	if err := s.publisher.Publish(ctx, events.ExpenseEventsStream, events.ExpenseDeleted, events.ExpenseDeletedEvent{
		ExpenseID: expense.ID,
		ChannelID: expense.ChannelID,
		Delta:     -expense.Amount,
	}); err != nil {
		slog.Warn("Failed to publish expense.deleted event", "expenseId", expense.ID, "error", err)
	}

	return nil
}

// authorizeMutation allows the payer or any channel admin.
func (s *ExpenseCommandService) authorizeMutation(expense *models.Expense, userID string) error {
	if expense.PaidBy == userID {
		return nil
	}
	role, err := s.channelRepo.RoleOf(expense.ChannelID, userID)
	if err != nil {
		return err
	}
	if role != models.RoleAdmin {
		return fmt.Errorf("%w: only the payer or an admin can modify this expense", apperr.ErrForbidden)
	}
	return nil
}

// resolveSplits validates client-supplied splits or falls back to an
// equal split across the roster in join order.
func resolveSplits(inputs []cqrs.SplitInput, amount float64, channel *models.Channel) ([]models.SplitEntry, error) {
	if len(inputs) == 0 {
		memberIDs := make([]string, len(channel.Members))
		for i, m := range channel.Members {
			memberIDs[i] = m.UserID
		}
		shares := settlement.EqualSplit(amount, memberIDs)
		splits := make([]models.SplitEntry, len(shares))
		for i, sh := range shares {
			splits[i] = models.SplitEntry{UserID: sh.UserID, Amount: sh.Amount}
		}
		return splits, nil
	}

	splits := make([]models.SplitEntry, len(inputs))
	for i, in := range inputs {
		splits[i] = models.SplitEntry{UserID: in.UserID, Amount: in.Amount}
	}
	if !splitsMatch(splits, amount) {
		return nil, apperr.ErrSplitMismatch
	}
	return splits, nil
}

func splitsMatch(splits []models.SplitEntry, amount float64) bool {
	shares := make([]settlement.Split, len(splits))
	for i, s := range splits {
		shares[i] = settlement.Split{UserID: s.UserID, Amount: s.Amount}
	}
	return settlement.SplitsMatch(shares, amount)
}
