package query

import (
	"context"
	"fmt"
	"math"

	"github.com/BalajiRKB/Zero/internal/apperr"
	"github.com/BalajiRKB/Zero/internal/cqrs"
	"github.com/BalajiRKB/Zero/internal/models"
	"github.com/BalajiRKB/Zero/internal/repository"
	"github.com/BalajiRKB/Zero/internal/settlement"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
)

// ExpensePage is one page of a channel's ledger.
type ExpensePage struct {
	Expenses  []models.ExpenseView `json:"expenses"`
	Total     int                  `json:"total"`
	Page      int                  `json:"page"`
	PageCount int                  `json:"pageCount"`
}

// ExpenseQueryService serves ledger reads and the settlement summary.
// Every read is gated on channel membership.
type ExpenseQueryService struct {
	readRepo        *repository.ExpenseReadRepository
	expenseRepo     *repository.ExpenseWriteRepository
	channelRepo     *repository.ChannelWriteRepository
	channelReadRepo *repository.ChannelReadRepository
}

func NewExpenseQueryService(
	readRepo *repository.ExpenseReadRepository,
	expenseRepo *repository.ExpenseWriteRepository,
	channelRepo *repository.ChannelWriteRepository,
	channelReadRepo *repository.ChannelReadRepository,
) *ExpenseQueryService {
	return &ExpenseQueryService{
		readRepo:        readRepo,
		expenseRepo:     expenseRepo,
		channelRepo:     channelRepo,
		channelReadRepo: channelReadRepo,
	}
}

// GetExpense returns one resolved expense view. The requester must be a
// member of the owning channel.
func (s *ExpenseQueryService) GetExpense(q cqrs.GetExpenseQuery) (*models.ExpenseView, error) {
	ctx := context.Background()

	expense, err := s.expenseRepo.GetByID(q.ExpenseID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(expense.ChannelID, q.RequestingUserID); err != nil {
		return nil, err
	}
	return s.readRepo.GetViewByID(ctx, q.ExpenseID)
}

// ListExpenses returns a filtered page of the channel ledger, newest
// date first. Out-of-range page numbers yield an empty page, not an error.
func (s *ExpenseQueryService) ListExpenses(q cqrs.ListExpensesQuery) (*ExpensePage, error) {
	if err := s.requireMember(q.ChannelID, q.RequestingUserID); err != nil {
		return nil, err
	}
	if q.Category != "" && !models.IsValidCategory(q.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", apperr.ErrValidation, q.Category)
	}

	page := q.Page
	if page < 1 {
		page = defaultPage
	}
	pageSize := q.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	views, total, err := s.readRepo.List(context.Background(), q.ChannelID, repository.ExpenseFilter{
		Category:  q.Category,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		return nil, err
	}

	return &ExpensePage{
		Expenses:  views,
		Total:     total,
		Page:      page,
		PageCount: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// GetSummary computes the channel's settlement summary on demand. The
// grand total comes from the channel's running accumulator, not from
// re-summing the expense rows.
func (s *ExpenseQueryService) GetSummary(q cqrs.GetSummaryQuery) (*settlement.Summary, error) {
	ctx := context.Background()

	if err := s.requireMember(q.ChannelID, q.RequestingUserID); err != nil {
		return nil, err
	}

	channel, err := s.channelReadRepo.GetByID(ctx, q.ChannelID)
	if err != nil {
		return nil, err
	}
	if !channel.IsActive {
		return nil, fmt.Errorf("%w: channel", apperr.ErrNotFound)
	}

	expenses, err := s.readRepo.ListForSettlement(ctx, q.ChannelID)
	if err != nil {
		return nil, err
	}

	roster := make([]settlement.RosterEntry, len(channel.Members))
	for i, m := range channel.Members {
		roster[i] = settlement.RosterEntry{UserID: m.User.ID, Name: m.User.Name}
	}

	inputs := make([]settlement.Expense, len(expenses))
	for i, e := range expenses {
		splits := make([]settlement.Split, len(e.SplitBetween))
		for j, sp := range e.SplitBetween {
			splits[j] = settlement.Split{UserID: sp.UserID, Amount: sp.Amount}
		}
		inputs[i] = settlement.Expense{
			Amount:   e.Amount,
			PaidBy:   e.PaidBy,
			Category: e.Category,
			Splits:   splits,
		}
	}

	return settlement.Summarize(channel.TotalExpenses, channel.Currency, roster, inputs), nil
}

func (s *ExpenseQueryService) requireMember(channelID, userID string) error {
	isMember, err := s.channelRepo.IsMember(channelID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return fmt.Errorf("%w: not a channel member", apperr.ErrAccessDenied)
	}
	return nil
}
