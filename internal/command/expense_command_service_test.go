package command

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/BalajiRKB/Zero/internal/apperr"
	"github.com/BalajiRKB/Zero/internal/cqrs"
	"github.com/BalajiRKB/Zero/internal/events"
	"github.com/BalajiRKB/Zero/internal/models"
)

// ---- fakes ----

// fakeLedger implements ExpenseWriter with the same total-adjustment
// contract as the SQL repository: every mutation moves the running total
// by the amount written, and Update derives its delta from the stored row.
type fakeLedger struct {
	expenses map[string]*models.Expense
	total    float64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{expenses: map[string]*models.Expense{}}
}

func (f *fakeLedger) Create(expense *models.Expense) error {
	cp := *expense
	f.expenses[expense.ID] = &cp
	f.total += expense.Amount
	return nil
}

func (f *fakeLedger) Update(expense *models.Expense, replaceSplits bool) (float64, error) {
	stored, ok := f.expenses[expense.ID]
	if !ok {
		return 0, fmt.Errorf("%w: expense", apperr.ErrNotFound)
	}
	delta := expense.Amount - stored.Amount
	cp := *expense
	if !replaceSplits {
		cp.SplitBetween = stored.SplitBetween
	}
	f.expenses[expense.ID] = &cp
	f.total += delta
	return delta, nil
}

func (f *fakeLedger) Delete(expenseID, channelID string, amount float64) error {
	if _, ok := f.expenses[expenseID]; !ok {
		return fmt.Errorf("%w: expense", apperr.ErrNotFound)
	}
	delete(f.expenses, expenseID)
	f.total -= amount
	return nil
}

func (f *fakeLedger) GetByID(id string) (*models.Expense, error) {
	stored, ok := f.expenses[id]
	if !ok {
		return nil, fmt.Errorf("%w: expense", apperr.ErrNotFound)
	}
	cp := *stored
	return &cp, nil
}

// sumOfAmounts re-sums the stored rows, the value the running total must
// always agree with.
func (f *fakeLedger) sumOfAmounts() float64 {
	var sum float64
	for _, e := range f.expenses {
		sum += e.Amount
	}
	return sum
}

type fakeExpenseViews struct{}

func (fakeExpenseViews) Refresh(ctx context.Context, id string) error { return nil }
func (fakeExpenseViews) GetViewByID(ctx context.Context, id string) (*models.ExpenseView, error) {
	return &models.ExpenseView{ID: id}, nil
}
func (fakeExpenseViews) InvalidateExpenseView(ctx context.Context, id string) {}

type fakeRoster struct {
	channel *models.Channel
	roles   map[string]string
}

func (f *fakeRoster) GetByID(id string) (*models.Channel, error) {
	if f.channel == nil || f.channel.ID != id {
		return nil, fmt.Errorf("%w: channel", apperr.ErrNotFound)
	}
	cp := *f.channel
	return &cp, nil
}
func (f *fakeRoster) IsMember(channelID, userID string) (bool, error) {
	_, ok := f.roles[userID]
	return ok, nil
}
func (f *fakeRoster) RoleOf(channelID, userID string) (string, error) {
	return f.roles[userID], nil
}

type fakePublisher struct {
	published []events.Event
}

func (f *fakePublisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	f.published = append(f.published, events.Event{Type: eventType, Timestamp: time.Now(), Data: data})
	return nil
}

// ---- helpers ----

func newTestService() (*ExpenseCommandService, *fakeLedger, *fakePublisher) {
	ledger := newFakeLedger()
	publisher := &fakePublisher{}
	roster := &fakeRoster{
		channel: &models.Channel{
			ID: "chn-001", Name: "Flat 4B", Currency: "USD",
			CreatorID: "usr-001", IsActive: true,
			Members: []models.ChannelMember{
				{UserID: "usr-001", Role: models.RoleAdmin},
				{UserID: "usr-002", Role: models.RoleMember},
				{UserID: "usr-003", Role: models.RoleMember},
			},
		},
		roles: map[string]string{
			"usr-001": models.RoleAdmin,
			"usr-002": models.RoleMember,
			"usr-003": models.RoleMember,
		},
	}
	svc := NewExpenseCommandService(ledger, fakeExpenseViews{}, roster, publisher)
	return svc, ledger, publisher
}

func createExpense(t *testing.T, svc *ExpenseCommandService, payer string, amount float64) string {
	t.Helper()
	view, err := svc.CreateExpense(cqrs.CreateExpenseCommand{
		ChannelID: "chn-001", PayerID: payer,
		Title: "Groceries", Amount: amount,
	})
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	return view.ID
}

// ---- tests ----

func TestLedgerTotalTracksMutations(t *testing.T) {
	svc, ledger, _ := newTestService()

	first := createExpense(t, svc, "usr-001", 90)
	createExpense(t, svc, "usr-002", 30)
	if ledger.total != 120 {
		t.Fatalf("expected total 120 after two creates, got %v", ledger.total)
	}

	if _, err := svc.UpdateExpense(cqrs.UpdateExpenseCommand{
		ExpenseID: first, RequestingUserID: "usr-001", Amount: 100,
	}); err != nil {
		t.Fatalf("UpdateExpense failed: %v", err)
	}
	if ledger.total != 130 {
		t.Fatalf("expected total 130 after raising amount by 10, got %v", ledger.total)
	}

	if err := svc.DeleteExpense(cqrs.DeleteExpenseCommand{
		ExpenseID: first, RequestingUserID: "usr-001",
	}); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}
	if ledger.total != 30 {
		t.Fatalf("expected total 30 after deleting the updated expense, got %v", ledger.total)
	}

	if ledger.total != ledger.sumOfAmounts() {
		t.Errorf("running total %v diverged from sum of stored amounts %v", ledger.total, ledger.sumOfAmounts())
	}
}

func TestDeleteRestoresPriorTotal(t *testing.T) {
	svc, ledger, _ := newTestService()

	createExpense(t, svc, "usr-001", 47.5)
	before := ledger.total

	id := createExpense(t, svc, "usr-002", 10)
	if err := svc.DeleteExpense(cqrs.DeleteExpenseCommand{
		ExpenseID: id, RequestingUserID: "usr-002",
	}); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}

	if ledger.total != before {
		t.Errorf("expected total restored to %v, got %v", before, ledger.total)
	}
}

func TestCreateExpenseEqualSplitFallback(t *testing.T) {
	svc, ledger, _ := newTestService()

	id := createExpense(t, svc, "usr-001", 100)
	stored, err := ledger.GetByID(id)
	if err != nil {
		t.Fatalf("expense not stored: %v", err)
	}

	if len(stored.SplitBetween) != 3 {
		t.Fatalf("expected a split per roster member, got %d", len(stored.SplitBetween))
	}
	share := 100.0 / 3.0
	for i, want := range []string{"usr-001", "usr-002", "usr-003"} {
		if stored.SplitBetween[i].UserID != want {
			t.Errorf("split %d: expected %s in roster order, got %s", i, want, stored.SplitBetween[i].UserID)
		}
		if stored.SplitBetween[i].Amount != share {
			t.Errorf("split %d: expected raw quotient %v, got %v", i, share, stored.SplitBetween[i].Amount)
		}
	}
	if stored.Currency != "USD" {
		t.Errorf("expected the channel currency stamped on the expense, got %q", stored.Currency)
	}
}

func TestCreateExpenseSplitMismatch(t *testing.T) {
	svc, ledger, _ := newTestService()

	_, err := svc.CreateExpense(cqrs.CreateExpenseCommand{
		ChannelID: "chn-001", PayerID: "usr-001",
		Title: "Groceries", Amount: 90,
		SplitBetween: []cqrs.SplitInput{
			{UserID: "usr-001", Amount: 30},
			{UserID: "usr-002", Amount: 30},
		},
	})
	if !errors.Is(err, apperr.ErrSplitMismatch) {
		t.Fatalf("expected split mismatch, got %v", err)
	}
	if ledger.total != 0 || len(ledger.expenses) != 0 {
		t.Errorf("rejected expense must leave the ledger untouched: total=%v count=%d", ledger.total, len(ledger.expenses))
	}
}

func TestUpdateExpenseAuthorization(t *testing.T) {
	tests := []struct {
		name      string
		requester string
		wantErr   error
	}{
		{name: "payer may update", requester: "usr-002"},
		{name: "admin may update", requester: "usr-001"},
		{name: "other member may not update", requester: "usr-003", wantErr: apperr.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService()
			id := createExpense(t, svc, "usr-002", 60)

			_, err := svc.UpdateExpense(cqrs.UpdateExpenseCommand{
				ExpenseID: id, RequestingUserID: tt.requester, Title: "Weekly groceries",
			})
			if tt.wantErr == nil && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDeleteExpenseForbiddenForNonPayerMember(t *testing.T) {
	svc, ledger, _ := newTestService()
	id := createExpense(t, svc, "usr-002", 60)

	err := svc.DeleteExpense(cqrs.DeleteExpenseCommand{ExpenseID: id, RequestingUserID: "usr-003"})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if ledger.total != 60 {
		t.Errorf("rejected delete must not move the total, got %v", ledger.total)
	}
}

func TestUpdateExpensePublishesStoredDelta(t *testing.T) {
	svc, _, publisher := newTestService()
	id := createExpense(t, svc, "usr-001", 90)

	if _, err := svc.UpdateExpense(cqrs.UpdateExpenseCommand{
		ExpenseID: id, RequestingUserID: "usr-001", Amount: 100,
	}); err != nil {
		t.Fatalf("UpdateExpense failed: %v", err)
	}

	last := publisher.published[len(publisher.published)-1]
	if last.Type != events.ExpenseUpdated {
		t.Fatalf("expected %s event, got %s", events.ExpenseUpdated, last.Type)
	}
	payload, ok := last.Data.(events.ExpenseUpdatedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", last.Data)
	}
	if payload.Delta != 10 {
		t.Errorf("expected delta 10, got %v", payload.Delta)
	}
}
