package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BalajiRKB/Zero/internal/apperr"
	"github.com/BalajiRKB/Zero/internal/cqrs"
	"github.com/BalajiRKB/Zero/internal/models"
	"github.com/BalajiRKB/Zero/internal/query"
	"github.com/BalajiRKB/Zero/internal/settlement"
)

// ---- mock implementations ----

type mockExpenseCommander struct {
	createFn func(cqrs.CreateExpenseCommand) (*models.ExpenseView, error)
	updateFn func(cqrs.UpdateExpenseCommand) (*models.ExpenseView, error)
	deleteFn func(cqrs.DeleteExpenseCommand) error
}

func (m *mockExpenseCommander) CreateExpense(cmd cqrs.CreateExpenseCommand) (*models.ExpenseView, error) {
	if m.createFn != nil {
		return m.createFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockExpenseCommander) UpdateExpense(cmd cqrs.UpdateExpenseCommand) (*models.ExpenseView, error) {
	if m.updateFn != nil {
		return m.updateFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockExpenseCommander) DeleteExpense(cmd cqrs.DeleteExpenseCommand) error {
	if m.deleteFn != nil {
		return m.deleteFn(cmd)
	}
	return fmt.Errorf("not configured")
}

type mockExpenseQuerier struct {
	getFn     func(cqrs.GetExpenseQuery) (*models.ExpenseView, error)
	listFn    func(cqrs.ListExpensesQuery) (*query.ExpensePage, error)
	summaryFn func(cqrs.GetSummaryQuery) (*settlement.Summary, error)
}

func (m *mockExpenseQuerier) GetExpense(q cqrs.GetExpenseQuery) (*models.ExpenseView, error) {
	if m.getFn != nil {
		return m.getFn(q)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockExpenseQuerier) ListExpenses(q cqrs.ListExpensesQuery) (*query.ExpensePage, error) {
	if m.listFn != nil {
		return m.listFn(q)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockExpenseQuerier) GetSummary(q cqrs.GetSummaryQuery) (*settlement.Summary, error) {
	if m.summaryFn != nil {
		return m.summaryFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

// ---- helpers ----

func newExpenseTestRouter(cmds ExpenseCommander, qrys ExpenseQuerier, authUserID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(fakeAuth(authUserID))
	h := NewExpenseHandler(cmds, qrys)
	r.POST("/v1/channels/:channelId/expenses", h.CreateExpense)
	r.GET("/v1/channels/:channelId/expenses", h.ListExpenses)
	r.GET("/v1/channels/:channelId/summary", h.GetSummary)
	r.GET("/v1/expenses/:expenseId", h.GetExpense)
	r.PUT("/v1/expenses/:expenseId", h.UpdateExpense)
	r.DELETE("/v1/expenses/:expenseId", h.DeleteExpense)
	return r
}

// ---- test data ----

var testExpenseView = &models.ExpenseView{
	ID: "exp-001", ChannelID: "chn-001", Title: "Groceries",
	Amount: 90, Currency: "USD", Category: models.CategoryFood,
	PaidBy: models.MemberRef{ID: "usr-001", Name: "Alice"},
	SplitBetween: []models.SplitEntryView{
		{User: models.MemberRef{ID: "usr-001", Name: "Alice"}, Amount: 45},
		{User: models.MemberRef{ID: "usr-002", Name: "Bob"}, Amount: 45},
	},
	Date: time.Now(), CreatedAt: time.Now(), UpdatedAt: time.Now(),
}

func expenseBody() map[string]any {
	return map[string]any{"title": "Groceries", "amount": 90.0, "category": "Food"}
}

// ---- tests ----

func TestCreateExpense(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		createFn       func(cqrs.CreateExpenseCommand) (*models.ExpenseView, error)
		expectedStatus int
	}{
		{
			name:           "success - equal split across roster",
			body:           expenseBody(),
			createFn:       func(cmd cqrs.CreateExpenseCommand) (*models.ExpenseView, error) { return testExpenseView, nil },
			expectedStatus: http.StatusCreated,
		},
		{
			name: "success - explicit splits",
			body: map[string]any{
				"title": "Groceries", "amount": 90.0,
				"splitBetween": []map[string]any{
					{"userId": "usr-001", "amount": 30.0},
					{"userId": "usr-002", "amount": 60.0},
				},
			},
			createFn:       func(cmd cqrs.CreateExpenseCommand) (*models.ExpenseView, error) { return testExpenseView, nil },
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "bad request - zero amount",
			body:           map[string]any{"title": "Groceries", "amount": 0.0},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - unknown category",
			body:           map[string]any{"title": "Groceries", "amount": 90.0, "category": "Bribes"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad request - splits do not sum to amount",
			body: expenseBody(),
			createFn: func(cmd cqrs.CreateExpenseCommand) (*models.ExpenseView, error) {
				return nil, apperr.ErrSplitMismatch
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "forbidden - payer not a member",
			body: expenseBody(),
			createFn: func(cmd cqrs.CreateExpenseCommand) (*models.ExpenseView, error) {
				return nil, fmt.Errorf("%w: not a channel member", apperr.ErrAccessDenied)
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name: "not found - deleted channel",
			body: expenseBody(),
			createFn: func(cmd cqrs.CreateExpenseCommand) (*models.ExpenseView, error) {
				return nil, fmt.Errorf("%w: channel", apperr.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newExpenseTestRouter(&mockExpenseCommander{createFn: tt.createFn}, &mockExpenseQuerier{}, "usr-001")
			w := doRequest(router, http.MethodPost, "/v1/channels/chn-001/expenses", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestListExpenses(t *testing.T) {
	t.Run("defaults and filters forwarded", func(t *testing.T) {
		router := newExpenseTestRouter(&mockExpenseCommander{}, &mockExpenseQuerier{
			listFn: func(q cqrs.ListExpensesQuery) (*query.ExpensePage, error) {
				if q.Page != 2 || q.PageSize != 5 {
					t.Errorf("expected page 2 size 5, got %d/%d", q.Page, q.PageSize)
				}
				if q.Category != "Food" {
					t.Errorf("expected category filter, got %q", q.Category)
				}
				if q.StartDate == nil || q.StartDate.Format("2006-01-02") != "2026-01-01" {
					t.Errorf("start date not forwarded: %v", q.StartDate)
				}
				return &query.ExpensePage{
					Expenses: []models.ExpenseView{*testExpenseView},
					Total:    11, Page: 2, PageCount: 3,
				}, nil
			},
		}, "usr-001")

		w := doRequest(router, http.MethodGet, "/v1/channels/chn-001/expenses?page=2&limit=5&category=Food&startDate=2026-01-01", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var resp query.ExpensePage
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Total != 11 || resp.PageCount != 3 {
			t.Errorf("unexpected pagination: %+v", resp)
		}
	})

	t.Run("bad request - malformed date", func(t *testing.T) {
		router := newExpenseTestRouter(&mockExpenseCommander{}, &mockExpenseQuerier{}, "usr-001")
		w := doRequest(router, http.MethodGet, "/v1/channels/chn-001/expenses?startDate=yesterday", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("forbidden - not a member", func(t *testing.T) {
		router := newExpenseTestRouter(&mockExpenseCommander{}, &mockExpenseQuerier{
			listFn: func(q cqrs.ListExpensesQuery) (*query.ExpensePage, error) {
				return nil, fmt.Errorf("%w: not a channel member", apperr.ErrAccessDenied)
			},
		}, "usr-009")
		w := doRequest(router, http.MethodGet, "/v1/channels/chn-001/expenses", nil)
		if w.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", w.Code)
		}
	})
}

func TestGetExpense(t *testing.T) {
	tests := []struct {
		name           string
		getFn          func(cqrs.GetExpenseQuery) (*models.ExpenseView, error)
		expectedStatus int
	}{
		{
			name:           "success",
			getFn:          func(q cqrs.GetExpenseQuery) (*models.ExpenseView, error) { return testExpenseView, nil },
			expectedStatus: http.StatusOK,
		},
		{
			name: "not found",
			getFn: func(q cqrs.GetExpenseQuery) (*models.ExpenseView, error) {
				return nil, fmt.Errorf("%w: expense", apperr.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "forbidden - not a member of owning channel",
			getFn: func(q cqrs.GetExpenseQuery) (*models.ExpenseView, error) {
				return nil, fmt.Errorf("%w: not a channel member", apperr.ErrAccessDenied)
			},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newExpenseTestRouter(&mockExpenseCommander{}, &mockExpenseQuerier{getFn: tt.getFn}, "usr-001")
			w := doRequest(router, http.MethodGet, "/v1/expenses/exp-001", nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestUpdateExpense(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		updateFn       func(cqrs.UpdateExpenseCommand) (*models.ExpenseView, error)
		expectedStatus int
	}{
		{
			name:           "success",
			body:           map[string]any{"title": "Weekly groceries"},
			updateFn:       func(cmd cqrs.UpdateExpenseCommand) (*models.ExpenseView, error) { return testExpenseView, nil },
			expectedStatus: http.StatusOK,
		},
		{
			name: "forbidden - neither payer nor admin",
			body: map[string]any{"title": "Weekly groceries"},
			updateFn: func(cmd cqrs.UpdateExpenseCommand) (*models.ExpenseView, error) {
				return nil, fmt.Errorf("%w: only the payer or an admin can modify this expense", apperr.ErrForbidden)
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name: "bad request - new splits mismatch new amount",
			body: map[string]any{
				"amount": 100.0,
				"splitBetween": []map[string]any{
					{"userId": "usr-001", "amount": 30.0},
				},
			},
			updateFn: func(cmd cqrs.UpdateExpenseCommand) (*models.ExpenseView, error) {
				return nil, apperr.ErrSplitMismatch
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newExpenseTestRouter(&mockExpenseCommander{updateFn: tt.updateFn}, &mockExpenseQuerier{}, "usr-001")
			w := doRequest(router, http.MethodPut, "/v1/expenses/exp-001", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestDeleteExpense(t *testing.T) {
	tests := []struct {
		name           string
		deleteFn       func(cqrs.DeleteExpenseCommand) error
		expectedStatus int
	}{
		{
			name:           "success",
			deleteFn:       func(cmd cqrs.DeleteExpenseCommand) error { return nil },
			expectedStatus: http.StatusOK,
		},
		{
			name: "not found",
			deleteFn: func(cmd cqrs.DeleteExpenseCommand) error {
				return fmt.Errorf("%w: expense", apperr.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newExpenseTestRouter(&mockExpenseCommander{deleteFn: tt.deleteFn}, &mockExpenseQuerier{}, "usr-001")
			w := doRequest(router, http.MethodDelete, "/v1/expenses/exp-001", nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestGetSummary(t *testing.T) {
	router := newExpenseTestRouter(&mockExpenseCommander{}, &mockExpenseQuerier{
		summaryFn: func(q cqrs.GetSummaryQuery) (*settlement.Summary, error) {
			return &settlement.Summary{
				TotalExpenses: 90, ExpenseCount: 1, Currency: "USD",
				MemberBalances: map[string]*settlement.MemberBalance{
					"usr-001": {Name: "Alice", Paid: 90, Owes: 45, Balance: 45},
					"usr-002": {Name: "Bob", Paid: 0, Owes: 45, Balance: -45},
				},
				CategoryBreakdown: map[string]float64{models.CategoryFood: 90},
			}, nil
		},
	}, "usr-001")

	w := doRequest(router, http.MethodGet, "/v1/channels/chn-001/summary", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp settlement.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.TotalExpenses != 90 || resp.MemberBalances["usr-002"].Balance != -45 {
		t.Errorf("unexpected summary: %+v", resp)
	}
}
