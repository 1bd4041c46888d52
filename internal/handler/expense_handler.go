package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BalajiRKB/Zero/internal/apperr"
	"github.com/BalajiRKB/Zero/internal/cqrs"
	"github.com/BalajiRKB/Zero/internal/middleware"
	"github.com/BalajiRKB/Zero/internal/models"
	"github.com/BalajiRKB/Zero/internal/query"
	"github.com/BalajiRKB/Zero/internal/settlement"
)

// ExpenseCommander defines the write-side operations used by ExpenseHandler.
type ExpenseCommander interface {
	CreateExpense(cqrs.CreateExpenseCommand) (*models.ExpenseView, error)
	UpdateExpense(cqrs.UpdateExpenseCommand) (*models.ExpenseView, error)
	DeleteExpense(cqrs.DeleteExpenseCommand) error
}

// ExpenseQuerier defines the read-side operations used by ExpenseHandler.
type ExpenseQuerier interface {
	GetExpense(cqrs.GetExpenseQuery) (*models.ExpenseView, error)
	ListExpenses(cqrs.ListExpensesQuery) (*query.ExpensePage, error)
	GetSummary(cqrs.GetSummaryQuery) (*settlement.Summary, error)
}

type ExpenseHandler struct {
	commands ExpenseCommander
	queries  ExpenseQuerier
}

type SplitRequest struct {
	UserID string  `json:"userId" validate:"required"`
	Amount float64 `json:"amount" validate:"gte=0"`
}

type CreateExpenseRequest struct {
	Title        string         `json:"title" validate:"required,min=2,max=100"`
	Description  string         `json:"description" validate:"max=500"`
	Amount       float64        `json:"amount" validate:"required,gt=0"`
	Category     string         `json:"category" validate:"omitempty,oneof=Food Transport Accommodation Entertainment Utilities Shopping Other"`
	SplitBetween []SplitRequest `json:"splitBetween" validate:"omitempty,dive"`
	Date         *time.Time     `json:"date"`
	Receipt      string         `json:"receipt" validate:"omitempty,url"`
}

type UpdateExpenseRequest struct {
	Title        string         `json:"title" validate:"omitempty,min=2,max=100"`
	Description  string         `json:"description" validate:"max=500"`
	Amount       float64        `json:"amount" validate:"omitempty,gt=0"`
	Category     string         `json:"category" validate:"omitempty,oneof=Food Transport Accommodation Entertainment Utilities Shopping Other"`
	SplitBetween []SplitRequest `json:"splitBetween" validate:"omitempty,dive"`
	Date         *time.Time     `json:"date"`
}

func NewExpenseHandler(commands ExpenseCommander, queries ExpenseQuerier) *ExpenseHandler {
	return &ExpenseHandler{commands: commands, queries: queries}
}

func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	channelID := c.Param("channelId")
	userID, _ := middleware.GetUserID(c)

	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	view, err := h.commands.CreateExpense(cqrs.CreateExpenseCommand{
		ChannelID:    channelID,
		PayerID:      userID,
		Title:        req.Title,
		Description:  req.Description,
		Amount:       req.Amount,
		Category:     req.Category,
		SplitBetween: toSplitInputs(req.SplitBetween),
		Date:         req.Date,
		Receipt:      req.Receipt,
	})
	if err != nil {
		respondExpenseError(c, err, "Failed to create expense")
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (h *ExpenseHandler) ListExpenses(c *gin.Context) {
	channelID := c.Param("channelId")
	userID, _ := middleware.GetUserID(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	startDate, ok := parseDateQuery(c, "startDate")
	if !ok {
		return
	}
	endDate, ok := parseDateQuery(c, "endDate")
	if !ok {
		return
	}

	result, err := h.queries.ListExpenses(cqrs.ListExpensesQuery{
		ChannelID:        channelID,
		RequestingUserID: userID,
		Category:         c.Query("category"),
		StartDate:        startDate,
		EndDate:          endDate,
		Page:             page,
		PageSize:         limit,
	})
	if err != nil {
		respondExpenseError(c, err, "Failed to list expenses")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ExpenseHandler) GetExpense(c *gin.Context) {
	expenseID := c.Param("expenseId")
	userID, _ := middleware.GetUserID(c)

	view, err := h.queries.GetExpense(cqrs.GetExpenseQuery{
		ExpenseID:        expenseID,
		RequestingUserID: userID,
	})
	if err != nil {
		respondExpenseError(c, err, "Failed to get expense")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	expenseID := c.Param("expenseId")
	userID, _ := middleware.GetUserID(c)

	var req UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	view, err := h.commands.UpdateExpense(cqrs.UpdateExpenseCommand{
		ExpenseID:        expenseID,
		RequestingUserID: userID,
		Title:            req.Title,
		Description:      req.Description,
		Amount:           req.Amount,
		Category:         req.Category,
		SplitBetween:     toSplitInputs(req.SplitBetween),
		Date:             req.Date,
	})
	if err != nil {
		respondExpenseError(c, err, "Failed to update expense")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	expenseID := c.Param("expenseId")
	userID, _ := middleware.GetUserID(c)

	err := h.commands.DeleteExpense(cqrs.DeleteExpenseCommand{
		ExpenseID:        expenseID,
		RequestingUserID: userID,
	})
	if err != nil {
		respondExpenseError(c, err, "Failed to delete expense")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted"})
}

func (h *ExpenseHandler) GetSummary(c *gin.Context) {
	channelID := c.Param("channelId")
	userID, _ := middleware.GetUserID(c)

	summary, err := h.queries.GetSummary(cqrs.GetSummaryQuery{
		ChannelID:        channelID,
		RequestingUserID: userID,
	})
	if err != nil {
		respondExpenseError(c, err, "Failed to compute summary")
		return
	}

	c.JSON(http.StatusOK, summary)
}

// respondExpenseError maps ledger errors to HTTP statuses, shared across
// the expense endpoints.
func respondExpenseError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		middleware.RespondWithError(c, http.StatusNotFound, "Not found")
	case errors.Is(err, apperr.ErrAccessDenied):
		middleware.RespondWithError(c, http.StatusForbidden, "Access denied")
	case errors.Is(err, apperr.ErrForbidden):
		middleware.RespondWithError(c, http.StatusForbidden, "Only the payer or an admin can modify this expense")
	case errors.Is(err, apperr.ErrSplitMismatch), errors.Is(err, apperr.ErrValidation):
		middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
	default:
		middleware.RespondWithError(c, http.StatusInternalServerError, fallback)
	}
}

func toSplitInputs(reqs []SplitRequest) []cqrs.SplitInput {
	if reqs == nil {
		return nil
	}
	splits := make([]cqrs.SplitInput, len(reqs))
	for i, r := range reqs {
		splits[i] = cqrs.SplitInput{UserID: r.UserID, Amount: r.Amount}
	}
	return splits
}

// parseDateQuery accepts either a bare date or a full RFC 3339 timestamp.
// On a malformed value it writes a 400 response and reports false.
func parseDateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	middleware.RespondWithError(c, http.StatusBadRequest, "Invalid "+name)
	return nil, false
}
