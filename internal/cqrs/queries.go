package cqrs

import "time"

// ---------- Auth queries ----------

// GetProfileQuery fetches the authenticated user's own profile.
type GetProfileQuery struct {
	UserID string
}

// ---------- Channel queries ----------

// ListChannelsQuery fetches every active channel the user belongs to.
type ListChannelsQuery struct {
	UserID string
}

// GetChannelQuery fetches a single channel, subject to membership check.
type GetChannelQuery struct {
	ChannelID        string
	RequestingUserID string
}

// ---------- Expense queries ----------

// GetExpenseQuery fetches a single expense, subject to membership check.
type GetExpenseQuery struct {
	ExpenseID        string
	RequestingUserID string
}

// ListExpensesQuery fetches a page of a channel's expenses, newest first.
// Category and the date bounds are optional filters; the date range is
// inclusive on both ends.
type ListExpensesQuery struct {
	ChannelID        string
	RequestingUserID string
	Category         string
	StartDate        *time.Time
	EndDate          *time.Time
	Page             int
	PageSize         int
}

// GetSummaryQuery computes the settlement summary for a channel.
type GetSummaryQuery struct {
	ChannelID        string
	RequestingUserID string
}
