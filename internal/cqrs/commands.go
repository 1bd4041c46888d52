package cqrs

import "time"

type RegisterUserCommand struct {
	Name            string
	Email           string
	Password        string
	DefaultCurrency string
}

type LoginCommand struct {
	Email    string
	Password string
}

type CreateChannelCommand struct {
	CreatorID   string
	Name        string
	Description string
	Currency    string
}

type UpdateChannelCommand struct {
	ChannelID        string
	RequestingUserID string
	Name             string
	Description      string
}

type DeleteChannelCommand struct {
	ChannelID        string
	RequestingUserID string
}

type JoinChannelCommand struct {
	InviteCode string
	UserID     string
}

// SplitInput is one client-supplied split entry.
type SplitInput struct {
	UserID string
	Amount float64
}

type CreateExpenseCommand struct {
	ChannelID   string
	PayerID     string
	Title       string
	Description string
	Amount      float64
	Category    string
	// SplitBetween may be empty: the ledger then computes an equal split
	// across the current roster.
	SplitBetween []SplitInput
	Date         *time.Time
	Receipt      string
}

type UpdateExpenseCommand struct {
	ExpenseID        string
	RequestingUserID string
	Title            string
	Description      string
	Amount           float64
	Category         string
	// SplitBetween nil keeps the recorded split unchanged.
	SplitBetween []SplitInput
	Date         *time.Time
}

type DeleteExpenseCommand struct {
	ExpenseID        string
	RequestingUserID string
}
