package models

import "time"

// MemberRef is a member reference resolved to its display identity.
type MemberRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// ChannelMemberView is a roster entry with the member identity resolved.
type ChannelMemberView struct {
	User     MemberRef `json:"user"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// ChannelView is the read-optimised projection of a channel. Ownership
// checks go through the write model, not this projection.
type ChannelView struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	Currency      string              `json:"currency"`
	Creator       MemberRef           `json:"creator"`
	InviteCode    string              `json:"inviteCode"`
	TotalExpenses float64             `json:"totalExpenses"`
	IsActive      bool                `json:"isActive"`
	Members       []ChannelMemberView `json:"members"`
	CreatedAt     time.Time           `json:"createdTimestamp"`
	UpdatedAt     time.Time           `json:"updatedTimestamp"`
}

// SplitEntryView is a split entry with the member identity resolved.
// Name is empty when the referenced member no longer resolves.
type SplitEntryView struct {
	User   MemberRef `json:"user"`
	Amount float64   `json:"amount"`
}

// ExpenseView is the read-optimised projection of an expense, with payer
// and split members resolved to display identities.
type ExpenseView struct {
	ID           string           `json:"id"`
	ChannelID    string           `json:"channelId"`
	Title        string           `json:"title"`
	Description  string           `json:"description,omitempty"`
	Amount       float64          `json:"amount"`
	Currency     string           `json:"currency"`
	Category     string           `json:"category"`
	PaidBy       MemberRef        `json:"paidBy"`
	SplitBetween []SplitEntryView `json:"splitBetween"`
	Date         time.Time        `json:"date"`
	Receipt      string           `json:"receipt,omitempty"`
	CreatedAt    time.Time        `json:"createdTimestamp"`
	UpdatedAt    time.Time        `json:"updatedTimestamp"`
}

// UserView never exposes the password hash.
type UserView struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	DefaultCurrency string    `json:"defaultCurrency"`
	CreatedAt       time.Time `json:"createdTimestamp"`
}
