package models

import "time"

// Member roles within a channel.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Expense categories. Other is the default when none is supplied.
const (
	CategoryFood          = "Food"
	CategoryTransport     = "Transport"
	CategoryAccommodation = "Accommodation"
	CategoryEntertainment = "Entertainment"
	CategoryUtilities     = "Utilities"
	CategoryShopping      = "Shopping"
	CategoryOther         = "Other"
)

// Categories lists every valid expense category.
var Categories = []string{
	CategoryFood, CategoryTransport, CategoryAccommodation,
	CategoryEntertainment, CategoryUtilities, CategoryShopping, CategoryOther,
}

// IsValidCategory reports whether category is one of the fixed set.
func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

type User struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	DefaultCurrency string    `json:"defaultCurrency"`
	CreatedAt       time.Time `json:"createdTimestamp"`
	UpdatedAt       time.Time `json:"updatedTimestamp"`
}

// ChannelMember is one roster entry. A member appears at most once per
// channel; the storage layer enforces this with a composite primary key.
type ChannelMember struct {
	UserID   string    `json:"userId"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Channel is the write model for a group sharing expenses in one currency.
// TotalExpenses is an incremental accumulator: every expense mutation
// adjusts it in the same transaction, it is never recomputed per request.
type Channel struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Currency      string          `json:"currency"`
	CreatorID     string          `json:"-"`
	InviteCode    string          `json:"inviteCode"`
	TotalExpenses float64         `json:"totalExpenses"`
	IsActive      bool            `json:"isActive"`
	Members       []ChannelMember `json:"members"`
	CreatedAt     time.Time       `json:"createdTimestamp"`
	UpdatedAt     time.Time       `json:"updatedTimestamp"`
}

// SplitEntry is one member's share of an expense. The member reference is
// weak: it stays valid even if the member later leaves the channel.
type SplitEntry struct {
	UserID string  `json:"userId"`
	Amount float64 `json:"amount"`
}

// Expense is the write model for a single shared expense. Currency always
// equals the owning channel's currency at creation time and is never
// re-derived afterwards.
type Expense struct {
	ID           string       `json:"id"`
	ChannelID    string       `json:"-"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Amount       float64      `json:"amount"`
	Currency     string       `json:"currency"`
	Category     string       `json:"category"`
	PaidBy       string       `json:"paidBy"`
	SplitBetween []SplitEntry `json:"splitBetween"`
	Date         time.Time    `json:"date"`
	Receipt      string       `json:"receipt,omitempty"`
	CreatedAt    time.Time    `json:"createdTimestamp"`
	UpdatedAt    time.Time    `json:"updatedTimestamp"`
}
