package events

import (
	"encoding/json"
	"time"
)

// Event types
const (
	ChannelCreated = "channel.created"
	ChannelUpdated = "channel.updated"
	ChannelDeleted = "channel.deleted"
	MemberJoined   = "channel.member_joined"

	ExpenseCreated = "expense.created"
	ExpenseUpdated = "expense.updated"
	ExpenseDeleted = "expense.deleted"
)

// Stream names
const (
	ChannelEventsStream = "channel.events"
	ExpenseEventsStream = "expense.events"
)

// Base event structure
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// DecodeData unmarshals the event payload into target. After transport
// the payload arrives as a generic JSON value, so it round-trips through
// json to recover the typed struct.
func DecodeData(event Event, target any) error {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}

// Channel events
type ChannelCreatedEvent struct {
	ChannelID string `json:"channelId"`
	CreatorID string `json:"creatorId"`
	Name      string `json:"name"`
	Currency  string `json:"currency"`
}

type ChannelUpdatedEvent struct {
	ChannelID string `json:"channelId"`
	Name      string `json:"name"`
}

type ChannelDeletedEvent struct {
	ChannelID string `json:"channelId"`
}

type MemberJoinedEvent struct {
	ChannelID string `json:"channelId"`
	UserID    string `json:"userId"`
	Role      string `json:"role"`
}

// Expense events. Delta is the change applied to the channel's running
// total: +amount on create, new-old on update, -amount on delete.
type ExpenseCreatedEvent struct {
	ExpenseID string  `json:"expenseId"`
	ChannelID string  `json:"channelId"`
	PaidBy    string  `json:"paidBy"`
	Amount    float64 `json:"amount"`
	Category  string  `json:"category"`
	Delta     float64 `json:"delta"`
}

type ExpenseUpdatedEvent struct {
	ExpenseID string  `json:"expenseId"`
	ChannelID string  `json:"channelId"`
	Amount    float64 `json:"amount"`
	Delta     float64 `json:"delta"`
}

type ExpenseDeletedEvent struct {
	ExpenseID string  `json:"expenseId"`
	ChannelID string  `json:"channelId"`
	Delta     float64 `json:"delta"`
}
