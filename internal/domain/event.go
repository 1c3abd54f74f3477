package domain

import "time"

type LedgerEventType string

const (
	LedgerEventTransactionAdded   LedgerEventType = "transaction.added"
	LedgerEventTransactionUpdated LedgerEventType = "transaction.updated"
	LedgerEventTransactionRemoved LedgerEventType = "transaction.removed"
	LedgerEventDayConfirmed       LedgerEventType = "day.confirmed"
)

// LedgerEvent is emitted after a committed mutation. ID is a ULID; consumers
// order a chat's events by ID, not by arrival.
type LedgerEvent struct {
	ID                 string           `json:"id"`
	Type               LedgerEventType  `json:"type"`
	ChatID             int64            `json:"chat_id"`
	MessageID          int64            `json:"message_id,omitempty"`
	Transaction        *Transaction     `json:"transaction,omitempty"`
	Balances           map[string]int64 `json:"balances"`
	DashboardMessageID *int64           `json:"dashboard_message_id,omitempty"`
	OccurredAt         time.Time        `json:"occurred_at"`
}
