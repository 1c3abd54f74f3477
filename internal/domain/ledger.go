package domain

import (
	"strconv"
	"time"
)

type MessageKey struct {
	ChatID    int64
	MessageID int64
}

func (k MessageKey) String() string {
	return strconv.FormatInt(k.ChatID, 10) + ":" + strconv.FormatInt(k.MessageID, 10)
}

type LedgerRecord struct {
	Transaction
	ChatID    int64     `json:"chat_id"`
	MessageID int64     `json:"message_id"`
	AppliedAt time.Time `json:"applied_at"`
}

func (r LedgerRecord) Key() MessageKey {
	return MessageKey{ChatID: r.ChatID, MessageID: r.MessageID}
}

type AssetTotals struct {
	In  int64 `json:"in"`
	Out int64 `json:"out"`
}

func (t AssetTotals) Net() int64 {
	return t.In - t.Out
}

// GroupState is the unit of persistence: one document per chat, always
// replaced as a whole.
type GroupState struct {
	ChatID             int64                   `json:"chat_id"`
	ConfirmedBalances  map[string]int64        `json:"confirmed_balances"`
	Totals             map[string]AssetTotals  `json:"totals"`
	Transactions       map[string]LedgerRecord `json:"transactions"`
	DashboardMessageID *int64                  `json:"dashboard_message_id,omitempty"`
	ConfirmedAt        *time.Time              `json:"confirmed_at,omitempty"`
	UpdatedAt          time.Time               `json:"updated_at"`
}

func NewGroupState(chatID int64) *GroupState {
	s := &GroupState{ChatID: chatID}
	s.Normalize()
	return s
}

// Normalize replaces nil maps left behind by decoding older or partial
// documents.
func (s *GroupState) Normalize() {
	if s.ConfirmedBalances == nil {
		s.ConfirmedBalances = make(map[string]int64)
	}
	if s.Totals == nil {
		s.Totals = make(map[string]AssetTotals)
	}
	if s.Transactions == nil {
		s.Transactions = make(map[string]LedgerRecord)
	}
}

func (s *GroupState) Balance(asset string) int64 {
	return s.ConfirmedBalances[asset] + s.Totals[asset].Net()
}

type AssetSummary struct {
	Asset     string `json:"asset"`
	Confirmed int64  `json:"confirmed"`
	In        int64  `json:"in"`
	Out       int64  `json:"out"`
	Current   int64  `json:"current"`
}
