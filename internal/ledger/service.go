// Package ledger is the message-keyed accounting state machine. Every
// mutation is one atomic read-modify-write of a chat's GroupState, and the
// per-asset totals always equal the sum of the active transaction records.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/josh-kwaku/chatledger/internal/domain"
	"github.com/josh-kwaku/chatledger/internal/ids"
	"github.com/josh-kwaku/chatledger/internal/logging"
	"github.com/josh-kwaku/chatledger/internal/metrics"
)

type groupStore interface {
	Load(ctx context.Context, chatID int64) (*domain.GroupState, error)
	Update(ctx context.Context, chatID int64, fn func(*domain.GroupState) error) error
}

type publisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
}

const (
	opAdd       = "add"
	opUpdate    = "update"
	opRemove    = "remove"
	opConfirm   = "confirm"
	opDashboard = "dashboard"
)

// Publishing happens after the commit and must not hold up the caller for
// long when the broker is unreachable.
const defaultPublishTimeout = 2 * time.Second

type Service struct {
	store          groupStore
	publisher      publisher
	publishTimeout time.Duration
	metrics        *metrics.Metrics
	now            func() time.Time
}

// NewService wires the ledger. publisher and m may be nil.
func NewService(store groupStore, pub publisher, m *metrics.Metrics) *Service {
	return &Service{
		store:          store,
		publisher:      pub,
		publishTimeout: defaultPublishTimeout,
		metrics:        m,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Add records tx for the message. It reports false without touching the
// ledger when the message already has a transaction.
func (s *Service) Add(ctx context.Context, chatID, messageID int64, tx domain.Transaction) (bool, error) {
	if err := validate(tx); err != nil {
		return false, fmt.Errorf("Add: %w", err)
	}
	key := domain.MessageKey{ChatID: chatID, MessageID: messageID}

	var event domain.LedgerEvent
	err := s.store.Update(ctx, chatID, func(state *domain.GroupState) error {
		if _, ok := state.Transactions[key.String()]; ok {
			return domain.ErrDuplicateMessage
		}
		if err := applyEffect(state, tx, 1); err != nil {
			return err
		}
		state.Transactions[key.String()] = s.record(key, tx)
		event = s.event(state, domain.LedgerEventTransactionAdded, messageID, &tx)
		return nil
	})
	if errors.Is(err, domain.ErrDuplicateMessage) {
		s.metrics.LedgerOp(opAdd, "duplicate")
		return false, nil
	}
	if err != nil {
		s.metrics.LedgerOp(opAdd, "error")
		return false, fmt.Errorf("Add: %w", err)
	}

	s.metrics.LedgerOp(opAdd, "ok")
	s.publish(ctx, event)
	return true, nil
}

// Update replaces the message's transaction with tx, reversing the old
// effect first. A message without a record is added.
func (s *Service) Update(ctx context.Context, chatID, messageID int64, tx domain.Transaction) (bool, error) {
	if err := validate(tx); err != nil {
		return false, fmt.Errorf("Update: %w", err)
	}
	key := domain.MessageKey{ChatID: chatID, MessageID: messageID}

	var event domain.LedgerEvent
	err := s.store.Update(ctx, chatID, func(state *domain.GroupState) error {
		old, existed := state.Transactions[key.String()]
		if existed {
			if err := applyEffect(state, old.Transaction, -1); err != nil {
				return err
			}
		}
		if err := applyEffect(state, tx, 1); err != nil {
			return err
		}
		state.Transactions[key.String()] = s.record(key, tx)
		if existed {
			pruneIdle(state, old.Asset)
		}
		event = s.event(state, domain.LedgerEventTransactionUpdated, messageID, &tx)
		return nil
	})
	if err != nil {
		s.metrics.LedgerOp(opUpdate, "error")
		return false, fmt.Errorf("Update: %w", err)
	}

	s.metrics.LedgerOp(opUpdate, "ok")
	s.publish(ctx, event)
	return true, nil
}

// Remove reverses and forgets the message's transaction. It reports false
// when the message has none.
func (s *Service) Remove(ctx context.Context, chatID, messageID int64) (bool, error) {
	key := domain.MessageKey{ChatID: chatID, MessageID: messageID}

	var event domain.LedgerEvent
	err := s.store.Update(ctx, chatID, func(state *domain.GroupState) error {
		old, ok := state.Transactions[key.String()]
		if !ok {
			return domain.ErrMessageNotFound
		}
		if err := applyEffect(state, old.Transaction, -1); err != nil {
			return err
		}
		delete(state.Transactions, key.String())
		pruneIdle(state, old.Asset)
		event = s.event(state, domain.LedgerEventTransactionRemoved, messageID, &old.Transaction)
		return nil
	})
	if errors.Is(err, domain.ErrMessageNotFound) {
		s.metrics.LedgerOp(opRemove, "not_found")
		return false, nil
	}
	if err != nil {
		s.metrics.LedgerOp(opRemove, "error")
		return false, fmt.Errorf("Remove: %w", err)
	}

	s.metrics.LedgerOp(opRemove, "ok")
	s.publish(ctx, event)
	return true, nil
}

// Confirm folds the day's movements into the confirmed balances, then clears
// the totals and the transaction log. Messages of a confirmed day can no
// longer be edited or removed.
func (s *Service) Confirm(ctx context.Context, chatID int64) (map[string]int64, error) {
	var (
		confirmed map[string]int64
		event     domain.LedgerEvent
	)
	err := s.store.Update(ctx, chatID, func(state *domain.GroupState) error {
		next := make(map[string]int64, len(state.ConfirmedBalances)+len(state.Totals))
		for _, asset := range assets(state) {
			balance, ok := addInt64(state.ConfirmedBalances[asset], state.Totals[asset].Net())
			if !ok {
				return fmt.Errorf("asset %q: %w", asset, domain.ErrAmountOverflow)
			}
			next[asset] = balance
		}

		now := s.now()
		state.ConfirmedBalances = next
		state.Totals = make(map[string]domain.AssetTotals)
		state.Transactions = make(map[string]domain.LedgerRecord)
		state.ConfirmedAt = &now

		confirmed = maps.Clone(next)
		event = s.event(state, domain.LedgerEventDayConfirmed, 0, nil)
		return nil
	})
	if err != nil {
		s.metrics.LedgerOp(opConfirm, "error")
		return nil, fmt.Errorf("Confirm: %w", err)
	}

	s.metrics.LedgerOp(opConfirm, "ok")
	s.publish(ctx, event)
	return confirmed, nil
}

func (s *Service) GetBalance(ctx context.Context, chatID int64, asset string) int64 {
	return s.load(ctx, chatID).Balance(asset)
}

func (s *Service) GetAllBalances(ctx context.Context, chatID int64) map[string]int64 {
	return balances(s.load(ctx, chatID))
}

func (s *Service) GetReportTable(ctx context.Context, chatID int64) map[string]domain.AssetTotals {
	return maps.Clone(s.load(ctx, chatID).Totals)
}

func (s *Service) GetConfirmedBalances(ctx context.Context, chatID int64) map[string]int64 {
	return maps.Clone(s.load(ctx, chatID).ConfirmedBalances)
}

// Summary is one row per asset, sorted by asset name.
func (s *Service) Summary(ctx context.Context, chatID int64) []domain.AssetSummary {
	state := s.load(ctx, chatID)

	rows := make([]domain.AssetSummary, 0, len(state.Totals))
	for _, asset := range assets(state) {
		totals := state.Totals[asset]
		rows = append(rows, domain.AssetSummary{
			Asset:     asset,
			Confirmed: state.ConfirmedBalances[asset],
			In:        totals.In,
			Out:       totals.Out,
			Current:   state.Balance(asset),
		})
	}
	return rows
}

func (s *Service) GetTransaction(ctx context.Context, chatID, messageID int64) (domain.LedgerRecord, bool) {
	key := domain.MessageKey{ChatID: chatID, MessageID: messageID}
	rec, ok := s.load(ctx, chatID).Transactions[key.String()]
	return rec, ok
}

func (s *Service) SetDashboardMessageID(ctx context.Context, chatID, messageID int64) error {
	err := s.store.Update(ctx, chatID, func(state *domain.GroupState) error {
		state.DashboardMessageID = &messageID
		return nil
	})
	if err != nil {
		s.metrics.LedgerOp(opDashboard, "error")
		return fmt.Errorf("SetDashboardMessageID: %w", err)
	}
	s.metrics.LedgerOp(opDashboard, "ok")
	return nil
}

func (s *Service) GetDashboardMessageID(ctx context.Context, chatID int64) (int64, bool) {
	id := s.load(ctx, chatID).DashboardMessageID
	if id == nil {
		return 0, false
	}
	return *id, true
}

// load never fails: an unreadable ledger is reported as empty.
func (s *Service) load(ctx context.Context, chatID int64) *domain.GroupState {
	state, err := s.store.Load(ctx, chatID)
	if err != nil {
		logging.FromContext(ctx).Error("ledger read failed, serving empty state",
			"chat_id", chatID,
			"error", err,
		)
		return domain.NewGroupState(chatID)
	}
	return state
}

func (s *Service) record(key domain.MessageKey, tx domain.Transaction) domain.LedgerRecord {
	return domain.LedgerRecord{
		Transaction: tx,
		ChatID:      key.ChatID,
		MessageID:   key.MessageID,
		AppliedAt:   s.now(),
	}
}

func (s *Service) event(state *domain.GroupState, typ domain.LedgerEventType, messageID int64, tx *domain.Transaction) domain.LedgerEvent {
	event := domain.LedgerEvent{
		ID:         ids.New(),
		Type:       typ,
		ChatID:     state.ChatID,
		MessageID:  messageID,
		Balances:   balances(state),
		OccurredAt: s.now(),
	}
	if tx != nil {
		copied := *tx
		event.Transaction = &copied
	}
	if state.DashboardMessageID != nil {
		id := *state.DashboardMessageID
		event.DashboardMessageID = &id
	}
	return event
}

// publish runs after the write committed, so a failure is only reported.
// Events of one chat may reach the publisher out of commit order; their IDs
// sort in commit order.
func (s *Service) publish(ctx context.Context, event domain.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, event); err != nil {
		s.metrics.PublishFailed()
		logging.FromContext(ctx).Error("failed to publish ledger event",
			"chat_id", event.ChatID,
			"event_type", event.Type,
			"error", err,
		)
	}
}

func validate(tx domain.Transaction) error {
	if tx.Amount < 0 {
		return fmt.Errorf("negative amount %d: %w", tx.Amount, domain.ErrInvalidRequest)
	}
	if !tx.Direction.IsValid() {
		return fmt.Errorf("direction %q: %w", tx.Direction, domain.ErrInvalidRequest)
	}
	return nil
}

// applyEffect adds (sign 1) or reverses (sign -1) tx on the asset totals.
func applyEffect(state *domain.GroupState, tx domain.Transaction, sign int64) error {
	totals := state.Totals[tx.Asset]
	target := &totals.In
	if tx.Direction == domain.DirectionOut {
		target = &totals.Out
	}

	next, ok := addInt64(*target, sign*tx.Amount)
	if !ok {
		return fmt.Errorf("asset %q: %w", tx.Asset, domain.ErrAmountOverflow)
	}
	*target = next
	state.Totals[tx.Asset] = totals
	return nil
}

// pruneIdle drops the asset's totals row once no active record uses it and
// it has fallen back to zero, so a reversed message leaves no trace.
func pruneIdle(state *domain.GroupState, asset string) {
	if state.Totals[asset] != (domain.AssetTotals{}) {
		return
	}
	for _, rec := range state.Transactions {
		if rec.Asset == asset {
			return
		}
	}
	delete(state.Totals, asset)
}

func addInt64(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

func assets(state *domain.GroupState) []string {
	set := make(map[string]struct{}, len(state.ConfirmedBalances)+len(state.Totals))
	for asset := range state.ConfirmedBalances {
		set[asset] = struct{}{}
	}
	for asset := range state.Totals {
		set[asset] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

func balances(state *domain.GroupState) map[string]int64 {
	out := make(map[string]int64)
	for _, asset := range assets(state) {
		out[asset] = state.Balance(asset)
	}
	return out
}
