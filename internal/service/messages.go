package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/josh-kwaku/chatledger/internal/domain"
	"github.com/josh-kwaku/chatledger/internal/logging"
	"github.com/josh-kwaku/chatledger/internal/metrics"
)

type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"
	OutcomeRecorded  Outcome = "recorded"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeUpdated   Outcome = "updated"
	OutcomeRemoved   Outcome = "removed"
	OutcomeNotFound  Outcome = "not_found"
)

const (
	kindNew     = "message"
	kindEdited  = "edited_message"
	kindDeleted = "deleted_message"
)

type transactionParser interface {
	Parse(text string) (domain.Transaction, error)
}

type ledgerWriter interface {
	Add(ctx context.Context, chatID, messageID int64, tx domain.Transaction) (bool, error)
	Update(ctx context.Context, chatID, messageID int64, tx domain.Transaction) (bool, error)
	Remove(ctx context.Context, chatID, messageID int64) (bool, error)
}

// MessageService turns chat events into ledger mutations.
type MessageService struct {
	parser  transactionParser
	ledger  ledgerWriter
	metrics *metrics.Metrics
}

func NewMessageService(p transactionParser, l ledgerWriter, m *metrics.Metrics) *MessageService {
	return &MessageService{parser: p, ledger: l, metrics: m}
}

type DeleteResult struct {
	MessageID int64   `json:"message_id"`
	Outcome   Outcome `json:"outcome"`
}

func (s *MessageService) HandleNew(ctx context.Context, chatID, messageID int64, text string) (Outcome, error) {
	ctx = logging.WithChat(ctx, chatID, messageID)

	tx, ok := s.parse(ctx, text)
	if !ok {
		return s.done(ctx, kindNew, OutcomeIgnored), nil
	}

	added, err := s.ledger.Add(ctx, chatID, messageID, tx)
	if err != nil {
		s.metrics.MessageProcessed(kindNew, "error")
		return "", fmt.Errorf("HandleNew: %w", err)
	}
	if !added {
		return s.done(ctx, kindNew, OutcomeDuplicate), nil
	}
	return s.done(ctx, kindNew, OutcomeRecorded,
		"asset", tx.Asset,
		"amount", tx.Amount,
		"direction", tx.Direction,
	), nil
}

// HandleEdited re-parses an edited message. An edit that no longer parses
// leaves the previously recorded transaction in place.
func (s *MessageService) HandleEdited(ctx context.Context, chatID, messageID int64, text string) (Outcome, error) {
	ctx = logging.WithChat(ctx, chatID, messageID)

	tx, ok := s.parse(ctx, text)
	if !ok {
		return s.done(ctx, kindEdited, OutcomeIgnored), nil
	}

	if _, err := s.ledger.Update(ctx, chatID, messageID, tx); err != nil {
		s.metrics.MessageProcessed(kindEdited, "error")
		return "", fmt.Errorf("HandleEdited: %w", err)
	}
	return s.done(ctx, kindEdited, OutcomeUpdated,
		"asset", tx.Asset,
		"amount", tx.Amount,
		"direction", tx.Direction,
	), nil
}

// HandleDeleted removes each message's transaction. It stops at the first
// store failure and returns the results gathered so far.
func (s *MessageService) HandleDeleted(ctx context.Context, chatID int64, messageIDs ...int64) ([]DeleteResult, error) {
	results := make([]DeleteResult, 0, len(messageIDs))
	for _, id := range messageIDs {
		msgCtx := logging.WithChat(ctx, chatID, id)

		removed, err := s.ledger.Remove(msgCtx, chatID, id)
		if err != nil {
			s.metrics.MessageProcessed(kindDeleted, "error")
			return results, fmt.Errorf("HandleDeleted: message %d: %w", id, err)
		}

		outcome := OutcomeNotFound
		if removed {
			outcome = OutcomeRemoved
		}
		results = append(results, DeleteResult{MessageID: id, Outcome: s.done(msgCtx, kindDeleted, outcome)})
	}
	return results, nil
}

func (s *MessageService) parse(ctx context.Context, text string) (domain.Transaction, bool) {
	tx, err := s.parser.Parse(text)
	switch {
	case err == nil:
		return tx, true
	case errors.Is(err, domain.ErrAmountOverflow):
		logging.FromContext(ctx).Warn("amount out of range, message ignored", "error", err)
	case !errors.Is(err, domain.ErrNotRecognized):
		logging.FromContext(ctx).Error("unexpected parse failure", "error", err)
	}
	return domain.Transaction{}, false
}

func (s *MessageService) done(ctx context.Context, kind string, outcome Outcome, attrs ...any) Outcome {
	s.metrics.MessageProcessed(kind, string(outcome))
	logging.FromContext(ctx).Debug("chat event processed",
		append([]any{"kind", kind, "outcome", outcome}, attrs...)...,
	)
	return outcome
}
