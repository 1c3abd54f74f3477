package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/josh-kwaku/chatledger/internal/domain"
	"github.com/josh-kwaku/chatledger/internal/logging"
)

type ledgerService interface {
	Summary(ctx context.Context, chatID int64) []domain.AssetSummary
	GetReportTable(ctx context.Context, chatID int64) map[string]domain.AssetTotals
	GetConfirmedBalances(ctx context.Context, chatID int64) map[string]int64
	Confirm(ctx context.Context, chatID int64) (map[string]int64, error)
	GetDashboardMessageID(ctx context.Context, chatID int64) (int64, bool)
	SetDashboardMessageID(ctx context.Context, chatID, messageID int64) error
}

// LedgerHandler serves the operator endpoints of a single chat's ledger.
type LedgerHandler struct {
	ledger ledgerService
}

func NewLedgerHandler(ledger ledgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

type balancesDTO struct {
	ChatID int64                 `json:"chat_id"`
	Assets []domain.AssetSummary `json:"assets"`
}

type reportDTO struct {
	ChatID int64                         `json:"chat_id"`
	Totals map[string]domain.AssetTotals `json:"totals"`
}

type confirmedDTO struct {
	ChatID            int64            `json:"chat_id"`
	ConfirmedBalances map[string]int64 `json:"confirmed_balances"`
	ConfirmedAt       *time.Time       `json:"confirmed_at,omitempty"`
}

type dashboardDTO struct {
	ChatID             int64  `json:"chat_id"`
	DashboardMessageID *int64 `json:"dashboard_message_id"`
}

type setDashboardRequest struct {
	MessageID int64 `json:"message_id"`
}

func (r setDashboardRequest) Validate() []FieldError {
	var errs []FieldError
	if r.MessageID <= 0 {
		errs = append(errs, FieldError{Field: "message_id", Message: "must be a positive integer"})
	}
	return errs
}

func (h *LedgerHandler) Balances(w http.ResponseWriter, r *http.Request) {
	chatID, appErr := chatFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	RespondSuccess(w, http.StatusOK, balancesDTO{
		ChatID: chatID,
		Assets: h.ledger.Summary(r.Context(), chatID),
	})
}

func (h *LedgerHandler) Report(w http.ResponseWriter, r *http.Request) {
	chatID, appErr := chatFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	RespondSuccess(w, http.StatusOK, reportDTO{
		ChatID: chatID,
		Totals: h.ledger.GetReportTable(r.Context(), chatID),
	})
}

func (h *LedgerHandler) Confirmed(w http.ResponseWriter, r *http.Request) {
	chatID, appErr := chatFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	RespondSuccess(w, http.StatusOK, confirmedDTO{
		ChatID:            chatID,
		ConfirmedBalances: h.ledger.GetConfirmedBalances(r.Context(), chatID),
	})
}

func (h *LedgerHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	chatID, appErr := chatFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	confirmed, err := h.ledger.Confirm(r.Context(), chatID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to confirm day", "chat_id", chatID, "error", err)
		RespondDomainError(w, err)
		return
	}

	now := time.Now().UTC()
	logging.FromContext(r.Context()).Info("day confirmed", "chat_id", chatID, "assets", len(confirmed))
	RespondSuccess(w, http.StatusOK, confirmedDTO{
		ChatID:            chatID,
		ConfirmedBalances: confirmed,
		ConfirmedAt:       &now,
	})
}

func (h *LedgerHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	chatID, appErr := chatFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	dto := dashboardDTO{ChatID: chatID}
	if id, ok := h.ledger.GetDashboardMessageID(r.Context(), chatID); ok {
		dto.DashboardMessageID = &id
	}
	RespondSuccess(w, http.StatusOK, dto)
}

func (h *LedgerHandler) SetDashboard(w http.ResponseWriter, r *http.Request) {
	chatID, appErr := chatFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req setDashboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	if err := h.ledger.SetDashboardMessageID(r.Context(), chatID, req.MessageID); err != nil {
		logging.FromContext(r.Context()).Error("failed to set dashboard message", "chat_id", chatID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, dashboardDTO{
		ChatID:             chatID,
		DashboardMessageID: &req.MessageID,
	})
}
