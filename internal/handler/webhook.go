package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/josh-kwaku/chatledger/internal/logging"
	"github.com/josh-kwaku/chatledger/internal/service"
)

type messageService interface {
	HandleNew(ctx context.Context, chatID, messageID int64, text string) (service.Outcome, error)
	HandleEdited(ctx context.Context, chatID, messageID int64, text string) (service.Outcome, error)
	HandleDeleted(ctx context.Context, chatID int64, messageIDs ...int64) ([]service.DeleteResult, error)
}

// ChatEventHandler receives chat events relayed from the messaging
// platform. The relay signs each body with the shared webhook secret.
type ChatEventHandler struct {
	messages messageService
	secret   string
}

func NewChatEventHandler(messages messageService, secret string) *ChatEventHandler {
	return &ChatEventHandler{messages: messages, secret: secret}
}

const (
	eventMessage        = "message"
	eventEditedMessage  = "edited_message"
	eventDeletedMessage = "deleted_message"
)

type chatEventPayload struct {
	Type       string  `json:"type"`
	ChatID     int64   `json:"chat_id"`
	MessageID  int64   `json:"message_id"`
	MessageIDs []int64 `json:"message_ids"`
	Text       string  `json:"text"`
}

func (p chatEventPayload) validate() []FieldError {
	var errs []FieldError

	if p.ChatID == 0 {
		errs = append(errs, FieldError{Field: "chat_id", Message: "required"})
	}

	switch p.Type {
	case "":
		errs = append(errs, FieldError{Field: "type", Message: "required"})
	case eventMessage, eventEditedMessage:
		if p.MessageID <= 0 {
			errs = append(errs, FieldError{Field: "message_id", Message: "must be a positive integer"})
		}
	case eventDeletedMessage:
		if len(p.deletedIDs()) == 0 {
			errs = append(errs, FieldError{Field: "message_ids", Message: "at least one message id required"})
		}
		for _, id := range p.MessageIDs {
			if id <= 0 {
				errs = append(errs, FieldError{Field: "message_ids", Message: "must contain positive integers"})
				break
			}
		}
	default:
		errs = append(errs, FieldError{Field: "type", Message: "must be message, edited_message or deleted_message"})
	}

	return errs
}

// deletedIDs accepts a single message_id for relays that delete one at a time.
func (p chatEventPayload) deletedIDs() []int64 {
	if len(p.MessageIDs) == 0 && p.MessageID > 0 {
		return []int64{p.MessageID}
	}
	return p.MessageIDs
}

type outcomeDTO struct {
	ChatID    int64           `json:"chat_id"`
	MessageID int64           `json:"message_id"`
	Outcome   service.Outcome `json:"outcome"`
}

type deletedDTO struct {
	ChatID  int64                  `json:"chat_id"`
	Results []service.DeleteResult `json:"results"`
}

func (h *ChatEventHandler) Receive(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		log.Error("failed to read chat event body", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	sig := r.Header.Get("X-Webhook-Signature")
	if !verifyHMAC(body, sig, h.secret) {
		log.Warn("chat event signature verification failed")
		RespondAppError(w, ErrInvalidSignature, nil)
		return
	}

	var payload chatEventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn("failed to parse chat event payload", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := payload.validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	ctx := r.Context()
	switch payload.Type {
	case eventDeletedMessage:
		results, err := h.messages.HandleDeleted(ctx, payload.ChatID, payload.deletedIDs()...)
		if err != nil {
			log.Error("failed to apply deleted messages", "chat_id", payload.ChatID, "error", err)
			RespondDomainError(w, err)
			return
		}
		RespondSuccess(w, http.StatusOK, deletedDTO{ChatID: payload.ChatID, Results: results})

	case eventEditedMessage:
		outcome, err := h.messages.HandleEdited(ctx, payload.ChatID, payload.MessageID, payload.Text)
		h.respondOutcome(w, r, payload, outcome, err)

	default:
		outcome, err := h.messages.HandleNew(ctx, payload.ChatID, payload.MessageID, payload.Text)
		h.respondOutcome(w, r, payload, outcome, err)
	}
}

func (h *ChatEventHandler) respondOutcome(w http.ResponseWriter, r *http.Request, p chatEventPayload, outcome service.Outcome, err error) {
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to apply chat event",
			"type", p.Type,
			"chat_id", p.ChatID,
			"message_id", p.MessageID,
			"error", err,
		)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, outcomeDTO{
		ChatID:    p.ChatID,
		MessageID: p.MessageID,
		Outcome:   outcome,
	})
}

func verifyHMAC(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
