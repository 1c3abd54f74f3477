package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/josh-kwaku/chatledger/internal/domain"
	"github.com/josh-kwaku/chatledger/internal/logging"
)

func encodeState(state *domain.GroupState) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encodeState: %w", err)
	}
	return data, nil
}

func decodeState(chatID int64, data []byte) (*domain.GroupState, error) {
	var state domain.GroupState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decodeState: %w: %v", domain.ErrCorruptSnapshot, err)
	}
	if state.ChatID == 0 {
		state.ChatID = chatID
	}
	if state.ChatID != chatID {
		return nil, fmt.Errorf("decodeState: snapshot belongs to chat %d: %w", state.ChatID, domain.ErrCorruptSnapshot)
	}
	state.Normalize()
	return &state, nil
}

// stateForUpdate never fails: a missing snapshot starts a new ledger, and a
// corrupt one is logged and replaced by the next successful write.
func stateForUpdate(ctx context.Context, chatID int64, data []byte, found bool) *domain.GroupState {
	if !found {
		return domain.NewGroupState(chatID)
	}
	state, err := decodeState(chatID, data)
	if err != nil {
		logging.FromContext(ctx).Warn("discarding corrupt ledger snapshot",
			"chat_id", chatID,
			"error", err,
		)
		return domain.NewGroupState(chatID)
	}
	return state
}
