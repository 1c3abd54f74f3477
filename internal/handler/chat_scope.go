package handler

import (
	"net/http"
	"strconv"

	"github.com/josh-kwaku/chatledger/internal/auth"
)

// chatFromPath resolves {chatID} and checks it against the token's chat.
// A chat the token does not cover reads as not found.
func chatFromPath(r *http.Request) (int64, *AppError) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return 0, ErrMissingToken
	}

	chatID, err := strconv.ParseInt(r.PathValue("chatID"), 10, 64)
	if err != nil || chatID == 0 {
		return 0, ErrInvalidChat
	}

	if chatID != claims.ChatID {
		return 0, ErrResourceNotFound
	}

	return chatID, nil
}
