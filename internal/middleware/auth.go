package middleware

import (
	"net/http"
	"strings"

	"github.com/josh-kwaku/chatledger/internal/auth"
	"github.com/josh-kwaku/chatledger/internal/handler"
	"github.com/josh-kwaku/chatledger/internal/logging"
)

// Auth admits bearer tokens minted for one chat and puts their claims on
// the request context. Whether the token covers the requested chat is
// decided by the handler.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}

			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			claims, err := auth.ValidateToken(token, secret)
			if err != nil {
				logging.FromContext(r.Context()).Debug("rejected bearer token", "error", err)
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			ctx := auth.ContextWithClaims(r.Context(), claims)
			ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With(
				"token_chat_id", claims.ChatID,
				"token_subject", claims.Subject,
			))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
