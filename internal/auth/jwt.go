package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "chatledger"

var ErrMissingChat = errors.New("token carries no chat_id")

// Claims identify an operator allowed to act on exactly one chat's ledger.
type Claims struct {
	ChatID  int64
	Subject string
	TokenID string
}

type tokenClaims struct {
	jwt.RegisteredClaims
	ChatID int64 `json:"chat_id"`
}

func GenerateToken(chatID int64, subject string, secret string, expiry time.Duration) (string, error) {
	if chatID == 0 {
		return "", fmt.Errorf("GenerateToken: %w", ErrMissingChat)
	}

	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		ChatID: chatID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("GenerateToken: %w", err)
	}
	return signed, nil
}

func ValidateToken(tokenString string, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("ValidateToken: %w", err)
	}

	tc, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("ValidateToken: invalid token claims")
	}
	if tc.ChatID == 0 {
		return nil, fmt.Errorf("ValidateToken: %w", ErrMissingChat)
	}

	return &Claims{
		ChatID:  tc.ChatID,
		Subject: tc.Subject,
		TokenID: tc.ID,
	}, nil
}
