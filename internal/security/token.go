package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of a session token. Tokens are
// self-contained; the server keeps no session state, so a token stays
// valid until its expiry.
type SessionClaims struct {
	UserID      string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
	Verified    bool     `json:"verified"`
	jwt.RegisteredClaims
}

// ResetClaims is the payload of a password-reset token.
type ResetClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

func SignSession(secret string, claims SessionClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.Subject = claims.UserID

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func SignReset(secret string, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ResetClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}
	return signed, nil
}

// VerifySession validates the token's signature and expiry and returns
// its claims, or nil on any failure. Verification never errors so that
// requests carrying a stale token degrade to anonymous.
func VerifySession(tokenStr string, secret string) *SessionClaims {
	claims := &SessionClaims{}
	if !verify(tokenStr, secret, claims) {
		return nil
	}
	return claims
}

// VerifyReset is VerifySession for password-reset tokens.
func VerifyReset(tokenStr string, secret string) *ResetClaims {
	claims := &ResetClaims{}
	if !verify(tokenStr, secret, claims) {
		return nil
	}
	return claims
}

func verify(tokenStr string, secret string, claims jwt.Claims) bool {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	return err == nil && token.Valid
}
