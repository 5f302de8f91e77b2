package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/farmlink/farmlink/pkg/config"
)

// Token types carried in the token_type claim. Access tokens guard
// regular API calls; refresh tokens may only be exchanged for a new
// access token.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the JWT claim set issued by TokenIssuer. Subject holds the
// user's public identifier.
type Claims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenIssuer issues and verifies signed access and refresh tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenIssuer creates a token issuer from auth configuration.
func NewTokenIssuer(cfg *config.AuthConfig) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}
}

// IssueAccess issues a short-lived access token bound to the given
// user public identifier.
func (t *TokenIssuer) IssueAccess(subject string) (string, error) {
	return t.issue(subject, TokenTypeAccess, t.accessTTL)
}

// IssueRefresh issues a long-lived refresh token bound to the given
// user public identifier.
func (t *TokenIssuer) IssueRefresh(subject string) (string, error) {
	return t.issue(subject, TokenTypeRefresh, t.refreshTTL)
}

func (t *TokenIssuer) issue(subject, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify parses a token, checks its signature and expiry, and requires
// the given token type. It returns the subject (user public ID).
func (t *TokenIssuer) Verify(tokenString, wantType string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	if claims.TokenType != wantType {
		return "", fmt.Errorf("expected %s token, got %s", wantType, claims.TokenType)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Subject, nil
}
