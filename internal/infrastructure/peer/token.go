// Package peer implements the HTTP clients for the inventory and
// customer directory peer services, plus the webhook notifier. All
// calls carry a short-lived HS256 service token.
package peer

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/meterbill/backend/internal/infrastructure/config"
)

// ServiceTokenSource mints and caches service-to-service tokens. Tokens
// are reissued shortly before expiry so concurrent requests share one.
type ServiceTokenSource struct {
	secret     []byte
	issuer     string
	expiration time.Duration

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewServiceTokenSource(cfg config.JWTConfig) *ServiceTokenSource {
	return &ServiceTokenSource{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		expiration: cfg.TokenExpiration,
	}
}

// Token returns a valid service token, minting a fresh one when the
// cached token is within 30 seconds of expiring
func (s *ServiceTokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Until(s.expiresAt) > 30*time.Second {
		return s.token, nil
	}

	now := time.Now()
	expiresAt := now.Add(s.expiration)
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   s.issuer,
		Audience:  jwt.ClaimStrings{"peer"},
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}

	s.token = signed
	s.expiresAt = expiresAt
	return signed, nil
}
