// Package auth issues the confirmation tokens that gate destructive device
// operations. A client first requests a token for a named action, then
// presents it on the destructive call itself; the two-step flow makes an
// accidental single request unable to wipe a device. Tokens are single-use:
// a consumed token cannot authorize a second destructive call.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Actions that require confirmation.
const (
	ActionFidoReset     = "fido-reset"
	ActionHsmInitialize = "hsm-initialize"
)

var (
	ErrInvalidToken  = errors.New("invalid confirmation token")
	ErrWrongAction   = errors.New("confirmation token issued for a different action")
	ErrTokenReplayed = errors.New("confirmation token already used")
)

// Config carries the signing secret, token lifetime and the consumed-token
// set. The secret is random per process run, so tokens never need to
// survive a restart and the replay set can live in memory. Build it with
// NewConfig.
type Config struct {
	Secret []byte
	TTL    time.Duration

	used *usedTokens
}

// NewConfig generates a fresh secret with the given lifetime.
func NewConfig(ttl time.Duration) (Config, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return Config{}, fmt.Errorf("generate confirmation secret: %w", err)
	}
	return Config{Secret: secret, TTL: ttl, used: newUsedTokens()}, nil
}

// usedTokens records consumed token ids until their expiry passes.
type usedTokens struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

func newUsedTokens() *usedTokens {
	return &usedTokens{ids: make(map[string]time.Time)}
}

// consume marks id used. Returns false when the id was already consumed.
func (u *usedTokens) consume(id string, expiry time.Time) bool {
	now := time.Now()

	u.mu.Lock()
	defer u.mu.Unlock()
	for seen, exp := range u.ids {
		if now.After(exp) {
			delete(u.ids, seen)
		}
	}
	if _, seen := u.ids[id]; seen {
		return false
	}
	u.ids[id] = expiry
	return true
}

type confirmClaims struct {
	Action string `json:"action"`
	jwt.RegisteredClaims
}

// GenerateToken mints a short-lived single-use token bound to one action.
func GenerateToken(config Config, action string) (string, error) {
	now := time.Now()
	claims := confirmClaims{
		Action: action,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(config.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(config.Secret)
	if err != nil {
		return "", fmt.Errorf("sign confirmation token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks signature, expiry and that the token was issued for
// the expected action, then consumes it. A second validation of the same
// token fails with ErrTokenReplayed.
func ValidateToken(config Config, tokenString, expectedAction string) error {
	token, err := jwt.ParseWithClaims(tokenString, &confirmClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return config.Secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*confirmClaims)
	if !ok || !token.Valid {
		return ErrInvalidToken
	}
	if claims.Action != expectedAction {
		return ErrWrongAction
	}
	if claims.ID == "" || config.used == nil {
		return ErrInvalidToken
	}
	if !config.used.consume(claims.ID, claims.ExpiresAt.Time) {
		return ErrTokenReplayed
	}
	return nil
}
