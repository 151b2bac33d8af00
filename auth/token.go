package auth

import (
	"chat-desk/errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "chat-desk"

// SessionClaims is what the session cookie carries: the resolved identity and nothing else.
type SessionClaims struct {
	IdentityID uint64 `json:"identity_id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and checks session tokens. The key is injected at startup.
type TokenIssuer struct {
	key      []byte
	duration time.Duration
	now      func() time.Time
}

func NewTokenIssuer(key []byte, duration time.Duration) *TokenIssuer {
	return &TokenIssuer{key: key, duration: duration, now: time.Now}
}

// Generate creates a signed HS256 token bound to one identity.
func (t *TokenIssuer) Generate(identityID uint64) (string, error) {
	now := t.now()
	claims := &SessionClaims{
		IdentityID: identityID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(identityID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return signed, nil
}

// Validate parses the token, checks signature, expiry and issuer, and returns the identity id.
func (t *TokenIssuer) Validate(tokenString string) (uint64, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return 0, errors.ErrInvalidSession
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.IdentityID == 0 {
		return 0, errors.ErrInvalidSession
	}
	return claims.IdentityID, nil
}
