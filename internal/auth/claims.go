package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL applies when GenerateToken is given a non-positive TTL.
const DefaultTokenTTL = 60 * time.Minute

// Claims carries the session's client type alongside the registered claims.
// Subject holds the client ID in decimal.
type Claims struct {
	jwt.RegisteredClaims
	ClientType ClientType `json:"client_type"`
	Name       string     `json:"name"`
}

// Principal returns the client the token was issued to.
func (c *Claims) Principal() Principal {
	id, _ := strconv.ParseInt(c.Subject, 10, 64) //nolint:errcheck // validated in ParseToken
	return Principal{ID: id, Name: c.Name, Type: c.ClientType}
}

// GenerateToken signs an HS256 session token for p.
func GenerateToken(p Principal, secret string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		ClientType: p.Type,
		Name:       p.Name,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a session token's signature, expiry and fields.
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if _, err := strconv.ParseInt(claims.Subject, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: subject %q is not a client id", ErrTokenInvalid, claims.Subject)
	}
	if !claims.ClientType.Valid() {
		return nil, fmt.Errorf("%w: %w %q", ErrTokenInvalid, ErrUnknownClientType, claims.ClientType)
	}
	return claims, nil
}
