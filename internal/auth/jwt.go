package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pizn-01/carmazium-sub000/internal/apperrors"
)

// Claims carried by access tokens. The subject id is the authenticated user.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Subject prefers the explicit user_id claim, falling back to sub.
func (c *Claims) Subject() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.RegisteredClaims.Subject
}

// Validator verifies bearer tokens against a pinned signing method. Any
// verification failure is a hard rejection; there is no fallback identity.
type Validator struct {
	method   string
	hsSecret []byte
	rsaKey   *rsa.PublicKey
}

func NewHS256Validator(secret string) (*Validator, error) {
	if secret == "" {
		return nil, errors.New("jwt: empty HS256 secret")
	}
	return &Validator{method: "HS256", hsSecret: []byte(secret)}, nil
}

func NewRS256Validator(publicKeyPath string) (*Validator, error) {
	b, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("jwt: read public key: %w", err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(b)
	if err != nil {
		return nil, fmt.Errorf("jwt: parse public key: %w", err)
	}
	return &Validator{method: "RS256", rsaKey: pub}, nil
}

// Validate parses and verifies the token and returns the subject user id.
func (v *Validator) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		switch v.method {
		case "HS256":
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
			}
			return v.hsSecret, nil
		case "RS256":
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
			}
			return v.rsaKey, nil
		default:
			return nil, fmt.Errorf("unsupported signing method %s", v.method)
		}
	})
	if err != nil {
		return "", fmt.Errorf("token rejected: %v: %w", err, apperrors.ErrUnauthorized)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims: %w", apperrors.ErrUnauthorized)
	}
	sub := claims.Subject()
	if sub == "" {
		return "", fmt.Errorf("token has no subject: %w", apperrors.ErrUnauthorized)
	}
	return sub, nil
}

// BearerToken extracts the raw token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("authorization header empty: %w", apperrors.ErrUnauthorized)
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("invalid authorization header: %w", apperrors.ErrUnauthorized)
	}
	return parts[1], nil
}
