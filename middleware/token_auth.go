package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const accessTokenHeader = "X-Access-Token"

// TokenVerifier checks HS256 player tokens for clients that do not come through
// the gateway's identity headers, e.g. an EventSource that can only pass a query string.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	if secret == "" {
		return nil
	}
	return &TokenVerifier{secret: []byte(secret)}
}

type PlayerClaims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs a token for userID. Used by tests and local tooling.
func (v *TokenVerifier) Issue(userID, name string, ttl time.Duration) (string, error) {
	claims := PlayerClaims{
		UserID: userID,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func (v *TokenVerifier) Verify(raw string) (*PlayerClaims, error) {
	claims := &PlayerClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no user id")
	}
	return claims, nil
}

// tokenFrom picks the player token from the X-Access-Token header or the
// token query parameter.
func tokenFrom(c *fiber.Ctx) string {
	if t := strings.TrimSpace(c.Get(accessTokenHeader)); t != "" {
		return strings.TrimPrefix(t, "Bearer ")
	}
	return strings.TrimSpace(c.Query("token"))
}

func (v *TokenVerifier) identity(c *fiber.Ctx) (string, string, error) {
	if v == nil {
		return "", "", nil
	}
	raw := tokenFrom(c)
	if raw == "" {
		return "", "", nil
	}
	claims, err := v.Verify(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid access token: %w", err)
	}
	return claims.UserID, claims.Name, nil
}
