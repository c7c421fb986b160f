package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tournament-ledger/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// UserIDHeader carries the caller's id when no bearer token is sent
	UserIDHeader = "X-User-ID"

	userIDLocal = "userID"
)

// ErrInvalidToken is returned for bearer tokens that fail validation
var ErrInvalidToken = errors.New("invalid token")

// IdentityConfig configures how callers are identified
type IdentityConfig struct {
	// JWTSecret enables HS256 bearer tokens. Empty disables them.
	JWTSecret string

	// DefaultUserID is used when the request carries no identity
	DefaultUserID string
}

// Identity resolves the caller's user id from a bearer token's subject, the
// X-User-ID header, or the configured default, in that order.
func Identity(cfg IdentityConfig) fiber.Handler {
	secret := []byte(cfg.JWTSecret)

	return func(c *fiber.Ctx) error {
		userID := ""

		if token, ok := bearerToken(c.Get(fiber.HeaderAuthorization)); ok && len(secret) > 0 {
			sub, err := ParseToken(token, secret)
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
					Error:   "Unauthorized",
					Message: err.Error(),
				})
			}
			userID = sub
		}

		if userID == "" {
			// Header values are reused after the request; keep our own copy
			userID = utils.CopyString(strings.TrimSpace(c.Get(UserIDHeader)))
		}
		if userID == "" {
			userID = cfg.DefaultUserID
		}

		c.Locals(userIDLocal, userID)
		return c.Next()
	}
}

// UserID returns the caller resolved by Identity, or "" when anonymous
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDLocal).(string)
	return id
}

// IssueToken signs an HS256 token whose subject is userID
func IssueToken(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates an HS256 token and returns its subject
func ParseToken(tokenString string, secret []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: expired", ErrInvalidToken)
		}
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
