package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"docstore/internal/config"
)

const (
	// UserIDHeader carries the caller id when a fronting gateway has already
	// authenticated the request.
	UserIDHeader = "X-User-ID"
	// UserIDLocalKey is the key used to store the caller id in Fiber's context locals.
	UserIDLocalKey = "user_id"
)

var errInvalidToken = errors.New("invalid token")

// Identity resolves the caller id and stores it under UserIDLocalKey.
//
// With a JWT secret configured it requires "Authorization: Bearer <token>"
// signed with HS256 and takes the subject claim. Without one it trusts
// X-User-ID. Either way the id must be a UUID; otherwise 401.
func Identity(cfg config.AuthConfig) fiber.Handler {
	secret := []byte(cfg.JWTSecret)
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(c *fiber.Ctx) error {
		var id string
		if len(secret) > 0 {
			sub, err := subjectFromBearer(parser, secret, c.Get(fiber.HeaderAuthorization))
			if err != nil {
				return fiber.NewError(fiber.StatusUnauthorized, "invalid or missing bearer token")
			}
			id = sub
		} else {
			id = strings.TrimSpace(c.Get(UserIDHeader))
		}

		uid, err := uuid.Parse(id)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "caller identity is required")
		}
		c.Locals(UserIDLocalKey, uid.String())
		return c.Next()
	}
}

func subjectFromBearer(parser *jwt.Parser, secret []byte, header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errInvalidToken
	}
	claims := &jwt.RegisteredClaims{}
	token, err := parser.ParseWithClaims(strings.TrimSpace(parts[1]), claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

// UserID returns the caller id stored by Identity, or "".
func UserID(c *fiber.Ctx) string {
	s, _ := c.Locals(UserIDLocalKey).(string)
	return s
}
