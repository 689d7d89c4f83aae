// Package middleware provides request logging, authentication, rate limiting,
// metrics and tracing middleware for the HTTP server.
package middleware

import (
	"context"
	"strings"

	"nutriscan/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Claims every session token must carry besides a subject and an expiry.
const (
	TokenIssuer   = "nutriscan-api"
	TokenAudience = "nutriscan-client"
)

var cfg *config.Config

// authError messages are returned to the client verbatim.
type authError string

func (e authError) Error() string { return string(e) }

const (
	errMissingHeader authError = "Authorization header required"
	errHeaderFormat  authError = "Invalid authorization header format"
	errInvalidToken  authError = "Invalid or expired token"
	errMissingSub    authError = "Invalid token structure - missing subject"
)

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// AuthRequired is a middleware that enforces authentication for protected routes.
// The token subject is the caller's public user id and is stored in c.Locals("userID").
func AuthRequired(c *fiber.Ctx) error {
	sub, err := subjectFromHeader(c.Get("Authorization"))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	setUser(c, sub)
	return c.Next()
}

// OptionalAuth records the caller when a valid bearer token is sent and lets
// anonymous requests through untouched.
func OptionalAuth(c *fiber.Ctx) error {
	if sub, err := subjectFromHeader(c.Get("Authorization")); err == nil {
		setUser(c, sub)
	}
	return c.Next()
}

func setUser(c *fiber.Ctx, sub string) {
	c.Locals("userID", sub)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, sub))
}

func subjectFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errMissingHeader
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errHeaderFormat
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", errMissingSub
	}
	return sub, nil
}
