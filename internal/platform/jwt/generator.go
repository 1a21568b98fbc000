// Package jwtmw mints and verifies operator tokens for the mutating API routes.
package jwtmw

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ScopeOperator is the only scope the API accepts on protected routes.
const ScopeOperator = "operator"

// ErrEmptySecret is returned when a generator or middleware is built without a signing key.
var ErrEmptySecret = errors.New("jwt secret is empty")

// Generator defines the interface for JWT token generation.
type Generator interface {
	// GenerateToken creates a signed JWT token for the given operator.
	GenerateToken(operator string) (string, error)
}

// generator implements the Generator interface.
type generator struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

// NewGenerator creates a new JWT generator with the provided secret and expiration duration.
func NewGenerator(secret string, expiration time.Duration) *generator {
	return &generator{
		secret:     []byte(secret),
		expiration: expiration,
		now:        time.Now,
	}
}

// GenerateToken creates a signed HS256 token carrying sub, scope, iat and exp.
func (g *generator) GenerateToken(operator string) (string, error) {
	if len(g.secret) == 0 {
		return "", ErrEmptySecret
	}
	if operator == "" {
		return "", errors.New("operator name is required")
	}

	now := g.now()
	claims := jwt.MapClaims{
		"sub":   operator,
		"scope": ScopeOperator,
		"iat":   now.Unix(),
		"exp":   now.Add(g.expiration).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}
