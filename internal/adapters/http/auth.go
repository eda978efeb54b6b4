package http

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/manzaspots/manza/internal/core/domain"
)

const callerKey = "caller"

// Claims is the bearer token payload. Subject carries the user ID.
type Claims struct {
	Staff bool `json:"staff,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens.
type Authenticator struct {
	secret []byte
	issuer string
}

// NewAuthenticator creates an Authenticator. An empty issuer accepts any.
func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

// Sign issues a token for caller valid for ttl.
func (a *Authenticator) Sign(caller domain.Caller, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Staff: caller.Privileged,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.UserID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse verifies a raw token and returns the caller it names.
func (a *Authenticator) Parse(raw string) (domain.Caller, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	var claims Claims
	if _, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...); err != nil {
		return domain.Anonymous, err
	}
	if claims.Subject == "" {
		return domain.Anonymous, errors.New("token has no subject")
	}
	return domain.Caller{UserID: claims.Subject, Privileged: claims.Staff}, nil
}

// AuthMiddleware resolves the caller. Requests without an Authorization
// header proceed anonymously; a malformed or invalid token is rejected.
func AuthMiddleware(a *Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" || a == nil {
			c.Locals(callerKey, domain.Anonymous)
			return c.Next()
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return errUnauthorized(c, "authorization header must use the Bearer scheme")
		}
		caller, err := a.Parse(strings.TrimSpace(raw))
		if err != nil {
			return errUnauthorized(c, "invalid token")
		}
		c.Locals(callerKey, caller)
		return c.Next()
	}
}

// RequireCaller rejects anonymous requests with 401.
func RequireCaller() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !callerFrom(c).Authenticated() {
			return fromError(c, domain.ErrUnauthenticated)
		}
		return c.Next()
	}
}

// callerFrom returns the caller resolved by AuthMiddleware.
func callerFrom(c *fiber.Ctx) domain.Caller {
	if caller, ok := c.Locals(callerKey).(domain.Caller); ok {
		return caller
	}
	return domain.Anonymous
}
