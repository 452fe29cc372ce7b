package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidSecretLength = errors.New("http api auth secret must be at least 32 characters")
)

// claims identifies the bearer as permitted to call mutating endpoints.
// The introspection API has no user model of its own, so there is nothing
// beyond the issuer/expiry to check.
type claims struct {
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates bearer tokens for the introspection API's
// optional auth mode.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	duration time.Duration
}

// NewTokenIssuer builds a TokenIssuer. secret must be at least 32 bytes.
func NewTokenIssuer(secret string, duration time.Duration) (*TokenIssuer, error) {
	if len(secret) < 32 {
		return nil, ErrInvalidSecretLength
	}
	if duration <= 0 {
		duration = time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), issuer: "feedstore", duration: duration}, nil
}

// Issue mints a bearer token for subject (operator identity, opaque to the store).
func (t *TokenIssuer) Issue(subject string) (string, time.Time, error) {
	now := time.Now()
	expiry := now.Add(t.duration)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	})
	signed, err := tok.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiry, nil
}

// Validate parses and checks a bearer token, returning its subject.
func (t *TokenIssuer) Validate(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	c, ok := parsed.Claims.(*claims)
	if !ok {
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}

type subjectKey struct{}

// SubjectFromContext returns the authenticated subject, if any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectKey{}).(string)
	return s, ok
}

// RequireBearer is middleware enforcing a valid bearer token signed by issuer.
func RequireBearer(issuer *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				Err(w, http.StatusUnauthorized, "Authorization header required")
				return
			}
			subject, err := issuer.Validate(parts[1])
			if err != nil {
				Err(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), subjectKey{}, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
