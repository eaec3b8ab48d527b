package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/checkout-api/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// Middleware validates bearer tokens issued by the external identity provider
// and attaches the subject to the request context.
type Middleware struct {
	Secret    []byte
	Validator TokenValidator
	Now       func() time.Time
}

// RequireAuth enforces that a valid token is present before executing the next handler.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearer(r)
		if token == "" {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		subject, err := m.ParseAccessToken(token)
		if err != nil {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithUserID(r.Context(), subject)))
	})
}

// ParseAccessToken validates an access token and returns the subject (user ID).
func (m Middleware) ParseAccessToken(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", errNoToken
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return "", err
	}
	if m.Validator.Algorithm != "" && algorithm != m.Validator.Algorithm {
		return "", errors.New("auth: unexpected token algorithm")
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, m.Secret))
	if err != nil {
		return "", err
	}
	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}
	if err := m.Validator.Validate(parsed, algorithm, now); err != nil {
		return "", err
	}
	subject := strings.TrimSpace(parsed.Subject())
	if subject == "" {
		return "", errors.New("auth: token missing subject")
	}
	return subject, nil
}

func extractBearer(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
