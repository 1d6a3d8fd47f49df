package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"roomly/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

const UserIDKey contextKey = "user_id"

// Claims carried by bearer tokens. UserID falls back to the subject claim.
type Claims struct {
	UserID string `json:"userId,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) User() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// Authenticate requires an HS256 bearer token on every path under prefix.
// An empty secret disables the check.
func Authenticate(secret []byte, prefix string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(secret) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := ParseToken(secret, r.Header.Get("Authorization"))
			if err != nil {
				log.Warn("Authentication failed",
					"request_id", RequestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Unauthorized","code":"UNAUTHORIZED"}`))
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.User())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ParseToken(secret []byte, header string) (*Claims, error) {
	tokenString, found := strings.CutPrefix(header, "Bearer ")
	if !found || tokenString == "" {
		return nil, errors.New("missing bearer token")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.User() == "" {
		return nil, errors.New("token carries no user")
	}
	return claims, nil
}

// UserIDFromContext returns the authenticated user, or "" when auth is disabled.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}
