package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/golang-jwt/jwt/v5"

	"github.com/xivishop/xivi/internal/observability"
)

type operatorClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// RequireOperator guards privileged endpoints with a bearer token signed by
// the store's JWT secret and issued to the owner email. Rejections stay
// deliberately vague so the middleware leaks nothing about which check
// failed.
func (h *Handlers) RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meter := observability.MeterFromContext(r.Context())
		logger := h.loggerFromContext(r.Context())

		reject := func(status int, reason string) {
			meter.Count("auth.operator.rejected", 1, sentry.WithAttributes(
				attribute.String("reason", reason),
			))
			logger.Warn("operator auth rejected", "reason", reason, "path", r.URL.Path)
			writeErrorJSON(w, status, "Unauthorized", nil)
		}

		authHeader := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			reject(http.StatusUnauthorized, "missing_token")
			return
		}

		claims := &operatorClaims{}
		parsed, err := jwt.ParseWithClaims(strings.TrimSpace(token), claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(h.config.AuthJWTSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !parsed.Valid {
			reject(http.StatusUnauthorized, "invalid_token")
			return
		}

		if !strings.EqualFold(claims.Email, h.config.OwnerEmail) {
			reject(http.StatusForbidden, "not_owner")
			return
		}

		meter.Count("auth.operator.accepted", 1)
		next.ServeHTTP(w, r)
	})
}
