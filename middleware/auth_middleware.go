package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"stickyboard/auth"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type contextKey string

const (
	claimsKey    contextKey = "claims"
	requestIDKey contextKey = "requestID"
)

// RevocationChecker tells whether a token id was invalidated by a logout.
type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

// ClaimsFrom returns the claims the JWT middleware stored in the context.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok && c != nil
}

// UserIDFrom returns the authenticated user's id.
func UserIDFrom(ctx context.Context) (int64, bool) {
	c, ok := ClaimsFrom(ctx)
	if !ok {
		return 0, false
	}
	return c.UserID, true
}

// WithClaims stores claims in ctx. Handlers under test use it to skip the middleware.
func WithClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// JWT checks the Bearer token in the Authorization header. A valid, non-revoked
// token puts its claims in the request context.
func JWT(tokens *auth.TokenService, revoked RevocationChecker, logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.With(zap.String("request_id", RequestIDFrom(r.Context())))

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Debug("missing Authorization header", zap.String("path", r.URL.Path))
				unauthorized(w, "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				log.Debug("malformed Authorization header", zap.String("path", r.URL.Path))
				unauthorized(w, "Invalid Authorization header format (expected Bearer {token})")
				return
			}

			claims, err := tokens.ValidateToken(parts[1])
			if err != nil {
				log.Info("rejected token", zap.String("path", r.URL.Path), zap.Error(err))
				unauthorized(w, "Invalid token")
				return
			}

			isRevoked, err := revoked.IsTokenRevoked(r.Context(), claims.ID)
			if err != nil {
				log.Error("revocation lookup failed", zap.Error(err))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Internal server error"})
				return
			}
			if isRevoked {
				unauthorized(w, "Token has been revoked")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
