// backend/src/handlers/middleware.go
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/username/vertex/backend/src/logger"
	"github.com/username/vertex/backend/src/models"
	"github.com/username/vertex/backend/src/security/validation"
	"github.com/username/vertex/backend/src/services"
	"github.com/username/vertex/backend/src/utils"
)

type contextKey string

const (
	requestIDContextKey contextKey = "requestID"
	principalContextKey contextKey = "principal"
)

// TokenValidator turns a bearer token into the authenticated caller.
type TokenValidator interface {
	ValidateToken(tokenString string) (models.Principal, error)
}

// ContextualLoggerMiddleware attaches a logger carrying a fresh requestID to each request.
func ContextualLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		ctxLogger := logger.L.With(slog.String("requestID", requestID))

		ctx := logger.ToContext(r.Context(), ctxLogger)
		ctx = context.WithValue(ctx, requestIDContextKey, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthMiddleware validates the Authorization header and stores the resulting
// principal in the request context.
func AuthMiddleware(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxLogger := logger.FromContext(r.Context())

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				ctxLogger.Debug("AuthMiddleware: Authorization header missing", "path", r.URL.Path)
				utils.SendJSONError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if tokenString == "" {
				ctxLogger.Debug("AuthMiddleware: Token string empty", "path", r.URL.Path)
				utils.SendJSONError(w, "Malformed token", http.StatusUnauthorized)
				return
			}

			principal, err := tokens.ValidateToken(tokenString)
			if err != nil {
				ctxLogger.Warn("AuthMiddleware: Token validation failed", "path", r.URL.Path, "error", err)
				utils.SendJSONError(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx, _ := logger.With(r.Context(), slog.Int64("userID", principal.ID), slog.Int64("entityID", principal.EntityID))
			ctx = context.WithValue(ctx, principalContextKey, principal)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireHierarchy rejects callers whose permission level is below min.
func RequireHierarchy(min int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
				return
			}
			if principal.Hierarchy < min {
				logger.FromContext(r.Context()).Warn("Insufficient permission level", "hierarchy", principal.Hierarchy, "required", min)
				utils.SendJSONError(w, "Insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(models.Principal)
	return principal, ok
}

// sendServiceError maps service and validation errors onto HTTP statuses.
func sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctxLogger := logger.FromContext(r.Context())
	switch {
	case errors.Is(err, validation.ErrValidationFailed):
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrNotFound):
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrRunInProgress):
		utils.SendJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrGateway):
		ctxLogger.Error("Bank provider failure", "path", r.URL.Path, "error", err)
		utils.SendJSONError(w, "Bank provider unavailable", http.StatusBadGateway)
	default:
		ctxLogger.Error("Unhandled service error", "path", r.URL.Path, "error", err)
		utils.SendJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}
