package auth

import (
	"context"
	"log/slog"
	"net/http"

	appMiddleware "github.com/FACorreiaa/go-book-catalog/app/middleware"
	"github.com/FACorreiaa/go-book-catalog/internal/api"
	"github.com/FACorreiaa/go-book-catalog/internal/types"
)

// TokenVerifier resolves a bearer token to an existing user.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*types.UserAuth, error)
}

// Authenticate rejects the request with 401 unless it carries a bearer token
// that verifies for an existing user. Every request is verified again, nothing
// is cached. On success the user id is available via GetUserIDFromContext.
func Authenticate(logger *slog.Logger, verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			token, err := appMiddleware.BearerToken(r)
			if err != nil {
				l.DebugContext(ctx, "Rejecting request without usable credential", slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}

			user, err := verifier.VerifyToken(ctx, token)
			if err != nil {
				l.InfoContext(ctx, "Token verification failed", slog.Any("error", err))
				api.HandleServiceError(w, r, logger, err)
				return
			}

			ctx = appMiddleware.WithUserID(ctx, user.ID.String())
			l.DebugContext(ctx, "Authentication successful", slog.String("userID", user.ID.String()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext returns the id stored by Authenticate.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	return appMiddleware.GetUserIDFromContext(ctx)
}
