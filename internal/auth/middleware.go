package auth

import (
	"net/http"
	"strings"

	"github.com/prodfloor/scheduler/internal/api"
	"github.com/prodfloor/scheduler/internal/apperrors"
	"github.com/prodfloor/scheduler/internal/config"
)

var publicPrefixes = []string{
	"/v1/health",
}

// Middleware validates a bearer JWT for every route outside publicPrefixes.
// There is no per-route scope check: a valid token is sufficient.
func Middleware(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicRoute(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.WriteError(w, r, apperrors.NewUnauthorizedError("missing Authorization header"))
				return
			}
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				api.WriteError(w, r, apperrors.NewUnauthorizedError("invalid Authorization header format"))
				return
			}

			payload, err := VerifyToken(cfg, token)
			if err != nil {
				if err == ErrTokenExpired {
					api.WriteError(w, r, apperrors.NewUnauthorizedError("token has expired", apperrors.ErrorCodeAuthTokenExpired))
					return
				}
				api.WriteError(w, r, apperrors.NewUnauthorizedError("invalid token", apperrors.ErrorCodeAuthTokenInvalid))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), User{Sub: payload.Sub})))
		})
	}
}

func isPublicRoute(path string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
