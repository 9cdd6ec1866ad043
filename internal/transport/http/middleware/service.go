package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-mentoring-notifier/internal/domain"
	jwtinfra "github.com/go-mentoring-notifier/internal/infrastructure/jwt"
)

// OIDCVerifier checks a Google-signed identity token and returns the caller.
type OIDCVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// ServiceAuth admits backend callers: either a JWT with the service role, or,
// when oidc is non-nil, an OIDC token from an allowed scheduler account.
func ServiceAuth(provider *jwtinfra.Provider, oidc OIDCVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearer(r)
			if !ok {
				reject(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			if provider != nil {
				if claims, err := provider.Verify(tokenStr); err == nil {
					if claims.Role != domain.RoleService {
						reject(w, http.StatusForbidden, "forbidden")
						return
					}
					next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
					return
				}
			}
			if oidc != nil {
				if caller, err := oidc.Verify(r.Context(), tokenStr); err == nil {
					slog.Debug("scheduler call", "caller", caller)
					next.ServeHTTP(w, r)
					return
				}
			}
			reject(w, http.StatusUnauthorized, "invalid or expired token")
		})
	}
}
