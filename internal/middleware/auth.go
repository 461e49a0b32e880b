package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/collegeerp/backend/internal/auth"
	"github.com/collegeerp/backend/internal/database"
	"github.com/collegeerp/backend/internal/services"
)

// AuthMiddleware accepts a token from the Authorization header or the
// session cookie, rejects revoked tokens and stores the claims on the context.
func AuthMiddleware(tokens *auth.TokenManager, store *database.RedisStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				services.SendErrorResponse(w, "Not authorized to access this route", http.StatusUnauthorized, nil)
				return
			}

			claims, err := tokens.Parse(token)
			if err != nil {
				log.Printf("[AUTH] Rejected token from %s: %v", r.RemoteAddr, err)
				services.SendErrorResponse(w, "Not authorized, token failed", http.StatusUnauthorized, nil)
				return
			}

			if store.IsBlacklisted(r.Context(), claims.ID) {
				services.SendErrorResponse(w, "Token has been revoked", http.StatusUnauthorized, nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := r.Cookie(services.TokenCookieName); err == nil && cookie.Value != "none" {
		return cookie.Value
	}
	return ""
}

// RequireRole allows only admins holding one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				services.SendErrorResponse(w, "Not authorized to access this route", http.StatusUnauthorized, nil)
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			services.SendErrorResponse(w, "Role "+claims.Role+" is not authorized to access this route", http.StatusForbidden, nil)
		})
	}
}
