package middleware

import (
	"chatmate-api/internal/logger"
	"chatmate-api/internal/services"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// AuthMiddleware verifies the bearer token and stores the caller's identity
// in the request context.
func AuthMiddleware(authService services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractTokenFromHeader(r)
			if tokenString == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			identity, err := authService.VerifyToken(r.Context(), tokenString)
			if err != nil {
				logger.LogEvent(logrus.WarnLevel, "Token verification failed", logrus.Fields{
					"path":  r.URL.Path,
					"error": err.Error(),
				})
				http.Error(w, "Invalid authentication token", http.StatusUnauthorized)
				return
			}

			ctx := services.WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractTokenFromHeader(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
