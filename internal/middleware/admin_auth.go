package middleware

import (
	"chatmate-api/internal/logger"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const AdminKeyHeader = "X-Admin-Key"

// AdminMiddleware admits requests whose X-Admin-Key matches the bcrypt
// hash. With no hash configured every admin route is closed.
func AdminMiddleware(adminKeyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKeyHash == "" {
				http.Error(w, "Admin access is disabled", http.StatusForbidden)
				return
			}

			key := r.Header.Get(AdminKeyHeader)
			if key == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(adminKeyHash), []byte(key)); err != nil {
				logger.LogEvent(logrus.WarnLevel, "Rejected admin key", logrus.Fields{
					"path": r.URL.Path,
					"ip":   r.RemoteAddr,
				})
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
