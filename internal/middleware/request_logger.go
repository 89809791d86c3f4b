package middleware

import (
	"chatmate-api/internal/logger"
	"chatmate-api/internal/models"
	"chatmate-api/internal/services"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

// RequestLogger stores one RequestLog row per authenticated call. It must
// run after AuthMiddleware.
type RequestLogger struct {
	logService services.RequestLogService
}

func NewRequestLogger(logService services.RequestLogService) *RequestLogger {
	return &RequestLogger{
		logService: logService,
	}
}

func (rl *RequestLogger) LogRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := services.IdentityFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := &statusRecorder{
			ResponseWriter: w,
			status:         http.StatusOK,
		}
		next.ServeHTTP(rw, r)

		entry := &models.RequestLog{
			RequestID:  RequestIDFromContext(r.Context()),
			UserID:     identity.UserID,
			Endpoint:   r.URL.Path,
			Method:     r.Method,
			Status:     models.StatusFromCode(rw.status),
			StatusCode: rw.status,
			Summary:    createRequestSummary(r),
			DurationMs: time.Since(start).Milliseconds(),
		}

		if err := rl.logService.LogRequest(context.WithoutCancel(r.Context()), entry); err != nil {
			logger.Logger.WithFields(logrus.Fields{
				"error": err,
				"user":  identity.UserID,
				"path":  r.URL.Path,
			}).Error("Failed to log request")
		}
	})
}

func createRequestSummary(r *http.Request) string {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	summary := "API request"

	if len(parts) == 0 {
		return summary
	}
	switch parts[0] {
	case "chat":
		switch {
		case len(parts) == 2 && parts[1] == "message":
			summary = "Chat message"
		case len(parts) == 2 && parts[1] == "history":
			summary = "Chat history"
		case len(parts) == 3 && parts[2] == "messages":
			summary = "Messages of chat: " + parts[1]
		}
	case "usage":
		if len(parts) > 1 {
			summary = "Usage " + parts[1]
		}
	case "auth":
		summary = "Token verification"
	}

	return summary
}
