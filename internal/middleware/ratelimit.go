package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// SetRateLimitHeaders reports the daily message quota. reset is when the
// counter next returns to zero.
func SetRateLimitHeaders(w http.ResponseWriter, limit, remaining int64, reset time.Time) {
	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(max(0, remaining), 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
}
