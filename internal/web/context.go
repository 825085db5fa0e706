package web

import (
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/portal/internal/logging"
	"github.com/JonMunkholm/portal/internal/web/middleware"
)

// requestLogger returns the request-scoped logger carrying the request ID,
// client IP and user agent.
func requestLogger(r *http.Request) *slog.Logger {
	return logging.WithFields(r.Context(),
		"ip", middleware.ClientIP(r),
		"user_agent", r.UserAgent(),
	)
}
