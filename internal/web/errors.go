package web

// errors.go provides unified error response handling for the web layer.
//
// Every failure is logged with its technical detail and request ID, then
// mapped to a UserMessage carrying a support code:
//
//	STATE001 - Invalid table title (path does not match [A-Za-z0-9_.-]{1,128})
//	STATE002 - Invalid table state payload (malformed JSON, wrong field types)
//	STATE003 - Table state storage unavailable (read, write or delete failed)
//	RATE001  - Too many requests from this address
//	AUTH001  - Missing or invalid API key (written by middleware.APIKeyAuth)
//	ERR000   - Anything else
//
// API requests get JSON, HTMX requests an alert fragment, and other requests
// a plain text body.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/portal/internal/kv"
	"github.com/JonMunkholm/portal/internal/logging"
	"github.com/JonMunkholm/portal/internal/viewstate"
	"github.com/JonMunkholm/portal/internal/web/middleware"
	"github.com/JonMunkholm/portal/internal/web/templates"
)

var (
	errBadRequest  = errors.New("bad request")
	errStorage     = errors.New("storage unavailable")
	errRateLimited = errors.New("rate limit exceeded")
)

// UserMessage is the client-facing description of an error.
type UserMessage struct {
	Message string
	Action  string
	Code    string
}

var (
	msgInvalidTitle = UserMessage{
		Message: "اسم الجدول غير صالح",
		Action:  "استخدم الحروف اللاتينية والأرقام والرموز . _ - فقط",
		Code:    "STATE001",
	}
	msgInvalidPayload = UserMessage{
		Message: "بيانات حالة الجدول غير صالحة",
		Action:  "تحقق من صيغة JSON وأنواع الحقول",
		Code:    "STATE002",
	}
	msgStorage = UserMessage{
		Message: "تعذر الوصول إلى مخزن حالة الجداول",
		Action:  "يرجى المحاولة مرة أخرى بعد قليل",
		Code:    "STATE003",
	}
	msgRateLimited = UserMessage{
		Message: "عدد كبير جداً من الطلبات",
		Action:  "انتظر دقيقة ثم أعد المحاولة",
		Code:    "RATE001",
	}
	msgDefault = UserMessage{
		Message: "حدث خطأ غير متوقع",
		Action:  "يرجى المحاولة مرة أخرى",
		Code:    "ERR000",
	}
)

// storagePatterns catch driver errors that arrive without a sentinel.
var storagePatterns = []string{"connection refused", "connection reset", "timeout", "database is locked"}

// MapError translates err into a UserMessage. It returns the zero value for nil.
func MapError(err error) UserMessage {
	switch {
	case err == nil:
		return UserMessage{}
	case errors.Is(err, viewstate.ErrInvalidTitle):
		return msgInvalidTitle
	case errors.Is(err, viewstate.ErrMalformedRecord),
		errors.Is(err, viewstate.ErrInvalidValue),
		errors.Is(err, errBadRequest):
		return msgInvalidPayload
	case errors.Is(err, errStorage), errors.Is(err, kv.ErrClosed):
		return msgStorage
	case errors.Is(err, errRateLimited):
		return msgRateLimited
	}

	var fieldErr *viewstate.FieldError
	if errors.As(err, &fieldErr) {
		return msgInvalidPayload
	}

	lower := strings.ToLower(err.Error())
	for _, p := range storagePatterns {
		if strings.Contains(lower, p) {
			return msgStorage
		}
	}
	return msgDefault
}

// ErrorResponse is the JSON body of API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and answers in the format the client expects.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := MapError(err)

	level := slog.LevelWarn
	if statusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"ip", middleware.ClientIP(r),
	)

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, userMsg, statusCode)
	case wantsJSON(r):
		respondErrorJSON(w, userMsg, statusCode)
	default:
		http.Error(w, userMsg.Message+" ("+userMsg.Code+")", statusCode)
	}
}

func respondErrorJSON(w http.ResponseWriter, msg UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the client prefers JSON. API routes always do.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

// writeJSON encodes v with status. Encoding errors are logged since the
// header is already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
