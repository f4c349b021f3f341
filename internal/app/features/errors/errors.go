// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hackhub-events/hackhub/internal/app/system/auth"
)

// envelope is the JSON error body every failed request gets:
//
//	{"error": "<human message>", "code": "<machine code>"}
//
// The message is safe to show to a participant; the code is stable for
// frontend branching.
type envelope struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the standard error envelope.
func WriteError(w http.ResponseWriter, status int, code, msg string) {
	WriteJSON(w, status, envelope{Error: msg, Code: code})
}

// ErrorLogger pairs structured logging with the JSON error envelope, so
// handlers report a failure to both audiences in one call: operators get
// the real error in the log, the caller gets a safe message and code.
type ErrorLogger struct {
	log *zap.Logger
}

func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: logger}
}

// LogBadRequest logs a client error and responds 400.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, logMsg string, err error, userMsg string) {
	e.logAt(zap.WarnLevel, r, logMsg, err)
	WriteError(w, http.StatusBadRequest, "bad_request", userMsg)
}

// LogUnauthorized logs a missing/invalid session and responds 401.
func (e *ErrorLogger) LogUnauthorized(w http.ResponseWriter, r *http.Request, logMsg string, userMsg string) {
	e.logAt(zap.WarnLevel, r, logMsg, nil)
	WriteError(w, http.StatusUnauthorized, "unauthorized", userMsg)
}

// LogForbidden logs a denied action and responds 403.
func (e *ErrorLogger) LogForbidden(w http.ResponseWriter, r *http.Request, logMsg string, userMsg string) {
	e.logAt(zap.WarnLevel, r, logMsg, nil)
	WriteError(w, http.StatusForbidden, "forbidden", userMsg)
}

// LogNotFound logs a miss and responds 404.
func (e *ErrorLogger) LogNotFound(w http.ResponseWriter, r *http.Request, logMsg string, userMsg string) {
	e.logAt(zap.InfoLevel, r, logMsg, nil)
	WriteError(w, http.StatusNotFound, "not_found", userMsg)
}

// LogConflict logs a domain-rule rejection and responds 409 with the given
// machine code (already_on_team, team_full, ...).
func (e *ErrorLogger) LogConflict(w http.ResponseWriter, r *http.Request, logMsg, code, userMsg string) {
	e.logAt(zap.InfoLevel, r, logMsg, nil)
	WriteError(w, http.StatusConflict, code, userMsg)
}

// LogServerError logs an internal failure and responds 500.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, logMsg string, err error, userMsg string) {
	e.logAt(zap.ErrorLevel, r, logMsg, err)
	WriteError(w, http.StatusInternalServerError, "server_error", userMsg)
}

func (e *ErrorLogger) logAt(lvl zapcore.Level, r *http.Request, msg string, err error) {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	if u, ok := auth.CurrentUser(r); ok {
		fields = append(fields, zap.String("user_id", u.ID))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	switch lvl {
	case zap.ErrorLevel:
		e.log.Error(msg, fields...)
	case zap.WarnLevel:
		e.log.Warn(msg, fields...)
	default:
		e.log.Info(msg, fields...)
	}
}
