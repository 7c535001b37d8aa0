package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/nguyenvotandat/runway-backend/pkg/logger"
)

// panicResponse mirrors the error envelope the handlers write, so a panicking
// request still returns the same response shape as every other failure.
type panicResponse struct {
	Error panicError `json:"error"`
}

type panicError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Recovery recovers from panics, logs the stack, and answers with an opaque
// 500 in the standard envelope instead of crashing the server.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				ctx := r.Context()
				logger.WithContext(ctx, l).ErrorContext(ctx, "panic recovered",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(panicResponse{Error: panicError{
					Code:    "INTERNAL_ERROR",
					Message: "an internal error occurred",
				}})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
