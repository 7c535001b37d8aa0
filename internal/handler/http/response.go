package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/nguyenvotandat/runway-backend/pkg/errors"
	"github.com/nguyenvotandat/runway-backend/pkg/logger"
	"github.com/nguyenvotandat/runway-backend/pkg/validator"
)

// response is the envelope every endpoint returns: exactly one of data or
// error is set.
type response struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, response{Data: data})
}

// writeError maps application errors to the envelope. Unexpected errors are
// logged with full detail and surfaced as an opaque 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *validator.ValidationError
	if errors.As(err, &validationErr) {
		writeJSON(w, http.StatusBadRequest, response{Error: &errorBody{
			Code:    "VALIDATION_ERROR",
			Message: "request validation failed",
			Fields:  validationErr.Fields(),
		}})
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.Status, response{Error: &errorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
		}})
		return
	}

	logger.FromContext(r.Context()).ErrorContext(r.Context(), "request failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)

	writeJSON(w, apperrors.HTTPStatus(err), response{Error: &errorBody{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
	}})
}
