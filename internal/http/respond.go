package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/report"
)

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to encode response", log.FieldError, err)
	}
}

// statusFor maps a domain or request error onto an HTTP status.
func statusFor(err error) int {
	var rerr *requestError
	var verr *core.ValidationError
	switch {
	case errors.As(err, &rerr):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrEmptyInput), errors.Is(err, core.ErrInputTooLong), errors.Is(err, core.ErrInvalidWindow):
		return http.StatusBadRequest
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrExtractionTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrExtractionFormat):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrExtractionUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrAppendConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	view := report.FormatError(err)

	var rerr *requestError
	if errors.As(err, &rerr) {
		view.Message = rerr.Error()
		view.Field = rerr.Field
		view.Reason = rerr.Rule
	}
	if errors.Is(err, core.ErrInvalidWindow) {
		view.Message = err.Error()
	}

	logger := log.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "Request failed", log.FieldError, err, log.FieldStatusCode, status)
	} else {
		logger.InfoContext(ctx, "Request rejected", log.FieldError, err, log.FieldStatusCode, status)
	}
	writeJSON(ctx, w, status, view)
}
