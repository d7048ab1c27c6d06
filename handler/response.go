package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"room-designer/internal/usecase"
)

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("handler: encode response failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	slog.Warn("handler: request rejected",
		"correlationId", CorrelationID(r.Context()),
		"status", status,
		"code", code,
		"detail", detail,
	)
	writeJSON(w, status, errorResponse{Error: code, Detail: detail})
}

// writeUseCaseError maps coded errors to HTTP statuses. Only the code and
// reason reach the client; wrapped causes are logged.
func writeUseCaseError(w http.ResponseWriter, r *http.Request, err error) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		slog.Error("handler: unexpected error", "correlationId", CorrelationID(r.Context()), "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: string(usecase.ErrorInternal)})
		return
	}

	status := statusFor(ucErr.Code)
	if status >= http.StatusInternalServerError {
		slog.Error("handler: request failed",
			"correlationId", CorrelationID(r.Context()),
			"code", ucErr.Code,
			"reason", ucErr.Reason,
			"err", ucErr.Err,
		)
		writeJSON(w, status, errorResponse{Error: string(ucErr.Code), Detail: ucErr.Reason})
		return
	}
	writeError(w, r, status, string(ucErr.Code), ucErr.Reason)
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput, usecase.ErrorNoImage:
		return http.StatusBadRequest
	case usecase.ErrorNotFound:
		return http.StatusNotFound
	case usecase.ErrorUpstream, usecase.ErrorStore:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
