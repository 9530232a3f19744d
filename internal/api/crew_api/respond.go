package crew_api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pkg/errors"

	"github.com/othaplug/crewtrack/internal/errs"
)

type errorResponse struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Requirement string `json:"requirement,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err.Error())
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Code: "bad_request", Message: "malformed json: " + err.Error()})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	var blocked *errs.BlockedError
	if errors.As(err, &blocked) {
		respondJSON(w, http.StatusConflict, errorResponse{
			Code:        "blocked",
			Message:     blocked.Error(),
			Requirement: blocked.Requirement,
		})
		return
	}

	switch {
	case errors.Is(err, errs.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Code: "not_found", Message: err.Error()})
	case errors.Is(err, errs.ErrConflict):
		respondJSON(w, http.StatusConflict, errorResponse{Code: "conflict", Message: err.Error()})
	case errors.Is(err, errs.ErrInvalidState):
		respondJSON(w, http.StatusConflict, errorResponse{Code: "invalid_state", Message: err.Error()})
	case errors.Is(err, errs.ErrAlreadyDecided):
		respondJSON(w, http.StatusConflict, errorResponse{Code: "already_decided", Message: err.Error()})
	case errors.Is(err, errs.ErrInvalidArgument):
		respondJSON(w, http.StatusBadRequest, errorResponse{Code: "bad_request", Message: err.Error()})
	default:
		slog.Error("internal error", "error", err.Error())
		respondJSON(w, http.StatusInternalServerError, errorResponse{Code: "internal", Message: "internal error"})
	}
}
