package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/passvault/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// writeError maps service sentinels onto status codes. The messages stay
// generic on purpose: auth failures never say which part was wrong, and
// internal failures never leak their cause.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
	case errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrTokenMalformed),
		errors.Is(err, common.ErrAccountNotFound),
		errors.Is(err, common.ErrAccountDisabled):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
	case errors.Is(err, common.ErrIncorrectCurrentSecret):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "verification failed"})
	case errors.Is(err, common.ErrInvalidOrExpiredToken):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid or expired token"})
	case errors.Is(err, common.ErrDuplicateEmail):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "email already registered"})
	case errors.Is(err, common.ErrDuplicateTitle):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "title already in use"})
	case errors.Is(err, common.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, common.ErrInvalidOptions):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid options"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}
