package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"Takvimwebserver/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: message}})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		WriteError(w, http.StatusBadRequest, "validation_error", "invalid request")
	case errors.Is(err, domain.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", "this username cannot sign in")
	case errors.Is(err, domain.ErrTokenInvalid):
		WriteError(w, http.StatusForbidden, "token_invalid", "invalid or expired token")
	case errors.Is(err, domain.ErrTokenExpired):
		WriteError(w, http.StatusForbidden, "token_expired", "token has expired")
	case errors.Is(err, domain.ErrDeliveryFailed):
		WriteError(w, http.StatusInternalServerError, "delivery_failed", "could not deliver login message")
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "not found")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
