package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"margintrade/internal/repository"
	"margintrade/internal/service"
)

// ErrorResponse стандартный формат ответа об ошибке для всех API endpoints
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse стандартный формат успешного ответа
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// respondWithJSON отправляет JSON ответ
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// respondWithError отправляет JSON ошибку
func respondWithError(w http.ResponseWriter, status int, code, message string) {
	respondWithJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// respondWithServiceError транслирует ошибки торгового ядра в HTTP статусы
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrAccountNotFound):
		respondWithError(w, http.StatusNotFound, "ACCOUNT_NOT_FOUND", "account not found")
	case errors.Is(err, repository.ErrPositionNotFound):
		respondWithError(w, http.StatusNotFound, "POSITION_NOT_FOUND", "position not found")
	case errors.Is(err, service.ErrForbidden):
		respondWithError(w, http.StatusForbidden, "FORBIDDEN", "account belongs to another user")
	case errors.Is(err, service.ErrInvalidSide):
		respondWithError(w, http.StatusBadRequest, "INVALID_SIDE", "side must be buy or sell")
	case errors.Is(err, service.ErrInvalidLot):
		respondWithError(w, http.StatusBadRequest, "INVALID_LOT", "lot size violates contract limits")
	case errors.Is(err, service.ErrInvalidPrice):
		respondWithError(w, http.StatusBadRequest, "INVALID_PRICE", "price must be a positive finite number")
	case errors.Is(err, service.ErrPriceUnavailable):
		respondWithError(w, http.StatusServiceUnavailable, "PRICE_UNAVAILABLE", "no fresh quote for symbol")
	case errors.Is(err, service.ErrPriceOutOfRange):
		respondWithError(w, http.StatusUnprocessableEntity, "PRICE_OUT_OF_RANGE", "client price deviates too far from market")
	case errors.Is(err, service.ErrInsufficientMargin):
		respondWithError(w, http.StatusConflict, "INSUFFICIENT_MARGIN", "not enough free margin")
	case errors.Is(err, repository.ErrPositionAlreadyClosed):
		respondWithError(w, http.StatusConflict, "POSITION_ALREADY_CLOSED", "position is already closed")
	case errors.Is(err, service.ErrSweepInProgress):
		respondWithError(w, http.StatusConflict, "LIQUIDATION_IN_PROGRESS", "liquidation sweep already running")
	default:
		respondWithError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}
