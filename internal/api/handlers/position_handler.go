package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"margintrade/internal/api/middleware"
	"margintrade/internal/models"
)

// PositionServiceInterface - операции чтения и закрытия позиций
type PositionServiceInterface interface {
	ClosePosition(ctx context.Context, userID int, positionID string) (*models.Position, error)
	GetPosition(userID int, positionID string) (*models.Position, error)
	GetOpenPositions(userID, accountID int) ([]*models.Position, error)
	GetClosedPositions(userID, accountID, limit int) ([]*models.Position, error)
}

// PositionHandler отвечает за управление позициями
//
// Endpoints:
// - GET /api/positions?account_id=1 - открытые позиции счёта
// - GET /api/positions?account_id=1&status=closed - история закрытых
// - GET /api/positions/{id} - одна позиция
// - POST /api/positions/{id}/close - ручное закрытие по рынку
type PositionHandler struct {
	positionService PositionServiceInterface
}

// NewPositionHandler создает новый PositionHandler с внедрением зависимости
func NewPositionHandler(positionService PositionServiceInterface) *PositionHandler {
	return &PositionHandler{positionService: positionService}
}

// GetPositionsResponse представляет ответ списка позиций
type GetPositionsResponse struct {
	Positions []*models.Position `json:"positions"`
	Total     int                `json:"total"`
}

// GetPositions возвращает позиции счёта
//
// GET /api/positions
//
// Query параметры:
// - account_id (int, обязательный): ID счёта
// - status (string): open (по умолчанию) или closed
// - limit (int): ограничение для закрытых позиций (по умолчанию 100)
//
// HTTP коды:
// - 200 OK: список позиций
// - 400 Bad Request: отсутствует или некорректен account_id
// - 403 Forbidden: счёт принадлежит другому пользователю
// - 404 Not Found: счёт не найден
func (h *PositionHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity")
		return
	}

	accountID, err := strconv.Atoi(r.URL.Query().Get("account_id"))
	if err != nil || accountID <= 0 {
		respondWithError(w, http.StatusBadRequest, "BAD_ACCOUNT_ID", "account_id query parameter required")
		return
	}

	var positions []*models.Position
	if r.URL.Query().Get("status") == models.PositionStatusClosed {
		limit := 100
		if parsed, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && parsed > 0 {
			limit = parsed
		}
		positions, err = h.positionService.GetClosedPositions(userID, accountID, limit)
	} else {
		positions, err = h.positionService.GetOpenPositions(userID, accountID)
	}
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, GetPositionsResponse{
		Positions: positions,
		Total:     len(positions),
	})
}

// GetPosition возвращает одну позицию по ID
//
// GET /api/positions/{id}
//
// HTTP коды:
// - 200 OK: позиция
// - 403 Forbidden: позиция принадлежит другому пользователю
// - 404 Not Found: позиция не найдена
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity")
		return
	}

	position, err := h.positionService.GetPosition(userID, mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, position)
}

// ClosePosition закрывает позицию по текущей рыночной цене
//
// POST /api/positions/{id}/close
//
// Цена закрытия берется стороной выхода: bid для buy, ask для sell.
// Повторное закрытие идемпотентно отклоняется.
//
// HTTP коды:
// - 200 OK: позиция закрыта, возвращает позицию с PnL
// - 403 Forbidden: позиция принадлежит другому пользователю
// - 404 Not Found: позиция не найдена
// - 409 Conflict: позиция уже закрыта
// - 503 Service Unavailable: нет свежей котировки
func (h *PositionHandler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity")
		return
	}

	position, err := h.positionService.ClosePosition(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Message: "position closed",
		Data:    position,
	})
}
