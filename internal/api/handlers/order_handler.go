package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"margintrade/internal/api/middleware"
	"margintrade/internal/models"
	"margintrade/internal/service"
	"margintrade/pkg/utils"
)

// OrderServiceInterface - операции исполнения рыночных ордеров
type OrderServiceInterface interface {
	PlaceMarketOrder(ctx context.Context, req service.OrderRequest) (*models.Position, *models.Quote, error)
}

// OrderHandler отвечает за исполнение рыночных ордеров
//
// Endpoints:
// - POST /api/orders - открыть позицию рыночным ордером
//
// Назначение:
// Принимает ордер с клиентской ценой, передает торговому ядру
// и возвращает открытую позицию вместе с котировкой, против которой
// проверялась цена. Формат символа и объёма проверяется здесь,
// торговая валидация (направление, шаг лота, отклонение цены, маржа)
// выполняется сервисом.
type OrderHandler struct {
	orderService OrderServiceInterface
}

// NewOrderHandler создает новый OrderHandler с внедрением зависимости
func NewOrderHandler(orderService OrderServiceInterface) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// PlaceOrderRequest представляет тело запроса открытия позиции
type PlaceOrderRequest struct {
	AccountID      int     `json:"account_id"`
	Symbol         string  `json:"symbol"`
	Side           string  `json:"side"`
	Lots           float64 `json:"lots"`
	Price          float64 `json:"price"`
	TakeProfit     float64 `json:"take_profit,omitempty"`
	MaxSlippageBps float64 `json:"max_slippage_bps,omitempty"`
}

// PlaceOrderResponse - открытая позиция и котировка, против которой
// проверялась клиентская цена
type PlaceOrderResponse struct {
	Position *models.Position `json:"position"`
	Quote    *models.Quote    `json:"quote"`
}

// PlaceOrder открывает позицию рыночным ордером
//
// POST /api/orders
//
// Тело запроса:
//
//	{
//	  "account_id": 1,
//	  "symbol": "BTC/USD",
//	  "side": "buy",
//	  "lots": 0.5,
//	  "price": 60123.45,
//	  "take_profit": 50
//	}
//
// Цена клиента авторитетна: позиция открывается по ней (округленной
// до тика), если отклонение от рынка в допуске.
//
// HTTP коды:
// - 201 Created: позиция открыта
// - 400 Bad Request: некорректное тело, направление, лот или цена
// - 403 Forbidden: счёт принадлежит другому пользователю
// - 404 Not Found: счёт не найден
// - 409 Conflict: недостаточно маржи
// - 422 Unprocessable Entity: цена отклонилась от рынка
// - 503 Service Unavailable: нет свежей котировки
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity")
		return
	}

	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "BAD_JSON", "invalid request body")
		return
	}

	if err := utils.ValidateSymbol(req.Symbol); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_SYMBOL", err.Error())
		return
	}
	if err := utils.ValidateLots(req.Lots); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_LOT", err.Error())
		return
	}

	position, quote, err := h.orderService.PlaceMarketOrder(r.Context(), service.OrderRequest{
		UserID:         userID,
		AccountID:      req.AccountID,
		Symbol:         req.Symbol,
		Side:           req.Side,
		Lots:           req.Lots,
		Price:          req.Price,
		TakeProfit:     req.TakeProfit,
		MaxSlippageBps: req.MaxSlippageBps,
	})
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, SuccessResponse{
		Message: "position opened",
		Data:    PlaceOrderResponse{Position: position, Quote: quote},
	})
}
