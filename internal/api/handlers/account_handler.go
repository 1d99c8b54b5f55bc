package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"margintrade/internal/api/middleware"
	"margintrade/internal/service"
)

// AccountServiceInterface - чтение состояния счёта
type AccountServiceInterface interface {
	GetSnapshot(ctx context.Context, userID, accountID int) (*service.AccountSnapshot, error)
}

// AccountHandler отвечает за чтение состояния счетов
//
// Endpoints:
// - GET /api/accounts/{id} - снимок счёта: баланс, equity, свободная маржа
type AccountHandler struct {
	accountService AccountServiceInterface
}

// NewAccountHandler создает новый AccountHandler с внедрением зависимости
func NewAccountHandler(accountService AccountServiceInterface) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// GetAccount возвращает снимок счёта
//
// GET /api/accounts/{id}
//
// Equity пересчитывается по текущим котировкам: balance плюс
// нереализованный PnL открытых позиций. Символы без котировки
// вносят нулевой вклад.
//
// HTTP коды:
// - 200 OK: снимок счёта
// - 400 Bad Request: некорректный ID
// - 403 Forbidden: счёт принадлежит другому пользователю
// - 404 Not Found: счёт не найден
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity")
		return
	}

	accountID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || accountID <= 0 {
		respondWithError(w, http.StatusBadRequest, "BAD_ACCOUNT_ID", "invalid account id")
		return
	}

	snapshot, err := h.accountService.GetSnapshot(r.Context(), userID, accountID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, snapshot)
}
