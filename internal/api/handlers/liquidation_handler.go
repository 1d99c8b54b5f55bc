package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"margintrade/internal/service"
)

// LiquidationServiceInterface - проверка и принудительный запуск ликвидации
type LiquidationServiceInterface interface {
	Evaluate(ctx context.Context, accountID int) (*service.Outcome, error)
	MaybeLiquidate(ctx context.Context, accountID int) (*service.Outcome, error)
}

// LiquidationHandler отвечает за административный запуск ликвидации
//
// Endpoints:
// - POST /api/liquidate/{accountId} - проверить и ликвидировать счёт
// - POST /api/liquidate/{accountId}?dry_run=true - только посчитать equity
//
// Назначение:
// Ручной запуск той же проверки, которую периодически выполняет свип.
// Закрытие происходит только если счёт действительно под ликвидацию.
type LiquidationHandler struct {
	liquidationService LiquidationServiceInterface
}

// NewLiquidationHandler создает новый LiquidationHandler с внедрением зависимости
func NewLiquidationHandler(liquidationService LiquidationServiceInterface) *LiquidationHandler {
	return &LiquidationHandler{liquidationService: liquidationService}
}

// Liquidate проверяет счёт и при необходимости ликвидирует его
//
// POST /api/liquidate/{accountId}
//
// Query параметры:
// - dry_run (bool): true - только рассчитать equity и вердикт,
//   без блокировки и без закрытия позиций
//
// HTTP коды:
// - 200 OK: результат проверки (liquidated, equity, realized_pnl, closed)
// - 400 Bad Request: некорректный ID
// - 404 Not Found: счёт не найден
// - 409 Conflict: ликвидация этого счёта уже идет
func (h *LiquidationHandler) Liquidate(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.Atoi(mux.Vars(r)["accountId"])
	if err != nil || accountID <= 0 {
		respondWithError(w, http.StatusBadRequest, "BAD_ACCOUNT_ID", "invalid account id")
		return
	}

	var outcome *service.Outcome
	if r.URL.Query().Get("dry_run") == "true" {
		outcome, err = h.liquidationService.Evaluate(r.Context(), accountID)
	} else {
		outcome, err = h.liquidationService.MaybeLiquidate(r.Context(), accountID)
	}
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, outcome)
}
