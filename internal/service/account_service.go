package service

import (
	"context"

	"margintrade/internal/models"
	"margintrade/pkg/utils"
)

// AccountSnapshot - счёт с показателями, рассчитанными по текущим котировкам
type AccountSnapshot struct {
	Account       *models.Account `json:"account"`
	Equity        float64         `json:"equity"`
	FreeMargin    float64         `json:"freeMargin"`
	UnrealizedPnl float64         `json:"unrealizedPnl"`
	OpenPositions int             `json:"openPositions"`
}

// AccountService - чтение счетов с расчётом текущего equity
//
// Equity = баланс + нереализованный PnL открытых позиций. Позиция без
// доступной котировки вносит нулевой вклад: недоступность фида не должна
// ни завышать, ни занижать показатели счёта.
type AccountService struct {
	accountRepo  AccountRepositoryInterface
	positionRepo PositionRepositoryInterface
	quotes       QuoteProviderInterface
}

// NewAccountService создает новый экземпляр AccountService
func NewAccountService(
	accountRepo AccountRepositoryInterface,
	positionRepo PositionRepositoryInterface,
	quotes QuoteProviderInterface,
) *AccountService {
	return &AccountService{
		accountRepo:  accountRepo,
		positionRepo: positionRepo,
		quotes:       quotes,
	}
}

// GetSnapshot возвращает счёт с живым equity, с проверкой владельца
func (s *AccountService) GetSnapshot(ctx context.Context, userID, accountID int) (*AccountSnapshot, error) {
	account, err := s.accountRepo.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, ErrForbidden
	}

	positions, err := s.positionRepo.GetOpenByAccount(accountID)
	if err != nil {
		return nil, err
	}

	unrealized := s.unrealizedTotal(ctx, positions)
	equity := utils.Round2(account.Balance + unrealized)

	return &AccountSnapshot{
		Account:       account,
		Equity:        equity,
		FreeMargin:    utils.Round2(equity - account.MarginUsed),
		UnrealizedPnl: utils.Round2(unrealized),
		OpenPositions: len(positions),
	}, nil
}

// unrealizedTotal суммирует плавающий PnL по открытым позициям.
// Котировки по одному символу запрашиваются один раз.
func (s *AccountService) unrealizedTotal(ctx context.Context, positions []*models.Position) float64 {
	quotes := make(map[string]*models.Quote)
	total := 0.0

	for _, position := range positions {
		quote, seen := quotes[position.Symbol]
		if !seen {
			fetched, err := s.quotes.GetTopOfBook(ctx, position.Symbol)
			if err != nil {
				quotes[position.Symbol] = nil
				continue
			}
			quote = fetched
			quotes[position.Symbol] = fetched
		}
		if quote == nil {
			continue
		}

		closePrice := quote.CloseSideFor(position.Side)
		total += utils.GrossPnL(position.EntryPrice, closePrice, position.ContractSize, position.Lots, position.IsBuy())
	}

	return total
}
