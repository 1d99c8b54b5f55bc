package service

import (
	"context"
	"errors"

	"margintrade/internal/config"
	"margintrade/internal/models"
	"margintrade/internal/repository"
	"margintrade/pkg/retry"
	"margintrade/pkg/utils"
)

// ErrSweepInProgress - по счёту уже идёт ликвидационная зачистка
var ErrSweepInProgress = errors.New("liquidation sweep already in progress")

// Outcome - результат проверки счёта на ликвидацию
type Outcome struct {
	Liquidated  bool    `json:"liquidated"`
	Equity      float64 `json:"equity"`
	RealizedPnl float64 `json:"realizedPnl"`
	ClosedCount int     `json:"closedCount"`
}

// LiquidationService - принудительное закрытие счетов с отрицательным equity
//
// Назначение:
// - расчёт текущего equity счёта по живым котировкам
// - срабатывание при equity <= 0 или при пробое stop-out уровня
// - зачистка: best-effort закрытие всех открытых позиций, обнуление маржи,
//   зачисление реализованного результата на баланс
//
// Конкурентность: флаг liquidating в строке счёта работает как CAS-замок,
// одновременно по счёту идёт не больше одной зачистки. Проверка, пришедшая
// во время зачистки, получает ErrSweepInProgress и не ждёт.
type LiquidationService struct {
	accountRepo  AccountRepositoryInterface
	positionRepo PositionRepositoryInterface
	quotes       QuoteProviderInterface
	notifier     NotifierInterface
	cfg          config.TradingConfig
}

// NewLiquidationService создает новый экземпляр LiquidationService
func NewLiquidationService(
	accountRepo AccountRepositoryInterface,
	positionRepo PositionRepositoryInterface,
	quotes QuoteProviderInterface,
	notifier NotifierInterface,
	cfg config.TradingConfig,
) *LiquidationService {
	return &LiquidationService{
		accountRepo:  accountRepo,
		positionRepo: positionRepo,
		quotes:       quotes,
		notifier:     notifier,
		cfg:          cfg,
	}
}

// Evaluate считает equity счёта и отвечает, сработала бы ликвидация.
// Ничего не закрывает и не берёт замок: безопасно для dry-run запросов.
func (s *LiquidationService) Evaluate(ctx context.Context, accountID int) (*Outcome, error) {
	account, err := s.accountRepo.GetByID(accountID)
	if err != nil {
		return nil, err
	}

	positions, err := s.positionRepo.GetOpenByAccount(accountID)
	if err != nil {
		return nil, err
	}

	equity := s.equity(ctx, account, positions)
	return &Outcome{
		Liquidated: s.shouldLiquidate(account, equity),
		Equity:     equity,
	}, nil
}

// MaybeLiquidate проверяет счёт и при срабатывании проводит зачистку
func (s *LiquidationService) MaybeLiquidate(ctx context.Context, accountID int) (*Outcome, error) {
	if err := s.accountRepo.TryLockLiquidation(accountID); err != nil {
		if errors.Is(err, repository.ErrLiquidationLockBusy) {
			return nil, ErrSweepInProgress
		}
		return nil, err
	}
	defer func() {
		if err := s.accountRepo.UnlockLiquidation(accountID); err != nil {
			utils.Error("failed to release liquidation lock",
				utils.AccountID(accountID), utils.Err(err))
		}
	}()

	account, err := s.accountRepo.GetByID(accountID)
	if err != nil {
		return nil, err
	}

	positions, err := s.positionRepo.GetOpenByAccount(accountID)
	if err != nil {
		return nil, err
	}

	equity := s.equity(ctx, account, positions)
	if !s.shouldLiquidate(account, equity) {
		return &Outcome{Equity: equity}, nil
	}

	utils.Warn("liquidation triggered",
		utils.AccountID(accountID),
		utils.Equity(equity),
		utils.Int("open_positions", len(positions)),
	)

	realized, closed := s.closeAll(ctx, positions)

	if err := s.accountRepo.ResetAfterLiquidation(accountID, realized); err != nil {
		return nil, err
	}

	s.notifier.NotifyLiquidation(accountID, equity, realized, closed)
	if updated, err := s.accountRepo.GetByID(accountID); err == nil {
		s.notifier.NotifyAccountUpdated(updated)
	}

	return &Outcome{
		Liquidated:  true,
		Equity:      equity,
		RealizedPnl: realized,
		ClosedCount: closed,
	}, nil
}

// SweepActive прогоняет проверку ликвидации по всем активным счетам.
// Занятые замки пропускаются: конкурирующая зачистка уже делает эту работу.
func (s *LiquidationService) SweepActive(ctx context.Context) {
	accounts, err := s.accountRepo.GetActive()
	if err != nil {
		utils.Error("liquidation sweep: failed to list accounts", utils.Err(err))
		return
	}

	for _, account := range accounts {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.MaybeLiquidate(ctx, account.ID); err != nil && !errors.Is(err, ErrSweepInProgress) {
			utils.Error("liquidation sweep failed",
				utils.AccountID(account.ID), utils.Err(err))
		}
	}
}

// equity возвращает balance + нереализованный PnL. Позиция без котировки
// вносит ноль: ликвидация не должна срабатывать из-за пропавшего фида.
func (s *LiquidationService) equity(ctx context.Context, account *models.Account, positions []*models.Position) float64 {
	total := account.Balance
	quotes := make(map[string]*models.Quote)

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

	return utils.Round2(total)
}

func (s *LiquidationService) shouldLiquidate(account *models.Account, equity float64) bool {
	if equity <= 0 {
		return true
	}
	if s.cfg.StopOutFraction > 0 && account.MarginUsed > 0 {
		return equity <= account.MarginUsed*s.cfg.StopOutFraction
	}
	return false
}

// closeAll закрывает позиции по одной, best-effort. Ошибка закрытия одной
// позиции не останавливает зачистку остальных. Позиция без котировки
// закрывается по цене входа: реализуется только комиссия закрытия.
func (s *LiquidationService) closeAll(ctx context.Context, positions []*models.Position) (realized float64, closed int) {
	for _, position := range positions {
		closePrice := position.EntryPrice
		if quote, err := s.quotes.GetTopOfBook(ctx, position.Symbol); err == nil {
			closePrice = utils.RoundToTick(quote.CloseSideFor(position.Side), position.Digits)
		}

		gross := utils.GrossPnL(position.EntryPrice, closePrice, position.ContractSize, position.Lots, position.IsBuy())
		netPnl := utils.Round2(gross - position.CommissionClose)

		cfg := retry.AggressiveConfig()
		cfg.RetryIf = retry.RetryIfNotPermanent
		err := retry.Do(ctx, func() error {
			closeErr := s.positionRepo.Close(position.ID, closePrice, netPnl, models.CloseReasonLiquidation)
			if errors.Is(closeErr, repository.ErrPositionAlreadyClosed) {
				return retry.Permanent(closeErr)
			}
			return closeErr
		}, cfg)
		if err != nil {
			if errors.Is(err, repository.ErrPositionAlreadyClosed) {
				// Позицию успел закрыть конкурирующий путь, её PnL уже учтён
				continue
			}
			utils.Error("liquidation close failed",
				utils.PositionID(position.ID), utils.Symbol(position.Symbol), utils.Err(err))
			continue
		}

		realized += netPnl
		closed++

		position.Status = models.PositionStatusClosed
		position.Reason = models.CloseReasonLiquidation
		position.ClosePrice = &closePrice
		pnl := netPnl
		position.Pnl = &pnl

		s.notifier.NotifyPositionClosed(position)
	}

	return utils.Round2(realized), closed
}
