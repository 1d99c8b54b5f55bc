package service

import (
	"context"
	"errors"
	"strings"

	"margintrade/internal/config"
	"margintrade/internal/exchange"
	"margintrade/internal/models"
	"margintrade/internal/repository"
	"margintrade/pkg/utils"
)

// Ошибки размещения ордера. Порядок проверок фиксирован: клиент всегда
// получает первую применимую ошибку, независимо от состояния остальных полей.
var (
	ErrForbidden          = errors.New("account does not belong to user")
	ErrInvalidSide        = errors.New("side must be buy or sell")
	ErrInvalidLot         = errors.New("lot size is not tradable for this symbol")
	ErrPriceUnavailable   = errors.New("quote is unavailable")
	ErrInvalidPrice       = errors.New("price must be a positive finite number")
	ErrPriceOutOfRange    = errors.New("price deviates too far from the market")
	ErrInsufficientMargin = errors.New("insufficient free margin")
)

// OrderRequest - рыночный ордер от клиента.
// Price - цена, которую клиент видел на момент отправки: она авторитетна
// и становится ценой входа, если не разошлась с рынком сверх допуска.
type OrderRequest struct {
	UserID         int
	AccountID      int
	Symbol         string
	Side           string
	Lots           float64
	Price          float64
	TakeProfit     float64
	MaxSlippageBps float64 // 0 = дефолтный допуск из конфигурации
}

// OrderService - размещение рыночных ордеров
//
// Назначение: единственная точка открытия позиций
//
// Последовательность проверок:
// 1. счёт существует, принадлежит пользователю и активен
// 2. сторона и лот валидны для инструмента
// 3. котировка доступна
// 4. клиентская цена конечна и положительна
// 5. отклонение клиентской цены от рынка в допуске
// 6. свободной маржи хватает на маржу и комиссию
type OrderService struct {
	accountRepo  AccountRepositoryInterface
	positionRepo PositionRepositoryInterface
	quotes       QuoteProviderInterface
	notifier     NotifierInterface
	cfg          config.TradingConfig
}

// NewOrderService создает новый экземпляр OrderService
func NewOrderService(
	accountRepo AccountRepositoryInterface,
	positionRepo PositionRepositoryInterface,
	quotes QuoteProviderInterface,
	notifier NotifierInterface,
	cfg config.TradingConfig,
) *OrderService {
	return &OrderService{
		accountRepo:  accountRepo,
		positionRepo: positionRepo,
		quotes:       quotes,
		notifier:     notifier,
		cfg:          cfg,
	}
}

// PlaceMarketOrder проверяет и открывает позицию по рыночному ордеру.
// Возвращает созданную позицию и котировку, по которой проверялся дрейф.
func (s *OrderService) PlaceMarketOrder(ctx context.Context, req OrderRequest) (*models.Position, *models.Quote, error) {
	account, err := s.accountRepo.GetByID(req.AccountID)
	if err != nil {
		return nil, nil, err
	}
	if account.UserID != req.UserID {
		return nil, nil, ErrForbidden
	}
	if !account.IsActive() {
		return nil, nil, ErrForbidden
	}

	if err := utils.ValidateSide(req.Side); err != nil {
		return nil, nil, ErrInvalidSide
	}
	side := strings.ToLower(strings.TrimSpace(req.Side))

	symbol := exchange.NormalizeSymbol(req.Symbol)
	spec := exchange.GetSpec(symbol)
	if !exchange.IsValidLot(req.Lots, spec.MinLot, spec.StepLot, spec.MaxLot) {
		return nil, nil, ErrInvalidLot
	}

	quote, err := s.quotes.GetTopOfBook(ctx, symbol)
	if err != nil {
		return nil, nil, ErrPriceUnavailable
	}

	if !utils.IsFinitePositive(req.Price) {
		return nil, nil, ErrInvalidPrice
	}

	// Конфигурационный допуск дрейфа обязателен, клиентский slippage-лимит
	// может его только ужесточить
	marketPrice := quote.SideFor(side)
	maxDrift := s.cfg.PriceDriftBps
	if req.MaxSlippageBps > 0 && req.MaxSlippageBps < maxDrift {
		maxDrift = req.MaxSlippageBps
	}
	if utils.DriftBps(req.Price, marketPrice) > maxDrift {
		return nil, nil, ErrPriceOutOfRange
	}

	// Цена входа - клиентская цена, приведённая к шагу инструмента
	entryPrice := utils.RoundToTick(req.Price, spec.Digits)

	commission := utils.Round2(spec.CommissionPerLot * req.Lots)
	margin := 0.0
	if account.IsMarginBased() {
		leverage := account.Leverage
		if leverage < 1 {
			leverage = 1
		}
		margin = utils.Round2(entryPrice * spec.ContractSize * req.Lots / float64(leverage))
		if err := s.accountRepo.ReserveMargin(account.ID, margin, commission); err != nil {
			return nil, nil, mapFundsError(err)
		}
	} else {
		if err := s.accountRepo.DebitCommission(account.ID, commission); err != nil {
			return nil, nil, mapFundsError(err)
		}
	}

	position := &models.Position{
		AccountID:       account.ID,
		Symbol:          symbol,
		Side:            side,
		Lots:            req.Lots,
		ContractSize:    spec.ContractSize,
		EntryPrice:      entryPrice,
		Digits:          spec.Digits,
		Margin:          margin,
		CommissionOpen:  commission,
		CommissionClose: commission,
		TakeProfit:      req.TakeProfit,
	}

	if err := s.positionRepo.Create(position); err != nil {
		// Откат резерва: позиция не открыта, средства возвращаются
		if rollbackErr := s.accountRepo.SettleClose(account.ID, margin, commission); rollbackErr != nil {
			s.notifier.NotifyError(&account.ID, "margin rollback failed after create error",
				map[string]interface{}{"error": rollbackErr.Error()})
		}
		return nil, nil, err
	}

	utils.Info("position opened",
		utils.AccountID(account.ID),
		utils.PositionID(position.ID),
		utils.Symbol(symbol),
		utils.Side(side),
		utils.Lots(req.Lots),
		utils.Price(entryPrice),
	)

	return position, quote, nil
}

func mapFundsError(err error) error {
	if errors.Is(err, repository.ErrInsufficientFunds) {
		return ErrInsufficientMargin
	}
	return err
}
