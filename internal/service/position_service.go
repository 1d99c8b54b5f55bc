package service

import (
	"context"

	"margintrade/internal/models"
	"margintrade/pkg/utils"
)

// PositionService - закрытие позиций и выборки по ним
//
// Назначение: единственная точка перевода позиции в closed с расчётом по счёту
//
// Идемпотентность: сам перевод open -> closed делает условный UPDATE в
// репозитории. Если позицию уже закрыл конкурирующий путь (тейк-профит,
// ликвидация, второй ручной запрос), расчёт по счёту и уведомление
// не выполняются повторно.
type PositionService struct {
	accountRepo  AccountRepositoryInterface
	positionRepo PositionRepositoryInterface
	quotes       QuoteProviderInterface
	notifier     NotifierInterface
}

// NewPositionService создает новый экземпляр PositionService
func NewPositionService(
	accountRepo AccountRepositoryInterface,
	positionRepo PositionRepositoryInterface,
	quotes QuoteProviderInterface,
	notifier NotifierInterface,
) *PositionService {
	return &PositionService{
		accountRepo:  accountRepo,
		positionRepo: positionRepo,
		quotes:       quotes,
		notifier:     notifier,
	}
}

// ClosePosition закрывает позицию по запросу клиента по текущей рыночной цене
func (s *PositionService) ClosePosition(ctx context.Context, userID int, positionID string) (*models.Position, error) {
	position, err := s.positionRepo.GetByID(positionID)
	if err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetByID(position.AccountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, ErrForbidden
	}

	quote, err := s.quotes.GetTopOfBook(ctx, position.Symbol)
	if err != nil {
		return nil, ErrPriceUnavailable
	}

	closePrice := utils.RoundToTick(quote.CloseSideFor(position.Side), position.Digits)
	return s.CloseAtPrice(position, closePrice, models.CloseReasonManual)
}

// CloseAtPrice закрывает позицию по заданной цене. Внутренний путь для
// движка тейк-профитов и ликвидации: без проверки владельца.
func (s *PositionService) CloseAtPrice(position *models.Position, closePrice float64, reason string) (*models.Position, error) {
	gross := utils.GrossPnL(position.EntryPrice, closePrice, position.ContractSize, position.Lots, position.IsBuy())
	netPnl := utils.Round2(gross - position.CommissionClose)

	if err := s.positionRepo.Close(position.ID, closePrice, netPnl, reason); err != nil {
		return nil, err
	}

	if err := s.accountRepo.SettleClose(position.AccountID, position.Margin, netPnl); err != nil {
		s.notifier.NotifyError(&position.AccountID, "settlement failed after position close",
			map[string]interface{}{"position_id": position.ID, "error": err.Error()})
	} else if account, accErr := s.accountRepo.GetByID(position.AccountID); accErr == nil {
		s.notifier.NotifyAccountUpdated(account)
	}

	position.Status = models.PositionStatusClosed
	position.Reason = reason
	position.ClosePrice = &closePrice
	position.Pnl = &netPnl

	utils.Info("position closed",
		utils.AccountID(position.AccountID),
		utils.PositionID(position.ID),
		utils.Symbol(position.Symbol),
		utils.Side(position.Side),
		utils.Price(closePrice),
		utils.PNL(netPnl),
		utils.Reason(reason),
	)

	s.notifier.NotifyPositionClosed(position)
	return position, nil
}

// GetPosition возвращает позицию с проверкой владельца
func (s *PositionService) GetPosition(userID int, positionID string) (*models.Position, error) {
	position, err := s.positionRepo.GetByID(positionID)
	if err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetByID(position.AccountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, ErrForbidden
	}

	return position, nil
}

// GetOpenPositions возвращает открытые позиции счёта с проверкой владельца
func (s *PositionService) GetOpenPositions(userID, accountID int) ([]*models.Position, error) {
	account, err := s.accountRepo.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, ErrForbidden
	}

	return s.positionRepo.GetOpenByAccount(accountID)
}

// GetClosedPositions возвращает историю закрытых позиций счёта
func (s *PositionService) GetClosedPositions(userID, accountID, limit int) ([]*models.Position, error) {
	account, err := s.accountRepo.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, ErrForbidden
	}

	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	return s.positionRepo.GetClosedByAccount(accountID, limit)
}
