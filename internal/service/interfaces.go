package service

import (
	"context"

	"margintrade/internal/models"
	"margintrade/internal/repository"
)

// AccountRepositoryInterface определяет интерфейс репозитория счетов
type AccountRepositoryInterface interface {
	GetByID(id int) (*models.Account, error)
	GetActive() ([]*models.Account, error)
	ReserveMargin(accountID int, margin, commission float64) error
	DebitCommission(accountID int, commission float64) error
	SettleClose(accountID int, margin, netPnl float64) error
	TryLockLiquidation(accountID int) error
	UnlockLiquidation(accountID int) error
	ResetAfterLiquidation(accountID int, realizedPnl float64) error
}

// PositionRepositoryInterface определяет интерфейс репозитория позиций
type PositionRepositoryInterface interface {
	Create(position *models.Position) error
	GetByID(id string) (*models.Position, error)
	GetOpenByAccount(accountID int) ([]*models.Position, error)
	GetClosedByAccount(accountID int, limit int) ([]*models.Position, error)
	GetOpenWithTakeProfit() ([]*models.Position, error)
	Close(id string, closePrice, pnl float64, reason string) error
	CountOpen(accountID int) (int, error)
}

// NotificationRepositoryInterface определяет интерфейс репозитория уведомлений
type NotificationRepositoryInterface interface {
	Create(notif *models.Notification) error
	GetRecent(limit int) ([]*models.Notification, error)
	GetByAccountID(accountID int, limit int) ([]*models.Notification, error)
	KeepRecent(keep int) (int64, error)
}

// QuoteProviderInterface - источник актуальных котировок с дилерским спредом
type QuoteProviderInterface interface {
	GetTopOfBook(ctx context.Context, symbol string) (*models.Quote, error)
}

// NotifierInterface - публикация событий торгового ядра.
// Реализация fire-and-forget: ошибки доставки не влияют на торговый путь.
type NotifierInterface interface {
	NotifyPositionClosed(position *models.Position)
	NotifyLiquidation(accountID int, equity, realizedPnl float64, closedCount int)
	NotifyAccountUpdated(account *models.Account)
	NotifyError(accountID *int, message string, meta map[string]interface{})
}

// Проверки реализации интерфейсов на этапе компиляции
var (
	_ AccountRepositoryInterface      = (*repository.AccountRepository)(nil)
	_ PositionRepositoryInterface     = (*repository.PositionRepository)(nil)
	_ NotificationRepositoryInterface = (*repository.NotificationRepository)(nil)
)
