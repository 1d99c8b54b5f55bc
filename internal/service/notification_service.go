package service

import (
	"margintrade/internal/models"
	"margintrade/pkg/utils"
)

// WebSocketBroadcaster - интерфейс для отправки WebSocket сообщений
//
// Позволяет избежать циклических зависимостей между пакетами
// и упрощает тестирование (можно подставить mock)
type WebSocketBroadcaster interface {
	BroadcastNotification(notif *models.Notification)
	BroadcastPositionClose(position *models.Position)
	BroadcastAccountUpdate(account *models.Account)
}

// NotificationService - журнал событий торгового ядра и их доставка клиентам
//
// Назначение:
// - запись событий в БД (закрытия, ликвидации, ошибки)
// - broadcast событий подключенным клиентам через WebSocket hub
//
// Все методы Notify* работают по принципу fire-and-forget: сбой записи
// или доставки логируется, но никогда не ломает торговую операцию,
// породившую событие.
type NotificationService struct {
	notificationRepo NotificationRepositoryInterface
	wsHub            WebSocketBroadcaster
}

// NewNotificationService создает новый экземпляр NotificationService
func NewNotificationService(notificationRepo NotificationRepositoryInterface) *NotificationService {
	return &NotificationService{notificationRepo: notificationRepo}
}

// SetWebSocketHub устанавливает WebSocket hub для broadcast событий.
// Вызывается после инициализации hub в main.go.
func (s *NotificationService) SetWebSocketHub(hub WebSocketBroadcaster) {
	s.wsHub = hub
}

// NotifyPositionClosed публикует событие закрытия позиции
func (s *NotificationService) NotifyPositionClosed(position *models.Position) {
	notifType := models.NotificationTypeClose
	severity := models.SeverityInfo
	switch position.Reason {
	case models.CloseReasonTakeProfit:
		notifType = models.NotificationTypeTakeProfit
	case models.CloseReasonLiquidation:
		notifType = models.NotificationTypeLiquidation
		severity = models.SeverityWarn
	}

	meta := map[string]interface{}{
		"symbol": position.Symbol,
		"side":   position.Side,
		"reason": position.Reason,
	}
	if position.ClosePrice != nil {
		meta["closePrice"] = *position.ClosePrice
	}
	if position.Pnl != nil {
		meta["pnl"] = *position.Pnl
	}

	s.create(&models.Notification{
		Type:       notifType,
		Severity:   severity,
		AccountID:  &position.AccountID,
		PositionID: &position.ID,
		Message:    "position closed: " + position.Symbol,
		Meta:       meta,
	})

	if s.wsHub != nil {
		s.wsHub.BroadcastPositionClose(position)
	}
}

// NotifyLiquidation публикует событие ликвидации счёта
func (s *NotificationService) NotifyLiquidation(accountID int, equity, realizedPnl float64, closedCount int) {
	s.create(&models.Notification{
		Type:      models.NotificationTypeLiquidation,
		Severity:  models.SeverityWarn,
		AccountID: &accountID,
		Message:   "account liquidated",
		Meta: map[string]interface{}{
			"equity":      equity,
			"realizedPnl": realizedPnl,
			"closedCount": closedCount,
		},
	})
}

// NotifyAccountUpdated рассылает клиентам свежее состояние счёта.
// Состояние не является событием журнала и в БД не пишется.
func (s *NotificationService) NotifyAccountUpdated(account *models.Account) {
	if s.wsHub != nil {
		s.wsHub.BroadcastAccountUpdate(account)
	}
}

// NotifyError публикует событие об ошибке
func (s *NotificationService) NotifyError(accountID *int, message string, meta map[string]interface{}) {
	s.create(&models.Notification{
		Type:      models.NotificationTypeError,
		Severity:  models.SeverityError,
		AccountID: accountID,
		Message:   message,
		Meta:      meta,
	})
}

func (s *NotificationService) create(notif *models.Notification) {
	if err := s.notificationRepo.Create(notif); err != nil {
		utils.Error("failed to persist notification",
			utils.String("type", notif.Type), utils.Err(err))
		return
	}

	if s.wsHub != nil {
		s.wsHub.BroadcastNotification(notif)
	}
}

// GetNotifications возвращает последние уведомления (новые сверху)
func (s *NotificationService) GetNotifications(limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	return s.notificationRepo.GetRecent(limit)
}

// GetAccountNotifications возвращает уведомления конкретного счёта
func (s *NotificationService) GetAccountNotifications(accountID, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	return s.notificationRepo.GetByAccountID(accountID, limit)
}

// CleanupOld оставляет только последние N записей журнала
func (s *NotificationService) CleanupOld(keep int) (int64, error) {
	if keep <= 0 {
		keep = 1000
	}
	return s.notificationRepo.KeepRecent(keep)
}

var _ NotifierInterface = (*NotificationService)(nil)
