package websocket

import (
	"time"

	"margintrade/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypePositionClose - позиция закрыта (вручную, take-profit, ликвидация)
	MessageTypePositionClose MessageType = "positionClose"

	// MessageTypeNotification - новое уведомление
	// Отправляется при событиях: закрытие, take-profit, ликвидация, ошибки
	MessageTypeNotification MessageType = "notification"

	// MessageTypeAccountUpdate - обновление состояния счёта
	// Отправляется после операций, меняющих баланс или маржу
	MessageTypeAccountUpdate MessageType = "accountUpdate"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// PositionCloseMessage - сообщение о закрытии позиции
//
// Отправляется из торгового ядра немедленно после фиксации закрытия в БД,
// независимо от того, удалось ли сохранить уведомление.
type PositionCloseMessage struct {
	BaseMessage
	Data *PositionCloseData `json:"data"`
}

// PositionCloseData - данные закрытой позиции
type PositionCloseData struct {
	ID         string  `json:"_id"`
	AccountID  int     `json:"account_id"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Lots       float64 `json:"lots"`
	EntryPrice float64 `json:"entry_price"`
	ClosePrice float64 `json:"close_price"`
	Pnl        float64 `json:"pnl"`
	Reason     string  `json:"reason"` // manual, takeProfit, liquidation
}

// NotificationMessage - сообщение о новом уведомлении
type NotificationMessage struct {
	BaseMessage
	Data *NotificationData `json:"data"`
}

// NotificationData - данные уведомления
type NotificationData struct {
	// ID уведомления в БД
	ID int `json:"id"`

	// Тип уведомления (CLOSE, TAKE_PROFIT, LIQUIDATION, MARGIN, ERROR)
	Type string `json:"type"`

	// Уровень важности (info, warn, error)
	Severity string `json:"severity"`

	// ID связанного счёта (если применимо)
	AccountID *int `json:"account_id,omitempty"`

	// ID связанной позиции (если применимо)
	PositionID *string `json:"position_id,omitempty"`

	// Текст сообщения
	Message string `json:"message"`

	// Дополнительные метаданные (цены, PNL и т.д.)
	Meta map[string]interface{} `json:"meta,omitempty"`

	// Время создания уведомления
	Timestamp time.Time `json:"timestamp"`
}

// AccountUpdateMessage - сообщение об обновлении счёта
type AccountUpdateMessage struct {
	BaseMessage
	AccountID  int     `json:"account_id"`
	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	MarginUsed float64 `json:"margin_used"`
}

// NewPositionCloseMessage создает сообщение закрытия позиции
func NewPositionCloseMessage(position *models.Position) *PositionCloseMessage {
	data := &PositionCloseData{
		ID:         position.ID,
		AccountID:  position.AccountID,
		Symbol:     position.Symbol,
		Side:       position.Side,
		Lots:       position.Lots,
		EntryPrice: position.EntryPrice,
		Reason:     position.Reason,
	}
	if position.ClosePrice != nil {
		data.ClosePrice = *position.ClosePrice
	}
	if position.Pnl != nil {
		data.Pnl = *position.Pnl
	}

	return &PositionCloseMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypePositionClose,
			Timestamp: time.Now(),
		},
		Data: data,
	}
}

// NewNotificationMessage создает сообщение уведомления
func NewNotificationMessage(notif *models.Notification) *NotificationMessage {
	return &NotificationMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeNotification,
			Timestamp: time.Now(),
		},
		Data: &NotificationData{
			ID:         notif.ID,
			Type:       notif.Type,
			Severity:   notif.Severity,
			AccountID:  notif.AccountID,
			PositionID: notif.PositionID,
			Message:    notif.Message,
			Meta:       notif.Meta,
			Timestamp:  notif.Timestamp,
		},
	}
}

// NewAccountUpdateMessage создает сообщение обновления счёта
func NewAccountUpdateMessage(account *models.Account) *AccountUpdateMessage {
	return &AccountUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeAccountUpdate,
			Timestamp: time.Now(),
		},
		AccountID:  account.ID,
		Balance:    account.Balance,
		Equity:     account.Equity,
		MarginUsed: account.MarginUsed,
	}
}
