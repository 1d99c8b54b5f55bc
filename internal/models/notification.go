package models

import "time"

// Notification представляет уведомление о событии
type Notification struct {
	ID         int                    `json:"id" db:"id"`
	Timestamp  time.Time              `json:"timestamp" db:"timestamp"`
	Type       string                 `json:"type" db:"type"`         // CLOSE, TAKE_PROFIT, LIQUIDATION, MARGIN, ERROR
	Severity   string                 `json:"severity" db:"severity"` // info, warn, error
	AccountID  *int                   `json:"account_id,omitempty" db:"account_id"`
	PositionID *string                `json:"position_id,omitempty" db:"position_id"`
	Message    string                 `json:"message" db:"message"`
	Meta       map[string]interface{} `json:"meta,omitempty" db:"meta"` // дополнительные данные (JSON в БД)
}

// Типы уведомлений
const (
	NotificationTypeClose       = "CLOSE"       // ручное закрытие позиции
	NotificationTypeTakeProfit  = "TAKE_PROFIT" // срабатывание take-profit
	NotificationTypeLiquidation = "LIQUIDATION" // принудительное закрытие свипом
	NotificationTypeMargin      = "MARGIN"      // недостаток маржи при открытии
	NotificationTypeError       = "ERROR"       // ошибка апстрима/закрытия
)

// Уровни важности
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)
