package models

import "time"

// Position представляет маржинальную позицию
//
// Позиция создается при исполнении рыночного ордера и закрывается ровно
// один раз: переход open -> closed выполняется условным UPDATE по статусу,
// поэтому ручное закрытие, take-profit и ликвидация не могут примениться
// к одной позиции дважды. Закрытые позиции не удаляются и служат журналом.
type Position struct {
	ID              string     `json:"id" db:"id"` // uuid
	AccountID       int        `json:"account_id" db:"account_id"`
	Symbol          string     `json:"symbol" db:"symbol"` // нормализованный, BTCUSDT
	Side            string     `json:"side" db:"side"`     // buy, sell
	Lots            float64    `json:"lots" db:"lots"`
	ContractSize    float64    `json:"contract_size" db:"contract_size"`
	EntryPrice      float64    `json:"entry_price" db:"entry_price"` // округлена до тика
	Digits          int        `json:"digits" db:"digits"`
	Margin          float64    `json:"margin" db:"margin"`
	CommissionOpen  float64    `json:"commission_open" db:"commission_open"`
	CommissionClose float64    `json:"commission_close" db:"commission_close"`
	TakeProfit      float64    `json:"take_profit,omitempty" db:"take_profit"` // цель в USD, 0 = нет
	Status          string     `json:"status" db:"status"`                     // open, closed
	Reason          string     `json:"reason,omitempty" db:"reason"`           // manual, takeProfit, liquidation
	ClosePrice      *float64   `json:"close_price,omitempty" db:"close_price"`
	Pnl             *float64   `json:"pnl,omitempty" db:"pnl"` // чистый PnL после комиссии закрытия
	OpenedAt        time.Time  `json:"opened_at" db:"opened_at"`
	ClosedAt        *time.Time `json:"closed_at,omitempty" db:"closed_at"`
}

// Направления позиции
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Статусы позиции
const (
	PositionStatusOpen   = "open"
	PositionStatusClosed = "closed"
)

// Причины закрытия
const (
	CloseReasonManual      = "manual"
	CloseReasonTakeProfit  = "takeProfit"
	CloseReasonLiquidation = "liquidation"
)

// IsBuy возвращает true для длинной позиции
func (p *Position) IsBuy() bool {
	return p.Side == SideBuy
}

// IsOpen возвращает true для открытой позиции
func (p *Position) IsOpen() bool {
	return p.Status == PositionStatusOpen
}

// Quantity возвращает объём позиции в единицах базового актива
func (p *Position) Quantity() float64 {
	return p.Lots * p.ContractSize
}

// Fees возвращает суммарную комиссию позиции (открытие + закрытие)
func (p *Position) Fees() float64 {
	return p.CommissionOpen + p.CommissionClose
}
