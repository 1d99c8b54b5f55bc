package models

import "time"

// Account представляет торговый счет
//
// Счет владеет балансом и маржинальным состоянием. Equity и MarginUsed
// при отсутствии значений в БД нормализуются к Balance и 0 соответственно.
type Account struct {
	ID          int       `json:"id" db:"id"`
	UserID      int       `json:"user_id" db:"user_id"`
	Type        string    `json:"type" db:"type"`                 // demo, real, ai
	Status      string    `json:"status" db:"status"`             // active, closed
	Balance     float64   `json:"balance" db:"balance"`
	Equity      float64   `json:"equity" db:"equity"`
	MarginUsed  float64   `json:"margin_used" db:"margin_used"`
	Leverage    float64   `json:"leverage" db:"leverage"`
	Currency    string    `json:"currency" db:"currency"`         // USD
	Liquidating bool      `json:"-" db:"liquidating"`             // advisory-флаг ликвидационного свипа
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Типы счета
const (
	AccountTypeDemo = "demo"
	AccountTypeReal = "real"
	AccountTypeAI   = "ai" // балансовый счет без маржи и плеча
)

// Статусы счета
const (
	AccountStatusActive = "active"
	AccountStatusClosed = "closed"
)

// IsActive возвращает true для активного счета
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// IsMarginBased возвращает true для счетов с маржинальной моделью.
// AI-счета списывают только комиссию с баланса, без резервирования маржи.
func (a *Account) IsMarginBased() bool {
	return a.Type != AccountTypeAI
}

// FreeMargin возвращает свободную маржу: equity - marginUsed
func (a *Account) FreeMargin() float64 {
	return a.Equity - a.MarginUsed
}

// Normalize приводит маржинальные поля к инвариантам:
// equity по умолчанию равен балансу, marginUsed неотрицателен.
func (a *Account) Normalize() {
	if a.Equity == 0 && a.Balance != 0 {
		a.Equity = a.Balance
	}
	if a.MarginUsed < 0 {
		a.MarginUsed = 0
	}
	if a.Leverage < 1 {
		a.Leverage = 1
	}
}
