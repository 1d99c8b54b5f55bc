package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// ============ Account Tests ============

func TestAccount_JSONSerialization(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	account := Account{
		ID:          1,
		UserID:      10,
		Type:        AccountTypeDemo,
		Status:      AccountStatusActive,
		Balance:     1500.50,
		Equity:      1500.50,
		MarginUsed:  200.0,
		Leverage:    100,
		Currency:    "USD",
		Liquidating: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	data, err := json.Marshal(account)
	if err != nil {
		t.Fatalf("ошибка сериализации: %v", err)
	}

	jsonStr := string(data)

	// Advisory-флаг не должен попадать в JSON (тег json:"-")
	if strings.Contains(jsonStr, "liquidating") {
		t.Error("поле liquidating не должно быть в JSON")
	}

	publicFields := []string{"id", "user_id", "balance", "equity", "margin_used", "leverage"}
	for _, field := range publicFields {
		if !strings.Contains(jsonStr, field) {
			t.Errorf("публичное поле %q должно быть в JSON", field)
		}
	}
}

func TestAccount_FreeMargin(t *testing.T) {
	account := Account{Equity: 1000, MarginUsed: 300}
	if got := account.FreeMargin(); got != 700 {
		t.Errorf("FreeMargin: ожидали 700, получили %v", got)
	}
}

func TestAccount_IsMarginBased(t *testing.T) {
	tests := []struct {
		accType  string
		expected bool
	}{
		{AccountTypeDemo, true},
		{AccountTypeReal, true},
		{AccountTypeAI, false},
	}

	for _, tt := range tests {
		t.Run(tt.accType, func(t *testing.T) {
			account := Account{Type: tt.accType}
			if got := account.IsMarginBased(); got != tt.expected {
				t.Errorf("IsMarginBased(%s) = %v, want %v", tt.accType, got, tt.expected)
			}
		})
	}
}

func TestAccount_Normalize(t *testing.T) {
	account := Account{Balance: 500, Equity: 0, MarginUsed: -5, Leverage: 0}
	account.Normalize()

	if account.Equity != 500 {
		t.Errorf("Equity: ожидали 500, получили %v", account.Equity)
	}
	if account.MarginUsed != 0 {
		t.Errorf("MarginUsed: ожидали 0, получили %v", account.MarginUsed)
	}
	if account.Leverage != 1 {
		t.Errorf("Leverage: ожидали 1, получили %v", account.Leverage)
	}
}

// ============ Position Tests ============

func TestPosition_Helpers(t *testing.T) {
	position := Position{
		Symbol:          "BTCUSDT",
		Side:            SideBuy,
		Lots:            0.5,
		ContractSize:    2,
		CommissionOpen:  1.5,
		CommissionClose: 0.5,
		Status:          PositionStatusOpen,
	}

	if !position.IsBuy() {
		t.Error("IsBuy должен быть true для side=buy")
	}
	if !position.IsOpen() {
		t.Error("IsOpen должен быть true для status=open")
	}
	if got := position.Quantity(); got != 1.0 {
		t.Errorf("Quantity: ожидали 1.0, получили %v", got)
	}
	if got := position.Fees(); got != 2.0 {
		t.Errorf("Fees: ожидали 2.0, получили %v", got)
	}
}

func TestPosition_JSONOmitsEmptyCloseFields(t *testing.T) {
	position := Position{
		ID:        "pos-1",
		AccountID: 1,
		Symbol:    "EURUSD",
		Side:      SideSell,
		Status:    PositionStatusOpen,
		OpenedAt:  time.Now(),
	}

	data, err := json.Marshal(position)
	if err != nil {
		t.Fatalf("ошибка сериализации: %v", err)
	}

	jsonStr := string(data)
	for _, field := range []string{"close_price", "closed_at", "pnl"} {
		if strings.Contains(jsonStr, `"`+field+`"`) {
			t.Errorf("поле %q открытой позиции не должно быть в JSON", field)
		}
	}
}

// ============ Quote Tests ============

func TestQuote_Sides(t *testing.T) {
	quote := Quote{Bid: 99.0, Ask: 101.0}

	if got := quote.Mid(); got != 100.0 {
		t.Errorf("Mid: ожидали 100, получили %v", got)
	}
	if got := quote.Spread(); got != 2.0 {
		t.Errorf("Spread: ожидали 2, получили %v", got)
	}

	// Открытие: buy по Ask, sell по Bid
	if got := quote.SideFor(SideBuy); got != 101.0 {
		t.Errorf("SideFor(buy): ожидали 101, получили %v", got)
	}
	if got := quote.SideFor(SideSell); got != 99.0 {
		t.Errorf("SideFor(sell): ожидали 99, получили %v", got)
	}

	// Закрытие: buy по Bid, sell по Ask
	if got := quote.CloseSideFor(SideBuy); got != 99.0 {
		t.Errorf("CloseSideFor(buy): ожидали 99, получили %v", got)
	}
	if got := quote.CloseSideFor(SideSell); got != 101.0 {
		t.Errorf("CloseSideFor(sell): ожидали 101, получили %v", got)
	}
}

// ============ Notification Tests ============

func TestNotification_JSONSerialization(t *testing.T) {
	accountID := 7
	positionID := "pos-42"
	notification := Notification{
		ID:         1,
		Timestamp:  time.Now(),
		Type:       NotificationTypeTakeProfit,
		Severity:   SeverityInfo,
		AccountID:  &accountID,
		PositionID: &positionID,
		Message:    "position closed by take profit",
		Meta: map[string]interface{}{
			"pnl":    10.5,
			"symbol": "BTCUSDT",
		},
	}

	data, err := json.Marshal(notification)
	if err != nil {
		t.Fatalf("ошибка сериализации: %v", err)
	}

	jsonStr := string(data)
	for _, field := range []string{"TAKE_PROFIT", "pos-42", "pnl", "symbol"} {
		if !strings.Contains(jsonStr, field) {
			t.Errorf("поле %q должно быть в JSON", field)
		}
	}
}
