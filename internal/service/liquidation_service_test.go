package service

import (
	"context"
	"errors"
	"testing"

	"margintrade/internal/models"
)

func newLiquidationFixture(stopOutFraction float64) (*LiquidationService, *MockAccountRepository, *MockPositionRepository, *MockQuoteProvider, *MockNotifier) {
	accountRepo := NewMockAccountRepository()
	positionRepo := NewMockPositionRepository()
	quotes := NewMockQuoteProvider()
	notifier := NewMockNotifier()

	cfg := testingTradingConfig()
	cfg.StopOutFraction = stopOutFraction

	svc := NewLiquidationService(accountRepo, positionRepo, quotes, notifier, cfg)
	return svc, accountRepo, positionRepo, quotes, notifier
}

func TestLiquidationServiceNotTriggered(t *testing.T) {
	svc, accountRepo, positionRepo, quotes, notifier := newLiquidationFixture(0)
	accountRepo.add(activeAccount(1, 10, 1000))
	positionRepo.add(openBTCPosition("pos-1", 1))
	quotes.setQuote("BTCUSDT", 59950, 59951)

	outcome, err := svc.MaybeLiquidate(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Плавающий минус -50, equity 950 > 0
	if outcome.Liquidated {
		t.Error("liquidation must not trigger with positive equity")
	}
	if outcome.Equity != 950 {
		t.Errorf("expected equity 950, got %v", outcome.Equity)
	}

	position, _ := positionRepo.GetByID("pos-1")
	if !position.IsOpen() {
		t.Error("position must stay open")
	}
	if notifier.closedCount() != 0 {
		t.Error("no close events expected")
	}

	// Замок снят: повторная проверка проходит
	if _, err := svc.MaybeLiquidate(context.Background(), 1); err != nil {
		t.Errorf("lock was not released: %v", err)
	}
}

func TestLiquidationServiceNegativeEquity(t *testing.T) {
	svc, accountRepo, positionRepo, quotes, notifier := newLiquidationFixture(0)
	accountRepo.add(activeAccount(1, 10, 100))

	position := openBTCPosition("pos-1", 1)
	position.EntryPrice = 1000
	position.CommissionClose = 0
	positionRepo.add(position)
	quotes.setQuote("BTCUSDT", 850, 851)

	outcome, err := svc.MaybeLiquidate(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Нереализованный убыток -150 перекрывает баланс 100
	if !outcome.Liquidated {
		t.Fatal("liquidation must trigger")
	}
	if outcome.Equity != -50 {
		t.Errorf("expected equity -50, got %v", outcome.Equity)
	}
	if outcome.RealizedPnl != -150 {
		t.Errorf("expected realized -150, got %v", outcome.RealizedPnl)
	}
	if outcome.ClosedCount != 1 {
		t.Errorf("expected 1 closed, got %d", outcome.ClosedCount)
	}

	closed, _ := positionRepo.GetByID("pos-1")
	if closed.IsOpen() {
		t.Error("position must be closed")
	}
	if closed.Reason != models.CloseReasonLiquidation {
		t.Errorf("expected liquidation reason, got %s", closed.Reason)
	}
	if *closed.ClosePrice != 850 {
		t.Errorf("buy must close at bid 850, got %v", *closed.ClosePrice)
	}

	account, _ := accountRepo.GetByID(1)
	if account.MarginUsed != 0 {
		t.Errorf("margin used must be zeroed, got %v", account.MarginUsed)
	}
	if account.Balance != -50 {
		t.Errorf("expected balance -50 after settlement, got %v", account.Balance)
	}
	if account.Liquidating {
		t.Error("liquidation lock must be released")
	}

	if notifier.closedCount() != 1 {
		t.Errorf("expected 1 close event, got %d", notifier.closedCount())
	}
	if len(notifier.liquidations) != 1 {
		t.Errorf("expected 1 liquidation event, got %d", len(notifier.liquidations))
	}
	if notifier.accountUpdateCount() != 1 {
		t.Fatalf("expected 1 account update after reset, got %d", notifier.accountUpdateCount())
	}
	if updated := notifier.accountUpdates[0]; updated.Balance != -50 {
		t.Errorf("account update must carry post-reset balance, got %v", updated.Balance)
	}
}

func TestLiquidationServiceStopOutFraction(t *testing.T) {
	svc, accountRepo, positionRepo, quotes, _ := newLiquidationFixture(0.5)

	account := activeAccount(1, 10, 290)
	account.MarginUsed = 600
	accountRepo.add(account)

	position := openBTCPosition("pos-1", 1)
	position.CommissionClose = 0
	positionRepo.add(position)
	quotes.setQuote("BTCUSDT", 59800, 59801)

	outcome, err := svc.MaybeLiquidate(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Equity 290 - 200 = 90 <= 600 * 0.5: stop-out срабатывает при плюсовом equity
	if !outcome.Liquidated {
		t.Fatalf("stop-out must trigger, equity=%v", outcome.Equity)
	}
}

func TestLiquidationServiceSweepInProgress(t *testing.T) {
	svc, accountRepo, _, _, _ := newLiquidationFixture(0)

	account := activeAccount(1, 10, 100)
	account.Liquidating = true
	accountRepo.add(account)

	_, err := svc.MaybeLiquidate(context.Background(), 1)
	if !errors.Is(err, ErrSweepInProgress) {
		t.Errorf("expected ErrSweepInProgress, got %v", err)
	}
}

func TestLiquidationServiceMissingQuoteContributesZero(t *testing.T) {
	svc, accountRepo, positionRepo, _, _ := newLiquidationFixture(0)
	accountRepo.add(activeAccount(1, 10, 100))

	// Котировки нет: позиция не тянет equity ни вверх, ни вниз
	position := openBTCPosition("pos-1", 1)
	position.EntryPrice = 1000
	positionRepo.add(position)

	outcome, err := svc.MaybeLiquidate(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Liquidated {
		t.Error("missing quote must not trigger liquidation")
	}
	if outcome.Equity != 100 {
		t.Errorf("expected equity 100, got %v", outcome.Equity)
	}
}

func TestLiquidationServiceEvaluateDryRun(t *testing.T) {
	svc, accountRepo, positionRepo, quotes, notifier := newLiquidationFixture(0)
	accountRepo.add(activeAccount(1, 10, 100))

	position := openBTCPosition("pos-1", 1)
	position.EntryPrice = 1000
	position.CommissionClose = 0
	positionRepo.add(position)
	quotes.setQuote("BTCUSDT", 850, 851)

	outcome, err := svc.Evaluate(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !outcome.Liquidated || outcome.Equity != -50 {
		t.Errorf("unexpected evaluation: %+v", outcome)
	}

	// Dry-run ничего не закрывает
	open, _ := positionRepo.GetByID("pos-1")
	if !open.IsOpen() {
		t.Error("evaluate must not close positions")
	}
	if notifier.closedCount() != 0 {
		t.Error("evaluate must not emit events")
	}
}

func TestLiquidationServiceSweepActive(t *testing.T) {
	svc, accountRepo, positionRepo, quotes, notifier := newLiquidationFixture(0)

	healthy := activeAccount(1, 10, 1000)
	drowning := activeAccount(2, 11, 100)
	accountRepo.add(healthy)
	accountRepo.add(drowning)

	position := openBTCPosition("pos-1", 2)
	position.EntryPrice = 1000
	position.CommissionClose = 0
	positionRepo.add(position)
	quotes.setQuote("BTCUSDT", 850, 851)

	svc.SweepActive(context.Background())

	first, _ := accountRepo.GetByID(1)
	if first.Balance != 1000 {
		t.Errorf("healthy account must be untouched: %v", first.Balance)
	}

	second, _ := accountRepo.GetByID(2)
	if second.Balance != -50 || second.MarginUsed != 0 {
		t.Errorf("drowning account must be liquidated: balance=%v marginUsed=%v",
			second.Balance, second.MarginUsed)
	}
	if len(notifier.liquidations) != 1 {
		t.Errorf("expected 1 liquidation, got %d", len(notifier.liquidations))
	}
}
