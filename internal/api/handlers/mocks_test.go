package handlers

import (
	"context"
	"net/http"

	"margintrade/internal/api/middleware"
	"margintrade/internal/models"
	"margintrade/internal/service"
)

// ============================================================
// Mock services для тестирования handlers
// ============================================================

type MockOrderService struct {
	position *models.Position
	quote    *models.Quote
	err      error
	lastReq  service.OrderRequest
	calls    int
}

func (m *MockOrderService) PlaceMarketOrder(_ context.Context, req service.OrderRequest) (*models.Position, *models.Quote, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, nil, m.err
	}
	return m.position, m.quote, nil
}

type MockPositionService struct {
	position  *models.Position
	positions []*models.Position
	err       error

	closedID  string
	lastLimit int
}

func (m *MockPositionService) ClosePosition(_ context.Context, userID int, positionID string) (*models.Position, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.closedID = positionID
	return m.position, nil
}

func (m *MockPositionService) GetPosition(userID int, positionID string) (*models.Position, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.position, nil
}

func (m *MockPositionService) GetOpenPositions(userID, accountID int) ([]*models.Position, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.positions, nil
}

func (m *MockPositionService) GetClosedPositions(userID, accountID, limit int) ([]*models.Position, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.positions, nil
}

type MockAccountService struct {
	snapshot *service.AccountSnapshot
	err      error
}

func (m *MockAccountService) GetSnapshot(_ context.Context, userID, accountID int) (*service.AccountSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.snapshot, nil
}

type MockNotificationService struct {
	notifications []*models.Notification
	err           error

	lastAccountID int
	deleted       int64
}

func (m *MockNotificationService) GetNotifications(limit int) ([]*models.Notification, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.notifications, nil
}

func (m *MockNotificationService) GetAccountNotifications(accountID, limit int) ([]*models.Notification, error) {
	m.lastAccountID = accountID
	if m.err != nil {
		return nil, m.err
	}
	return m.notifications, nil
}

func (m *MockNotificationService) CleanupOld(keep int) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.deleted, nil
}

type MockLiquidationService struct {
	outcome *service.Outcome
	err     error

	evaluateCalls int
	realCalls     int
}

func (m *MockLiquidationService) Evaluate(_ context.Context, accountID int) (*service.Outcome, error) {
	m.evaluateCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.outcome, nil
}

func (m *MockLiquidationService) MaybeLiquidate(_ context.Context, accountID int) (*service.Outcome, error) {
	m.realCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.outcome, nil
}

// ============================================================
// Вспомогательные функции
// ============================================================

// withUser добавляет ID пользователя в context запроса
func withUser(r *http.Request, userID int) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
	return r.WithContext(ctx)
}
