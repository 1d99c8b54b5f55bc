package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"margintrade/internal/models"
	"margintrade/internal/repository"
)

// ============ Mock AccountRepository ============

type MockAccountRepository struct {
	mu        sync.Mutex
	accounts  map[int]*models.Account
	getErr    error
	updateErr error
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{accounts: make(map[int]*models.Account)}
}

func (m *MockAccountRepository) add(account *models.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
}

func (m *MockAccountRepository) GetByID(id int) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	account, exists := m.accounts[id]
	if !exists {
		return nil, repository.ErrAccountNotFound
	}
	snapshot := *account
	return &snapshot, nil
}

func (m *MockAccountRepository) GetActive() ([]*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.Account
	for _, account := range m.accounts {
		if account.Status == models.AccountStatusActive {
			snapshot := *account
			result = append(result, &snapshot)
		}
	}
	return result, nil
}

func (m *MockAccountRepository) ReserveMargin(accountID int, margin, commission float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	account, exists := m.accounts[accountID]
	if !exists || account.Status != models.AccountStatusActive {
		return repository.ErrInsufficientFunds
	}
	if account.Equity-account.MarginUsed < margin+commission {
		return repository.ErrInsufficientFunds
	}
	account.MarginUsed += margin
	account.Balance -= commission
	account.Equity -= commission
	return nil
}

func (m *MockAccountRepository) DebitCommission(accountID int, commission float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	account, exists := m.accounts[accountID]
	if !exists || account.Status != models.AccountStatusActive || account.Balance < commission {
		return repository.ErrInsufficientFunds
	}
	account.Balance -= commission
	account.Equity -= commission
	return nil
}

func (m *MockAccountRepository) SettleClose(accountID int, margin, netPnl float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	account, exists := m.accounts[accountID]
	if !exists {
		return repository.ErrAccountNotFound
	}
	account.MarginUsed -= margin
	if account.MarginUsed < 0 {
		account.MarginUsed = 0
	}
	account.Balance += netPnl
	account.Equity += netPnl
	return nil
}

func (m *MockAccountRepository) TryLockLiquidation(accountID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, exists := m.accounts[accountID]
	if !exists || account.Liquidating {
		return repository.ErrLiquidationLockBusy
	}
	account.Liquidating = true
	return nil
}

func (m *MockAccountRepository) UnlockLiquidation(accountID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account, exists := m.accounts[accountID]; exists {
		account.Liquidating = false
	}
	return nil
}

func (m *MockAccountRepository) ResetAfterLiquidation(accountID int, realizedPnl float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, exists := m.accounts[accountID]
	if !exists {
		return repository.ErrAccountNotFound
	}
	account.MarginUsed = 0
	account.Balance += realizedPnl
	account.Equity = account.Balance
	return nil
}

// ============ Mock PositionRepository ============

type MockPositionRepository struct {
	mu        sync.Mutex
	positions map[string]*models.Position
	nextID    int
	createErr error
	closeErr  error
}

func NewMockPositionRepository() *MockPositionRepository {
	return &MockPositionRepository{positions: make(map[string]*models.Position), nextID: 1}
}

func (m *MockPositionRepository) add(position *models.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if position.Status == "" {
		position.Status = models.PositionStatusOpen
	}
	m.positions[position.ID] = position
}

func (m *MockPositionRepository) Create(position *models.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if position.ID == "" {
		position.ID = fmt.Sprintf("pos-%d", m.nextID)
		m.nextID++
	}
	position.Status = models.PositionStatusOpen
	position.OpenedAt = time.Now()
	snapshot := *position
	m.positions[position.ID] = &snapshot
	return nil
}

func (m *MockPositionRepository) GetByID(id string) (*models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	position, exists := m.positions[id]
	if !exists {
		return nil, repository.ErrPositionNotFound
	}
	snapshot := *position
	return &snapshot, nil
}

func (m *MockPositionRepository) GetOpenByAccount(accountID int) ([]*models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Position
	for _, position := range m.positions {
		if position.AccountID == accountID && position.Status == models.PositionStatusOpen {
			snapshot := *position
			result = append(result, &snapshot)
		}
	}
	return result, nil
}

func (m *MockPositionRepository) GetClosedByAccount(accountID int, limit int) ([]*models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Position
	for _, position := range m.positions {
		if position.AccountID == accountID && position.Status == models.PositionStatusClosed {
			snapshot := *position
			result = append(result, &snapshot)
		}
	}
	return result, nil
}

func (m *MockPositionRepository) GetOpenWithTakeProfit() ([]*models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Position
	for _, position := range m.positions {
		if position.Status == models.PositionStatusOpen && position.TakeProfit > 0 {
			snapshot := *position
			result = append(result, &snapshot)
		}
	}
	return result, nil
}

func (m *MockPositionRepository) Close(id string, closePrice, pnl float64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closeErr != nil {
		return m.closeErr
	}
	position, exists := m.positions[id]
	if !exists || position.Status != models.PositionStatusOpen {
		return repository.ErrPositionAlreadyClosed
	}
	now := time.Now()
	position.Status = models.PositionStatusClosed
	position.ClosePrice = &closePrice
	position.Pnl = &pnl
	position.Reason = reason
	position.ClosedAt = &now
	return nil
}

func (m *MockPositionRepository) CountOpen(accountID int) (int, error) {
	positions, _ := m.GetOpenByAccount(accountID)
	return len(positions), nil
}

// ============ Mock NotificationRepository ============

type MockNotificationRepository struct {
	mu            sync.Mutex
	notifications []*models.Notification
	createErr     error
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{}
}

func (m *MockNotificationRepository) Create(notif *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	notif.ID = len(m.notifications) + 1
	notif.Timestamp = time.Now()
	m.notifications = append(m.notifications, notif)
	return nil
}

func (m *MockNotificationRepository) GetRecent(limit int) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.notifications) {
		limit = len(m.notifications)
	}
	result := make([]*models.Notification, 0, limit)
	for i := len(m.notifications) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, m.notifications[i])
	}
	return result, nil
}

func (m *MockNotificationRepository) GetByAccountID(accountID int, limit int) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Notification
	for i := len(m.notifications) - 1; i >= 0 && len(result) < limit; i-- {
		notif := m.notifications[i]
		if notif.AccountID != nil && *notif.AccountID == accountID {
			result = append(result, notif)
		}
	}
	return result, nil
}

func (m *MockNotificationRepository) KeepRecent(keep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if keep >= len(m.notifications) {
		return 0, nil
	}
	deleted := int64(len(m.notifications) - keep)
	m.notifications = m.notifications[len(m.notifications)-keep:]
	return deleted, nil
}

// ============ Mock QuoteProvider ============

type MockQuoteProvider struct {
	mu     sync.Mutex
	quotes map[string]*models.Quote
	errs   map[string]error
	calls  int
}

func NewMockQuoteProvider() *MockQuoteProvider {
	return &MockQuoteProvider{
		quotes: make(map[string]*models.Quote),
		errs:   make(map[string]error),
	}
}

func (m *MockQuoteProvider) setQuote(symbol string, bid, ask float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[symbol] = &models.Quote{Bid: bid, Ask: ask, TimestampMs: time.Now().UnixMilli()}
}

func (m *MockQuoteProvider) setError(symbol string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[symbol] = err
}

func (m *MockQuoteProvider) GetTopOfBook(ctx context.Context, symbol string) (*models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err, exists := m.errs[symbol]; exists {
		return nil, err
	}
	quote, exists := m.quotes[symbol]
	if !exists {
		return nil, fmt.Errorf("no quote for %s", symbol)
	}
	return quote, nil
}

// ============ Mock Notifier ============

type MockNotifier struct {
	mu             sync.Mutex
	closed         []*models.Position
	liquidations   []int
	accountUpdates []*models.Account
	errors         []string
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) NotifyPositionClosed(position *models.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := *position
	m.closed = append(m.closed, &snapshot)
}

func (m *MockNotifier) NotifyLiquidation(accountID int, equity, realizedPnl float64, closedCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.liquidations = append(m.liquidations, accountID)
}

func (m *MockNotifier) NotifyAccountUpdated(account *models.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := *account
	m.accountUpdates = append(m.accountUpdates, &snapshot)
}

func (m *MockNotifier) accountUpdateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accountUpdates)
}

func (m *MockNotifier) NotifyError(accountID *int, message string, meta map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, message)
}

func (m *MockNotifier) closedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.closed)
}
