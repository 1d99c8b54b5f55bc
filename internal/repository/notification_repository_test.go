package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"margintrade/internal/models"
)

// ============================================================
// NotificationRepository Tests
// ============================================================

func TestNotificationRepositoryCreate(t *testing.T) {
	accountID := 1
	positionID := "pos-1"

	tests := []struct {
		name        string
		notif       *models.Notification
		mockSetup   func(mock sqlmock.Sqlmock)
		expectError bool
	}{
		{
			name: "success without meta",
			notif: &models.Notification{
				Type:       models.NotificationTypeClose,
				Severity:   models.SeverityInfo,
				AccountID:  &accountID,
				PositionID: &positionID,
				Message:    "Position closed",
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO notifications`).
					WithArgs(sqlmock.AnyArg(), models.NotificationTypeClose, models.SeverityInfo, &accountID, &positionID, "Position closed", []byte(nil)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
			},
			expectError: false,
		},
		{
			name: "success with meta",
			notif: &models.Notification{
				Type:      models.NotificationTypeLiquidation,
				Severity:  models.SeverityWarn,
				AccountID: &accountID,
				Message:   "Account liquidated",
				Meta:      map[string]interface{}{"equity": -12.5, "closed": 3},
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO notifications`).
					WithArgs(sqlmock.AnyArg(), models.NotificationTypeLiquidation, models.SeverityWarn, &accountID, (*string)(nil), "Account liquidated", sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
			},
			expectError: false,
		},
		{
			name: "database error",
			notif: &models.Notification{
				Type:     models.NotificationTypeError,
				Severity: models.SeverityError,
				Message:  "Upstream unavailable",
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO notifications`).
					WithArgs(sqlmock.AnyArg(), models.NotificationTypeError, models.SeverityError, (*int)(nil), (*string)(nil), "Upstream unavailable", []byte(nil)).
					WillReturnError(errors.New("database error"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockSetup(mock)

			repo := NewNotificationRepository(db)
			err = repo.Create(tt.notif)

			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestNotificationRepositoryGetByID(t *testing.T) {
	now := time.Now()
	accountID := 1
	positionID := "pos-1"

	tests := []struct {
		name        string
		id          int
		mockSetup   func(mock sqlmock.Sqlmock)
		expectError error
	}{
		{
			name: "success with meta",
			id:   2,
			mockSetup: func(mock sqlmock.Sqlmock) {
				metaJSON, _ := json.Marshal(map[string]interface{}{"pnl": 6.25})
				rows := sqlmock.NewRows([]string{"id", "timestamp", "type", "severity", "account_id", "position_id", "message", "meta"}).
					AddRow(2, now, models.NotificationTypeTakeProfit, models.SeverityInfo, &accountID, &positionID, "Take profit hit", metaJSON)
				mock.ExpectQuery(`SELECT .+ FROM notifications WHERE id = \$1`).
					WithArgs(2).
					WillReturnRows(rows)
			},
			expectError: nil,
		},
		{
			name: "not found",
			id:   999,
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM notifications WHERE id = \$1`).
					WithArgs(999).
					WillReturnError(sql.ErrNoRows)
			},
			expectError: ErrNotificationNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockSetup(mock)

			repo := NewNotificationRepository(db)
			result, err := repo.GetByID(tt.id)

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Errorf("expected error %v, got %v", tt.expectError, err)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if result.Type != models.NotificationTypeTakeProfit {
					t.Errorf("expected type TAKE_PROFIT, got %s", result.Type)
				}
				if result.Meta["pnl"] != 6.25 {
					t.Errorf("meta not decoded: %+v", result.Meta)
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestNotificationRepositoryGetRecent(t *testing.T) {
	now := time.Now()
	accountID := 1

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "timestamp", "type", "severity", "account_id", "position_id", "message", "meta"}).
		AddRow(2, now, models.NotificationTypeClose, models.SeverityInfo, &accountID, nil, "Position closed", nil).
		AddRow(1, now.Add(-time.Hour), models.NotificationTypeMargin, models.SeverityWarn, &accountID, nil, "Margin level low", nil)
	mock.ExpectQuery(`SELECT .+ FROM notifications ORDER BY timestamp DESC LIMIT \$1`).
		WithArgs(10).
		WillReturnRows(rows)

	repo := NewNotificationRepository(db)
	result, err := repo.GetRecent(10)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("expected 2 notifications, got %d", len(result))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestNotificationRepositoryGetByAccountID(t *testing.T) {
	now := time.Now()
	accountID := 1

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "timestamp", "type", "severity", "account_id", "position_id", "message", "meta"}).
		AddRow(1, now, models.NotificationTypeLiquidation, models.SeverityWarn, &accountID, nil, "Account liquidated", nil)
	mock.ExpectQuery(`SELECT .+ FROM notifications WHERE account_id = \$1 ORDER BY timestamp DESC LIMIT \$2`).
		WithArgs(accountID, 10).
		WillReturnRows(rows)

	repo := NewNotificationRepository(db)
	result, err := repo.GetByAccountID(accountID, 10)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(result) != 1 {
		t.Errorf("expected 1 notification, got %d", len(result))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestNotificationRepositoryDeleteOlderThan(t *testing.T) {
	threshold := time.Now().AddDate(0, 0, -30)

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM notifications WHERE timestamp < \$1`).
		WithArgs(threshold).
		WillReturnResult(sqlmock.NewResult(0, 50))

	repo := NewNotificationRepository(db)
	deleted, err := repo.DeleteOlderThan(threshold)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if deleted != 50 {
		t.Errorf("expected 50 deleted, got %d", deleted)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestNotificationRepositoryKeepRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM notifications WHERE id NOT IN`).
		WithArgs(100).
		WillReturnResult(sqlmock.NewResult(0, 50))

	repo := NewNotificationRepository(db)
	deleted, err := repo.KeepRecent(100)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if deleted != 50 {
		t.Errorf("expected 50 deleted, got %d", deleted)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
