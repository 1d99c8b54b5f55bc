package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"margintrade/internal/models"
)

// Ошибки репозитория уведомлений
var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// NotificationRepository - работа с таблицей notifications
//
// Назначение: Data Access Layer для журнала событий торгового ядра
//
// Функции:
// - Create: записать событие (закрытие, тейк-профит, ликвидация, ошибка)
// - GetRecent / GetByAccountID / GetBySeverity: выборки для API
// - DeleteOlderThan / KeepRecent: очистка журнала
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository создает новый экземпляр репозитория
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create создает запись об уведомлении
func (r *NotificationRepository) Create(notif *models.Notification) error {
	query := `
		INSERT INTO notifications (timestamp, type, severity, account_id, position_id, message, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	notif.Timestamp = time.Now()

	var metaJSON []byte
	if notif.Meta != nil {
		data, err := json.Marshal(notif.Meta)
		if err != nil {
			return err
		}
		metaJSON = data
	}

	return r.db.QueryRow(
		query,
		notif.Timestamp,
		notif.Type,
		notif.Severity,
		notif.AccountID,
		notif.PositionID,
		notif.Message,
		metaJSON,
	).Scan(&notif.ID)
}

// GetByID возвращает уведомление по ID
func (r *NotificationRepository) GetByID(id int) (*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, account_id, position_id, message, meta
		FROM notifications
		WHERE id = $1`

	notif, err := scanNotification(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}

	return notif, nil
}

// GetRecent возвращает последние N уведомлений
func (r *NotificationRepository) GetRecent(limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, account_id, position_id, message, meta
		FROM notifications
		ORDER BY timestamp DESC
		LIMIT $1`

	return r.queryNotifications(query, limit)
}

// GetByAccountID возвращает уведомления конкретного счёта
func (r *NotificationRepository) GetByAccountID(accountID int, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, account_id, position_id, message, meta
		FROM notifications
		WHERE account_id = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	return r.queryNotifications(query, accountID, limit)
}

// GetBySeverity возвращает уведомления определенной важности
func (r *NotificationRepository) GetBySeverity(severity string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, account_id, position_id, message, meta
		FROM notifications
		WHERE severity = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	return r.queryNotifications(query, severity, limit)
}

// DeleteOlderThan удаляет уведомления старше указанной даты
func (r *NotificationRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	query := `DELETE FROM notifications WHERE timestamp < $1`

	result, err := r.db.Exec(query, timestamp)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// KeepRecent оставляет только последние N уведомлений
func (r *NotificationRepository) KeepRecent(keep int) (int64, error) {
	query := `
		DELETE FROM notifications
		WHERE id NOT IN (
			SELECT id FROM notifications ORDER BY timestamp DESC LIMIT $1
		)`

	result, err := r.db.Exec(query, keep)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// Count возвращает общее количество уведомлений
func (r *NotificationRepository) Count() (int, error) {
	query := `SELECT COUNT(*) FROM notifications`

	var count int
	err := r.db.QueryRow(query).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func scanNotification(scanner interface{ Scan(...interface{}) error }) (*models.Notification, error) {
	notif := &models.Notification{}
	var metaJSON []byte

	err := scanner.Scan(
		&notif.ID,
		&notif.Timestamp,
		&notif.Type,
		&notif.Severity,
		&notif.AccountID,
		&notif.PositionID,
		&notif.Message,
		&metaJSON,
	)
	if err != nil {
		return nil, err
	}

	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &notif.Meta); err != nil {
			return nil, err
		}
	}

	return notif, nil
}

func (r *NotificationRepository) queryNotifications(query string, args ...interface{}) ([]*models.Notification, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notif)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}
