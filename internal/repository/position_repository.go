package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"margintrade/internal/models"
)

// Ошибки репозитория позиций
var (
	ErrPositionNotFound      = errors.New("position not found")
	ErrPositionAlreadyClosed = errors.New("position already closed")
)

const positionColumns = `id, account_id, symbol, side, lots, contract_size, entry_price, digits, margin, commission_open, commission_close, take_profit, status, reason, close_price, pnl, opened_at, closed_at`

// PositionRepository - работа с таблицей positions
//
// Назначение: Data Access Layer для торговых позиций
//
// Функции:
// - Create: открыть позицию
// - GetByID / GetOpenByAccount / GetOpenWithTakeProfit: чтение
// - Close: единственная точка перевода open -> closed, условный UPDATE
//
// Закрытие идемпотентно: повторная попытка по уже закрытой позиции
// возвращает ErrPositionAlreadyClosed и не трогает данные.
type PositionRepository struct {
	db *sql.DB
}

// NewPositionRepository создает новый экземпляр репозитория
func NewPositionRepository(db *sql.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

func scanPosition(scanner interface{ Scan(...interface{}) error }) (*models.Position, error) {
	position := &models.Position{}
	err := scanner.Scan(
		&position.ID,
		&position.AccountID,
		&position.Symbol,
		&position.Side,
		&position.Lots,
		&position.ContractSize,
		&position.EntryPrice,
		&position.Digits,
		&position.Margin,
		&position.CommissionOpen,
		&position.CommissionClose,
		&position.TakeProfit,
		&position.Status,
		&position.Reason,
		&position.ClosePrice,
		&position.Pnl,
		&position.OpenedAt,
		&position.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	return position, nil
}

// Create создает запись об открытой позиции
func (r *PositionRepository) Create(position *models.Position) error {
	query := `
		INSERT INTO positions (id, account_id, symbol, side, lots, contract_size, entry_price, digits, margin, commission_open, commission_close, take_profit, status, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	if position.ID == "" {
		position.ID = uuid.NewString()
	}
	position.Status = models.PositionStatusOpen
	position.OpenedAt = time.Now()

	_, err := r.db.Exec(
		query,
		position.ID,
		position.AccountID,
		position.Symbol,
		position.Side,
		position.Lots,
		position.ContractSize,
		position.EntryPrice,
		position.Digits,
		position.Margin,
		position.CommissionOpen,
		position.CommissionClose,
		position.TakeProfit,
		position.Status,
		position.OpenedAt,
	)

	return err
}

// GetByID возвращает позицию по ID
func (r *PositionRepository) GetByID(id string) (*models.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE id = $1`

	position, err := scanPosition(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPositionNotFound
		}
		return nil, err
	}

	return position, nil
}

// GetOpenByAccount возвращает открытые позиции счёта
func (r *PositionRepository) GetOpenByAccount(accountID int) ([]*models.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE account_id = $1 AND status = $2
		ORDER BY opened_at DESC`

	return r.queryPositions(query, accountID, models.PositionStatusOpen)
}

// GetClosedByAccount возвращает историю закрытых позиций счёта
func (r *PositionRepository) GetClosedByAccount(accountID int, limit int) ([]*models.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE account_id = $1 AND status = $2
		ORDER BY closed_at DESC
		LIMIT $3`

	return r.queryPositions(query, accountID, models.PositionStatusClosed, limit)
}

// GetOpenWithTakeProfit возвращает все открытые позиции с выставленным
// тейк-профитом (рабочий набор для движка триггеров)
func (r *PositionRepository) GetOpenWithTakeProfit() ([]*models.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE status = $1 AND take_profit > 0
		ORDER BY symbol, opened_at`

	return r.queryPositions(query, models.PositionStatusOpen)
}

func (r *PositionRepository) queryPositions(query string, args ...interface{}) ([]*models.Position, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []*models.Position
	for rows.Next() {
		position, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, position)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return positions, nil
}

// Close переводит позицию open -> closed одним условным UPDATE.
// Ноль затронутых строк означает, что позицию уже закрыл кто-то другой
// (ручное закрытие, тейк-профит или ликвидация).
func (r *PositionRepository) Close(id string, closePrice, pnl float64, reason string) error {
	query := `
		UPDATE positions
		SET status = $1, close_price = $2, pnl = $3, reason = $4, closed_at = $5
		WHERE id = $6 AND status = $7`

	result, err := r.db.Exec(
		query,
		models.PositionStatusClosed,
		closePrice,
		pnl,
		reason,
		time.Now(),
		id,
		models.PositionStatusOpen,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrPositionAlreadyClosed
	}

	return nil
}

// CountOpen возвращает количество открытых позиций счёта
func (r *PositionRepository) CountOpen(accountID int) (int, error) {
	query := `SELECT COUNT(*) FROM positions WHERE account_id = $1 AND status = $2`

	var count int
	err := r.db.QueryRow(query, accountID, models.PositionStatusOpen).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}
