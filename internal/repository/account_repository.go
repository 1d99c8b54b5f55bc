package repository

import (
	"database/sql"
	"errors"

	"margintrade/internal/models"
)

// Ошибки репозитория счетов
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrLiquidationLockBusy = errors.New("liquidation already in progress")
)

const accountColumns = `id, user_id, type, status, balance, equity, margin_used, leverage, currency, liquidating, created_at, updated_at`

// AccountRepository - работа с таблицей accounts
//
// Назначение: Data Access Layer для торговых счетов
//
// Функции:
// - чтение счёта и списка активных счетов
// - атомарное резервирование маржи при открытии позиции
// - расчёт по закрытой позиции (возврат маржи, зачисление PnL)
// - CAS-замок ликвидации: одна зачистка на счёт в каждый момент времени
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository создает новый экземпляр репозитория
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetByID возвращает счёт по ID
func (r *AccountRepository) GetByID(id int) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account := &models.Account{}
	err := r.db.QueryRow(query, id).Scan(
		&account.ID,
		&account.UserID,
		&account.Type,
		&account.Status,
		&account.Balance,
		&account.Equity,
		&account.MarginUsed,
		&account.Leverage,
		&account.Currency,
		&account.Liquidating,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return account, nil
}

// GetActive возвращает все активные счета (для фоновых проверок маржи)
func (r *AccountRepository) GetActive() ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE status = $1 ORDER BY id`

	rows, err := r.db.Query(query, models.AccountStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account := &models.Account{}
		err := rows.Scan(
			&account.ID,
			&account.UserID,
			&account.Type,
			&account.Status,
			&account.Balance,
			&account.Equity,
			&account.MarginUsed,
			&account.Leverage,
			&account.Currency,
			&account.Liquidating,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return accounts, nil
}

// ReserveMargin атомарно резервирует маржу и списывает комиссию открытия.
// Условие свободной маржи проверяется в самом UPDATE: два конкурирующих
// ордера не могут зарезервировать одни и те же средства.
func (r *AccountRepository) ReserveMargin(accountID int, margin, commission float64) error {
	query := `
		UPDATE accounts
		SET margin_used = margin_used + $1,
		    balance = balance - $2,
		    equity = equity - $2,
		    updated_at = NOW()
		WHERE id = $3
		  AND status = $4
		  AND equity - margin_used >= $1 + $2`

	result, err := r.db.Exec(query, margin, commission, accountID, models.AccountStatusActive)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrInsufficientFunds
	}

	return nil
}

// DebitCommission списывает комиссию с баланса без резервирования маржи.
// Используется для AI-счетов: там достаточность проверяется только по балансу.
func (r *AccountRepository) DebitCommission(accountID int, commission float64) error {
	query := `
		UPDATE accounts
		SET balance = balance - $1,
		    equity = equity - $1,
		    updated_at = NOW()
		WHERE id = $2
		  AND status = $3
		  AND balance >= $1`

	result, err := r.db.Exec(query, commission, accountID, models.AccountStatusActive)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrInsufficientFunds
	}

	return nil
}

// SettleClose освобождает маржу позиции и зачисляет чистый PnL на баланс
func (r *AccountRepository) SettleClose(accountID int, margin, netPnl float64) error {
	query := `
		UPDATE accounts
		SET margin_used = GREATEST(margin_used - $1, 0),
		    balance = balance + $2,
		    equity = equity + $2,
		    updated_at = NOW()
		WHERE id = $3`

	result, err := r.db.Exec(query, margin, netPnl, accountID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// TryLockLiquidation взводит флаг ликвидации через compare-and-set.
// Возвращает ErrLiquidationLockBusy, если зачистка по счёту уже идёт.
func (r *AccountRepository) TryLockLiquidation(accountID int) error {
	query := `
		UPDATE accounts
		SET liquidating = TRUE, updated_at = NOW()
		WHERE id = $1 AND liquidating = FALSE`

	result, err := r.db.Exec(query, accountID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrLiquidationLockBusy
	}

	return nil
}

// UnlockLiquidation снимает флаг ликвидации
func (r *AccountRepository) UnlockLiquidation(accountID int) error {
	query := `
		UPDATE accounts
		SET liquidating = FALSE, updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(query, accountID)
	return err
}

// ResetAfterLiquidation обнуляет задействованную маржу и зачисляет
// реализованный результат зачистки. Equity выравнивается по новому балансу:
// открытых позиций после ликвидации не остаётся.
func (r *AccountRepository) ResetAfterLiquidation(accountID int, realizedPnl float64) error {
	query := `
		UPDATE accounts
		SET margin_used = 0,
		    balance = balance + $1,
		    equity = balance + $1,
		    updated_at = NOW()
		WHERE id = $2`

	result, err := r.db.Exec(query, realizedPnl, accountID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrAccountNotFound
	}

	return nil
}
