package exchange

import (
	"errors"
	"fmt"
)

// Ошибки апстрим-источника котировок
var (
	// ErrUpstreamUnavailable - источник недоступен: non-2xx ответ, таймаут,
	// транспортная ошибка или невалидные bid/ask в ответе
	ErrUpstreamUnavailable = errors.New("upstream quote source unavailable")
)

// UpstreamError содержит контекст ошибки апстрима.
// Оборачивает ErrUpstreamUnavailable, так что errors.Is работает на любом
// уровне стека.
type UpstreamError struct {
	Op      string // операция: topOfBook, stream
	Symbol  string
	Status  int // HTTP статус, 0 если не применимо
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream %s %s: status %d: %s", e.Op, e.Symbol, e.Status, e.Message)
	}
	return fmt.Sprintf("upstream %s %s: %s", e.Op, e.Symbol, e.Message)
}

// Unwrap возвращает обёрнутую ошибку для поддержки errors.Is() и errors.As()
func (e *UpstreamError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUpstreamUnavailable
}

func newUpstreamError(op, symbol string, status int, message string) *UpstreamError {
	return &UpstreamError{
		Op:      op,
		Symbol:  symbol,
		Status:  status,
		Message: message,
		Err:     ErrUpstreamUnavailable,
	}
}
