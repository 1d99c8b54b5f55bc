package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// validator.go - валидация входных данных
//
// Назначение:
// Проверка корректности параметров торговых запросов до обращения
// к сервисному слою.
//
// Функции:
// - ValidateSymbol: проверка формата символа (BTCUSDT, BTC/USD)
// - ValidateSide: проверка направления (buy/sell)
// - ValidateLots: базовая проверка объёма (> 0, конечный)
//
// Возвращает error с описанием проблемы или nil

// Символ: буквы/цифры, опциональный разделитель "/", 5-20 символов
var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9]{2,12}/?[A-Za-z0-9]{2,8}$`)

// ValidateSymbol проверяет формат торгового символа.
//
// Допустимые формы: "BTCUSDT", "btcusdt", "BTC/USD", "EURUSD".
// Нормализация регистра и разделителя выполняется дальше по стеку.
func ValidateSymbol(symbol string) error {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %q", symbol)
	}
	return nil
}

// ValidateSide проверяет направление позиции
func ValidateSide(side string) error {
	switch strings.ToLower(side) {
	case "buy", "sell":
		return nil
	default:
		return fmt.Errorf("side must be buy or sell, got %q", side)
	}
}

// ValidateLots проверяет, что объём является валидным положительным числом.
// Проверка кратности шагу лота выполняется в сервисном слое по спецификации
// контракта.
func ValidateLots(lots float64) error {
	if !IsFinitePositive(lots) {
		return fmt.Errorf("lots must be a positive finite number, got %v", lots)
	}
	return nil
}
