package utils

import (
	"math"
)

// math.go - математические утилиты для маржинальной торговли
//
// Назначение:
// Вспомогательные математические функции для торговых операций.
// Все функции являются чистыми (pure functions) без побочных эффектов.
//
// Функции:
// - Tick: минимальный шаг цены инструмента
// - RoundToTick: округление цены до тика инструмента
// - Round2 / Round8: денежное и котировочное округление
// - IsFinitePositive: проверка валидности цены
// - GrossPnL: нереализованная/реализованная прибыль позиции
// - DriftBps: отклонение двух цен в базисных пунктах

// Tick возвращает минимальный шаг цены инструмента.
//
// Тик определяется точностью котировки: tick = 10^-digits.
//
// Параметры:
//   - digits: количество знаков после запятой в цене инструмента
//
// Возвращает:
//   - Минимальный шаг цены
//   - Если digits < 0, возвращает 1
//
// Примеры:
//   - Tick(5) = 0.00001 (FX)
//   - Tick(2) = 0.01 (металлы, крипта в USD)
//   - Tick(0) = 1.0
func Tick(digits int) float64 {
	if digits < 0 {
		return 1
	}
	return math.Pow(10, -float64(digits))
}

// RoundToTick округляет цену к ближайшему кратному тика инструмента.
//
// Используется для приведения клиентской цены к авторитетной цене входа
// и котировки к цене закрытия.
//
// Параметры:
//   - price: исходная цена
//   - digits: точность инструмента
//
// Возвращает:
//   - Цену, кратную 10^-digits
//
// Примеры:
//   - RoundToTick(1.234567, 5) = 1.23457
//   - RoundToTick(59999.994, 2) = 59999.99
func RoundToTick(price float64, digits int) float64 {
	factor := math.Pow(10, float64(digits))
	return math.Round(price*factor) / factor
}

// Round2 округляет денежную величину до 2 знаков.
//
// Все денежные результаты (PnL, маржа, комиссия) хранятся с точностью
// до цента.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round8 округляет котировку до 8 знаков.
//
// Стандартная точность синтетических котировок до применения тика
// инструмента.
func Round8(v float64) float64 {
	return math.Round(v*1e8) / 1e8
}

// IsFinitePositive проверяет, что значение является валидной ценой.
//
// Цена валидна если она конечна (не NaN, не Inf) и строго положительна.
// Используется при валидации клиентской цены и сырых котировок фида.
func IsFinitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// GrossPnL вычисляет валовую прибыль позиции.
//
// Формула:
//
//	buy:  (close - entry) × contractSize × lots
//	sell: (entry - close) × contractSize × lots
//
// Параметры:
//   - entry: цена входа
//   - close: цена закрытия (или текущая котировка для нереализованного PnL)
//   - contractSize: единиц базового актива в одном лоте
//   - lots: объём позиции в лотах
//   - buy: true для длинной позиции
//
// Возвращает:
//   - Валовую прибыль БЕЗ вычета комиссий и БЕЗ денежного округления
//
// Примеры:
//   - GrossPnL(100, 110, 1, 1, true) = 10
//   - GrossPnL(100, 110, 1, 1, false) = -10
func GrossPnL(entry, close, contractSize, lots float64, buy bool) float64 {
	diff := close - entry
	if !buy {
		diff = -diff
	}
	return diff * contractSize * lots
}

// DriftBps вычисляет отклонение цены от референсной в базисных пунктах.
//
// Используется для проверки дрейфа клиентской цены относительно живой
// котировки и для проверки slippage-лимита.
//
// Параметры:
//   - price: проверяемая цена
//   - reference: референсная цена (живая котировка торгуемой стороны)
//
// Возвращает:
//   - Абсолютное отклонение в bps (1 bps = 0.01%)
//   - 0 если reference <= 0
//
// Примеры:
//   - DriftBps(100.5, 100.0) = 50
//   - DriftBps(100.0, 100.0) = 0
func DriftBps(price, reference float64) float64 {
	if reference <= 0 {
		return 0
	}
	return math.Abs(price-reference) / reference * 10000
}

// StepsFromMin возвращает количество шагов лота от минимального объёма.
//
// Вспомогательная функция для валидации лота: объём валиден, если
// (lots - min) / step отличается от целого не более чем на допуск.
//
// Параметры:
//   - lots: проверяемый объём
//   - min: минимальный лот
//   - step: шаг лота
//
// Возвращает:
//   - Дробное количество шагов; вызывающий сравнивает с округлением
//   - 0 если step <= 0
func StepsFromMin(lots, min, step float64) float64 {
	if step <= 0 {
		return 0
	}
	return (lots - min) / step
}
