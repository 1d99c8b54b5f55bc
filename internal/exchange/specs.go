package exchange

import (
	"math"
	"strings"

	"margintrade/internal/models"
	"margintrade/pkg/utils"
)

// specs.go - спецификации контрактов инструментов
//
// Назначение:
// Статический справочник symbol -> ContractSpec. Определяется при старте,
// неизменяем, разрешение выполняется на каждый запрос. Lookup тотален:
// неизвестный символ получает дефолтную FX-спецификацию, функция никогда
// не падает.

// Семейства инструментов
const (
	FamilyCrypto  = "crypto"
	FamilyMetals  = "metals"
	FamilyIndices = "indices"
	FamilyFX      = "fx"
)

// lotTolerance - допуск при проверке кратности лота шагу.
// Дробные лоты типа 0.07 при шаге 0.01 не представимы в float64 точно.
const lotTolerance = 1e-8

// cryptoMajors - крипто-инструменты с повышенным абсолютным floor спреда
var cryptoMajors = map[string]bool{
	"BTCUSDT": true,
	"ETHUSDT": true,
}

// cryptoPrefixes - базовые активы крипто-семейства
var cryptoPrefixes = []string{"BTC", "ETH", "SOL", "XRP", "ADA", "DOGE", "LTC", "BNB", "DOT", "AVAX"}

// metalPrefixes - драгоценные металлы
var metalPrefixes = []string{"XAU", "XAG", "XPT", "XPD"}

// indexPrefixes - фондовые индексы CFD
var indexPrefixes = []string{"US30", "US500", "NAS100", "GER40", "UK100", "JPN225"}

// familySpecs - спецификация контракта по семейству
var familySpecs = map[string]models.ContractSpec{
	FamilyCrypto: {
		ContractSize:     1,
		MinLot:           0.01,
		StepLot:          0.01,
		MaxLot:           100,
		Digits:           2,
		CommissionPerLot: 0,
	},
	FamilyMetals: {
		ContractSize:     100,
		MinLot:           0.01,
		StepLot:          0.01,
		MaxLot:           50,
		Digits:           2,
		CommissionPerLot: 4,
	},
	FamilyIndices: {
		ContractSize:     10,
		MinLot:           0.1,
		StepLot:          0.1,
		MaxLot:           100,
		Digits:           1,
		CommissionPerLot: 2,
	},
	// Дефолт для неизвестных символов: стандартный FX-контракт
	FamilyFX: {
		ContractSize:     100000,
		MinLot:           0.01,
		StepLot:          0.01,
		MaxLot:           100,
		Digits:           5,
		CommissionPerLot: 7,
	},
}

// SymbolFamily определяет семейство инструмента по нормализованному символу.
// Неизвестные символы относятся к FX.
func SymbolFamily(symbol string) string {
	s := NormalizeSymbol(symbol)

	for _, p := range metalPrefixes {
		if strings.HasPrefix(s, p) {
			return FamilyMetals
		}
	}
	for _, p := range indexPrefixes {
		if strings.HasPrefix(s, p) {
			return FamilyIndices
		}
	}
	for _, p := range cryptoPrefixes {
		if strings.HasPrefix(s, p) {
			return FamilyCrypto
		}
	}
	return FamilyFX
}

// IsCryptoMajor возвращает true для крипто-мажоров (BTC, ETH).
// Мажоры получают повышенный абсолютный floor синтетического спреда.
func IsCryptoMajor(symbol string) bool {
	return cryptoMajors[NormalizeSymbol(symbol)]
}

// GetSpec возвращает спецификацию контракта для символа.
// Функция тотальна: для любого входа возвращается валидная спецификация.
func GetSpec(symbol string) models.ContractSpec {
	return familySpecs[SymbolFamily(symbol)]
}

// IsValidLot проверяет объём против лимитов контракта.
//
// Объём валиден если:
//   - min <= lots <= max
//   - (lots - min) / step с допуском 1e-8 является целым числом шагов
//
// Примеры:
//   - IsValidLot(0.07, 0.01, 0.01, 100) = true  (6 шагов от минимума)
//   - IsValidLot(0.015, 0.01, 0.01, 100) = false (половина шага)
func IsValidLot(lots, min, step, max float64) bool {
	if lots < min || lots > max {
		return false
	}
	if step <= 0 {
		return lots == min
	}

	steps := utils.StepsFromMin(lots, min, step)
	return math.Abs(steps-math.Round(steps)) <= lotTolerance
}
