package exchange

import (
	"context"
	"time"

	"margintrade/internal/config"
	"margintrade/internal/models"
	"margintrade/pkg/utils"
)

// Normalizer строит дилерскую котировку из сырого top-of-book
//
// Назначение:
// Применяет к сырой котировке синтетический спред: процентный полуспред
// с абсолютным floor по семейству инструмента. Дилерская котировка всегда
// шире сырой, ask > bid строго.
//
// Алгоритм:
//
//	mid  = (rawBid + rawAsk) / 2
//	pct  = mid * spreadBps / 10000
//	half = max(pct, floor) / 2
//	bid  = round8(mid - half), ask = round8(mid + half)
//
// Если округление схлопывает ask <= bid, стороны принудительно разводятся
// на минимальную единицу котировки.
//
// Stateless: состояния между вызовами нет, кеширование выполняет caller.
type Normalizer struct {
	source RawQuoteSource

	spreadBps    float64
	floorMajors  float64
	floorDefault float64
}

// RawQuoteSource - источник сырого top-of-book (REST-клиент или кеш)
type RawQuoteSource interface {
	RawTopOfBook(ctx context.Context, symbol string) (*RawQuote, error)
}

// minQuoteUnit - минимальная единица котировки после округления до 8 знаков
const minQuoteUnit = 1e-8

// NewNormalizer создает нормализатор котировок
func NewNormalizer(source RawQuoteSource, cfg config.TradingConfig) *Normalizer {
	return &Normalizer{
		source:       source,
		spreadBps:    cfg.SpreadBps,
		floorMajors:  cfg.FloorMajors,
		floorDefault: cfg.FloorDefault,
	}
}

// GetTopOfBook возвращает дилерскую котировку для символа.
//
// Ошибки: ErrUpstreamUnavailable если сырой фид недоступен или вернул
// неконечные/неположительные цены.
func (n *Normalizer) GetTopOfBook(ctx context.Context, symbol string) (*models.Quote, error) {
	raw, err := n.source.RawTopOfBook(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if !utils.IsFinitePositive(raw.Bid) || !utils.IsFinitePositive(raw.Ask) {
		return nil, newUpstreamError("topOfBook", raw.Symbol, 0, "non-finite or non-positive raw bid/ask")
	}

	quote := n.Apply(raw)
	return quote, nil
}

// Apply применяет синтетический спред к сырой котировке.
// Выделено из GetTopOfBook: стриминговый путь применяет спред к кадрам
// стрима без повторного REST-запроса.
func (n *Normalizer) Apply(raw *RawQuote) *models.Quote {
	mid := (raw.Bid + raw.Ask) / 2

	pct := mid * n.spreadBps / 10000
	floor := n.floorFor(raw.Symbol)
	spread := pct
	if floor > spread {
		spread = floor
	}
	half := spread / 2

	bid := utils.Round8(mid - half)
	ask := utils.Round8(mid + half)

	// Округление может схлопнуть стороны на инструментах с крупной ценой
	if ask <= bid {
		ask = utils.Round8(bid + minQuoteUnit)
	}

	return &models.Quote{
		Bid:         bid,
		Ask:         ask,
		TimestampMs: time.Now().UnixMilli(),
	}
}

// floorFor возвращает абсолютный floor спреда для символа.
// Крипто-мажоры получают повышенный floor, остальные инструменты дефолтный.
func (n *Normalizer) floorFor(symbol string) float64 {
	if IsCryptoMajor(symbol) {
		return n.floorMajors
	}
	return n.floorDefault
}
