package bot

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики движка тейк-профитов
// ============================================================
//
// Использование:
// - Grafana дашборды для визуализации
// - Alertmanager для алертов (застрявшие перестройки, рост пропусков тиков)

// ============ Счётчики событий ============

// TicksEvaluated - количество котировок, проверенных против триггеров
var TicksEvaluated = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "margintrade",
		Subsystem: "engine",
		Name:      "ticks_evaluated_total",
		Help:      "Total number of quotes evaluated against take profit triggers",
	},
	[]string{"symbol"},
)

// TicksSkipped - котировки, пропущенные из-за идущей проверки по символу
var TicksSkipped = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "margintrade",
		Subsystem: "engine",
		Name:      "ticks_skipped_total",
		Help:      "Quotes skipped because a trigger check was already running for the symbol",
	},
	[]string{"symbol"},
)

// TakeProfitCloses - успешные закрытия по тейк-профиту
var TakeProfitCloses = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "margintrade",
		Subsystem: "engine",
		Name:      "take_profit_closes_total",
		Help:      "Total number of positions closed by take profit",
	},
	[]string{"symbol"},
)

// ============ Метрики перестройки ============

// RebuildDuration - длительность перестройки рабочего набора
var RebuildDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "margintrade",
		Subsystem: "engine",
		Name:      "rebuild_duration_ms",
		Help:      "Working set rebuild duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	},
)

// WorkingSetPositions - размер рабочего набора
var WorkingSetPositions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "margintrade",
		Subsystem: "engine",
		Name:      "working_set_positions",
		Help:      "Number of open positions tracked for take profit",
	},
)

// WorkingSetSymbols - количество символов с активными подписками
var WorkingSetSymbols = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "margintrade",
		Subsystem: "engine",
		Name:      "working_set_symbols",
		Help:      "Number of symbols with an active quote stream subscription",
	},
)

// ============ Метрики стрима ============

// StreamReconnects - переподключения стрима котировок
var StreamReconnects = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "margintrade",
		Subsystem: "stream",
		Name:      "reconnects_total",
		Help:      "Total number of quote stream reconnects",
	},
	[]string{"symbol"},
)

// ============ Вспомогательные функции ============

// RecordTickEvaluated записывает проверенную котировку
func RecordTickEvaluated(symbol string) {
	TicksEvaluated.WithLabelValues(symbol).Inc()
}

// RecordTickSkipped записывает пропущенную котировку
func RecordTickSkipped(symbol string) {
	TicksSkipped.WithLabelValues(symbol).Inc()
}

// RecordTakeProfitClose записывает закрытие по тейк-профиту
func RecordTakeProfitClose(symbol string) {
	TakeProfitCloses.WithLabelValues(symbol).Inc()
}

// RecordStreamReconnect записывает переподключение стрима
func RecordStreamReconnect(symbol string) {
	StreamReconnects.WithLabelValues(symbol).Inc()
}

// ObserveRebuild записывает результат перестройки рабочего набора
func ObserveRebuild(duration time.Duration, positions, symbols int) {
	RebuildDuration.Observe(float64(duration.Milliseconds()))
	WorkingSetPositions.Set(float64(positions))
	WorkingSetSymbols.Set(float64(symbols))
}
