package utils

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger.go - структурированное логирование на базе zap
//
// Назначение:
// Инициализация и настройка структурированного логирования.
//
// Функции:
// - InitLogger: создать и настроить logger
//   * Выбор формата (JSON, text)
//   * Уровни: DEBUG, INFO, WARN, ERROR
//   * Вывод в файл или консоль
// - Глобальный логгер для пакетов без явной инъекции
// - Доменные конструкторы полей (symbol, position_id, pnl и т.д.)

// LogConfig - конфигурация логгера
type LogConfig struct {
	// Уровень: debug, info, warn, error, fatal
	Level string

	// Формат: json или text
	Format string

	// Путь к файлу вывода; пусто = stderr
	Output string

	// Development включает caller и stacktrace на warn+
	Development bool
}

// Logger - обёртка над zap.Logger с sugared-вариантом для printf-стиля
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

var (
	globalMu     sync.Mutex
	globalLogger *Logger
)

// parseLevel преобразует строковый уровень в zapcore.Level.
// Неизвестные значения дают InfoLevel.
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger создает настроенный логгер.
//
// При невозможности открыть файл вывода происходит fallback на stderr,
// паники нет.
func InitLogger(config LogConfig) *Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if strings.ToLower(config.Format) == "text" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	sink := zapcore.AddSync(os.Stderr)
	if config.Output != "" {
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			sink = zapcore.AddSync(file)
		}
	}

	core := zapcore.NewCore(encoder, sink, parseLevel(config.Level))

	opts := []zap.Option{}
	if config.Development {
		opts = append(opts, zap.Development(), zap.AddCaller())
	}

	zl := zap.New(core, opts...)
	return &Logger{
		Logger: zl,
		sugar:  zl.Sugar(),
	}
}

// InitGlobalLogger создает логгер и устанавливает его глобальным
func InitGlobalLogger(config LogConfig) *Logger {
	logger := InitLogger(config)
	SetGlobalLogger(logger)
	return logger
}

// SetGlobalLogger устанавливает глобальный логгер
func SetGlobalLogger(logger *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// GetGlobalLogger возвращает глобальный логгер.
// Если логгер не инициализирован, создается логгер по умолчанию (info, json).
func GetGlobalLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		zl := zap.New(zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(os.Stderr),
			zapcore.InfoLevel,
		))
		globalLogger = &Logger{Logger: zl, sugar: zl.Sugar()}
	}
	return globalLogger
}

// L - короткий алиас для GetGlobalLogger
func L() *Logger {
	return GetGlobalLogger()
}

// With возвращает новый логгер с дополнительными полями
func (l *Logger) With(fields ...zap.Field) *Logger {
	zl := l.Logger.With(fields...)
	return &Logger{Logger: zl, sugar: zl.Sugar()}
}

// Sugar возвращает sugared-логгер для printf-стиля
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// ============================================================
// Хелперы для типовых контекстов
// ============================================================

// WithComponent возвращает логгер с полем component
func (l *Logger) WithComponent(component string) *Logger {
	return l.With(zap.String("component", component))
}

// WithSymbol возвращает логгер с полем symbol
func (l *Logger) WithSymbol(symbol string) *Logger {
	return l.With(zap.String("symbol", symbol))
}

// WithAccountID возвращает логгер с полем account_id
func (l *Logger) WithAccountID(accountID int) *Logger {
	return l.With(zap.Int("account_id", accountID))
}

// WithPositionID возвращает логгер с полем position_id
func (l *Logger) WithPositionID(positionID string) *Logger {
	return l.With(zap.String("position_id", positionID))
}

// ============================================================
// Глобальные функции логирования
// ============================================================

func Debug(msg string, fields ...zap.Field) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { GetGlobalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { GetGlobalLogger().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { GetGlobalLogger().Fatal(msg, fields...) }

func Debugf(template string, args ...interface{}) { GetGlobalLogger().sugar.Debugf(template, args...) }
func Infof(template string, args ...interface{})  { GetGlobalLogger().sugar.Infof(template, args...) }
func Warnf(template string, args ...interface{})  { GetGlobalLogger().sugar.Warnf(template, args...) }
func Errorf(template string, args ...interface{}) { GetGlobalLogger().sugar.Errorf(template, args...) }

// ============================================================
// Доменные конструкторы полей
// ============================================================

// Symbol - поле торгового символа
func Symbol(symbol string) zap.Field { return zap.String("symbol", symbol) }

// AccountID - поле идентификатора счета
func AccountID(id int) zap.Field { return zap.Int("account_id", id) }

// PositionID - поле идентификатора позиции
func PositionID(id string) zap.Field { return zap.String("position_id", id) }

// Price - поле цены
func Price(price float64) zap.Field { return zap.Float64("price", price) }

// Lots - поле объёма в лотах
func Lots(lots float64) zap.Field { return zap.Float64("lots", lots) }

// PNL - поле прибыли/убытка
func PNL(pnl float64) zap.Field { return zap.Float64("pnl", pnl) }

// Side - поле направления позиции (buy/sell)
func Side(side string) zap.Field { return zap.String("side", side) }

// Reason - поле причины закрытия (manual/takeProfit/liquidation)
func Reason(reason string) zap.Field { return zap.String("reason", reason) }

// Equity - поле эквити счета
func Equity(equity float64) zap.Field { return zap.Float64("equity", equity) }

// Component - поле компонента системы
func Component(name string) zap.Field { return zap.String("component", name) }

// Latency - поле задержки в миллисекундах
func Latency(ms float64) zap.Field { return zap.Float64("latency_ms", ms) }

// RequestID - поле идентификатора запроса
func RequestID(id string) zap.Field { return zap.String("request_id", id) }

// ============================================================
// Переэкспорт стандартных конструкторов zap
// ============================================================

func String(key, value string) zap.Field        { return zap.String(key, value) }
func Int(key string, value int) zap.Field       { return zap.Int(key, value) }
func Int64(key string, value int64) zap.Field   { return zap.Int64(key, value) }
func Float64(key string, v float64) zap.Field   { return zap.Float64(key, v) }
func Bool(key string, value bool) zap.Field     { return zap.Bool(key, value) }
func Err(err error) zap.Field                   { return zap.Error(err) }
func Any(key string, value interface{}) zap.Field { return zap.Any(key, value) }
