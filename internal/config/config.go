package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Security SecurityConfig
	Trading  TradingConfig
	Upstream UpstreamConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// RedisConfig - настройки кеша котировок
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	QuoteTTL time.Duration // TTL кешированной котировки; 0 = кеш выключен
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	// AdminToken - токен админских операций (принудительная ликвидация).
	// Может быть задан открытым значением (dev) или bcrypt-хешем (prod).
	AdminToken string
}

// TradingConfig - торговые параметры движка
type TradingConfig struct {
	// Синтетический спред
	SpreadBps        float64 // процентный полуспред в bps
	FloorMajors      float64 // абсолютный floor спреда для мажоров
	FloorDefault     float64 // абсолютный floor спреда для остальных
	PriceDriftBps    float64 // допустимый дрейф клиентской цены от котировки

	// Take-profit движок
	TPRebuildInterval time.Duration // период ребилда рабочего набора

	// Ликвидация
	StopOutFraction float64 // equity <= marginUsed * fraction => stop out; 0 = только equity <= 0
}

// UpstreamConfig - настройки апстрим-источника котировок
type UpstreamConfig struct {
	RESTBaseURL string
	WSBaseURL   string

	QuoteTimeout time.Duration // таймаут REST-запроса котировки

	// Reconnect стрима: экспоненциальный backoff
	WSBackoffInitial time.Duration
	WSBackoffMax     time.Duration

	// Rate limit REST-запросов
	RESTRate  float64
	RESTBurst float64
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения.
// Файл .env, если присутствует, подхватывается автоматически.
func Load() (*Config, error) {
	// .env необязателен, ошибка отсутствия файла игнорируется
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "margintrade"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			QuoteTTL: getEnvAsDuration("REDIS_QUOTE_TTL", 500*time.Millisecond),
		},
		Security: SecurityConfig{
			AdminToken: getEnv("ADMIN_TOKEN", ""),
		},
		Trading: TradingConfig{
			SpreadBps:         getEnvAsFloat("SPREAD_BPS", 2.0),
			FloorMajors:       getEnvAsFloat("SPREAD_FLOOR_MAJORS", 12.0),
			FloorDefault:      getEnvAsFloat("SPREAD_FLOOR_DEFAULT", 0.0002),
			PriceDriftBps:     getEnvAsFloat("PRICE_DRIFT_BPS", 50),
			TPRebuildInterval: getEnvAsDuration("TP_REBUILD_INTERVAL", 4*time.Second),
			StopOutFraction:   getEnvAsFloat("STOP_OUT_FRACTION", 0),
		},
		Upstream: UpstreamConfig{
			RESTBaseURL:      getEnv("UPSTREAM_REST_URL", "https://api.binance.com"),
			WSBaseURL:        getEnv("UPSTREAM_WS_URL", "wss://stream.binance.com:9443/ws"),
			QuoteTimeout:     getEnvAsDuration("QUOTE_TIMEOUT", 8*time.Second),
			WSBackoffInitial: getEnvAsDuration("WS_BACKOFF_INITIAL", 300*time.Millisecond),
			WSBackoffMax:     getEnvAsDuration("WS_BACKOFF_MAX", 5*time.Second),
			RESTRate:         getEnvAsFloat("UPSTREAM_REST_RATE", 10),
			RESTBurst:        getEnvAsFloat("UPSTREAM_REST_BURST", 20),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Trading.SpreadBps < 0 {
		return fmt.Errorf("SPREAD_BPS cannot be negative, got %v", c.Trading.SpreadBps)
	}

	if c.Trading.PriceDriftBps <= 0 {
		return fmt.Errorf("PRICE_DRIFT_BPS must be positive, got %v", c.Trading.PriceDriftBps)
	}

	if c.Trading.StopOutFraction < 0 || c.Trading.StopOutFraction >= 1 {
		return fmt.Errorf("STOP_OUT_FRACTION must be in [0, 1), got %v", c.Trading.StopOutFraction)
	}

	if c.Trading.TPRebuildInterval <= 0 {
		return fmt.Errorf("TP_REBUILD_INTERVAL must be positive, got %v", c.Trading.TPRebuildInterval)
	}

	if c.Upstream.QuoteTimeout <= 0 {
		return fmt.Errorf("QUOTE_TIMEOUT must be positive, got %v", c.Upstream.QuoteTimeout)
	}

	if c.Upstream.WSBackoffInitial <= 0 || c.Upstream.WSBackoffMax < c.Upstream.WSBackoffInitial {
		return fmt.Errorf("invalid WS backoff range: initial=%v max=%v",
			c.Upstream.WSBackoffInitial, c.Upstream.WSBackoffMax)
	}

	if !strings.HasPrefix(c.Upstream.WSBaseURL, "ws") {
		return fmt.Errorf("UPSTREAM_WS_URL must be a ws:// or wss:// URL, got %q", c.Upstream.WSBaseURL)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
