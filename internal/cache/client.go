// Package cache реализует короткоживущий кэш котировок поверх Redis.
//
// Назначение:
// - снижать нагрузку на REST-апстрим при всплесках заявок по одному символу
// - переживать рестарт сервиса без холодного старта по популярным символам
//
// Кэш опционален: при пустом REDIS_ADDR сервис работает напрямую с апстримом.
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"margintrade/internal/config"
)

// Client оборачивает go-redis клиент и проверяет доступность при создании
type Client struct {
	rdb *redis.Client
}

// NewClient создаёт подключение к Redis и проверяет его ping-ом
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Ping проверяет соединение с Redis
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close закрывает соединение
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Underlying возвращает сырой *redis.Client
func (c *Client) Underlying() *redis.Client {
	return c.rdb
}
