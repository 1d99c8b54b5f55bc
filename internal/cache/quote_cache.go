package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"margintrade/internal/models"
)

// ErrCacheMiss - котировки нет в кэше или она истекла
var ErrCacheMiss = errors.New("quote cache miss")

// QuoteCache хранит нормализованные котировки в Redis-хэшах с коротким TTL.
// Ключ "quote:{SYMBOL}", поля bid, ask, ts (unix миллисекунды).
type QuoteCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewQuoteCache создаёт кэш поверх существующего клиента
func NewQuoteCache(c *Client, ttl time.Duration) *QuoteCache {
	if ttl <= 0 {
		ttl = 500 * time.Millisecond
	}
	return &QuoteCache{rdb: c.Underlying(), ttl: ttl}
}

func quoteKey(symbol string) string {
	return "quote:" + symbol
}

// Set сохраняет котировку с TTL кэша
func (qc *QuoteCache) Set(ctx context.Context, symbol string, quote *models.Quote) error {
	key := quoteKey(symbol)
	fields := map[string]interface{}{
		"bid": strconv.FormatFloat(quote.Bid, 'f', -1, 64),
		"ask": strconv.FormatFloat(quote.Ask, 'f', -1, 64),
		"ts":  strconv.FormatInt(quote.TimestampMs, 10),
	}

	pipe := qc.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, qc.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", symbol, err)
	}
	return nil
}

// Get возвращает котировку или ErrCacheMiss
func (qc *QuoteCache) Get(ctx context.Context, symbol string) (*models.Quote, error) {
	vals, err := qc.rdb.HGetAll(ctx, quoteKey(symbol)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get quote %s: %w", symbol, err)
	}
	if len(vals) == 0 {
		return nil, ErrCacheMiss
	}

	bid, err := strconv.ParseFloat(vals["bid"], 64)
	if err != nil {
		return nil, ErrCacheMiss
	}
	ask, err := strconv.ParseFloat(vals["ask"], 64)
	if err != nil {
		return nil, ErrCacheMiss
	}
	ts, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return nil, ErrCacheMiss
	}

	return &models.Quote{Bid: bid, Ask: ask, TimestampMs: ts}, nil
}

// QuoteProvider - источник актуальных котировок
type QuoteProvider interface {
	GetTopOfBook(ctx context.Context, symbol string) (*models.Quote, error)
}

// CachedQuoteProvider - декоратор над провайдером котировок: сначала кэш,
// при промахе поход в апстрим с best-effort записью результата.
// Ошибки Redis деградируют до прямого запроса, а не до отказа.
type CachedQuoteProvider struct {
	provider QuoteProvider
	cache    *QuoteCache
}

func NewCachedQuoteProvider(provider QuoteProvider, cache *QuoteCache) *CachedQuoteProvider {
	return &CachedQuoteProvider{provider: provider, cache: cache}
}

func (p *CachedQuoteProvider) GetTopOfBook(ctx context.Context, symbol string) (*models.Quote, error) {
	if quote, err := p.cache.Get(ctx, symbol); err == nil {
		return quote, nil
	}

	quote, err := p.provider.GetTopOfBook(ctx, symbol)
	if err != nil {
		return nil, err
	}

	_ = p.cache.Set(ctx, symbol, quote)
	return quote, nil
}

var _ QuoteProvider = (*CachedQuoteProvider)(nil)
