package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"margintrade/internal/config"
	"margintrade/pkg/ratelimit"
)

// Client - REST-клиент апстрим-источника котировок
//
// Назначение:
// Точечные запросы top-of-book для order entry и ликвидационного свипа.
// Стриминговые подписки обслуживает StreamHub, не клиент.
//
// Все запросы идут через rate limiter и ограничены таймаутом из
// конфигурации. Non-2xx ответ, транспортная ошибка и невалидные цены
// нормализуются в ErrUpstreamUnavailable.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.RateLimiter
	timeout    time.Duration
}

// RawQuote - сырая котировка top-of-book до применения синтетического спреда
type RawQuote struct {
	Symbol string
	Bid    float64
	Ask    float64
}

// bookTickerResponse - формат ответа /api/v3/ticker/bookTicker
type bookTickerResponse struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	BidQty   string `json:"bidQty"`
	AskPrice string `json:"askPrice"`
	AskQty   string `json:"askQty"`
}

// NewClient создает REST-клиент апстрима.
// Использует глобальный HTTP клиент с connection pooling.
func NewClient(cfg config.UpstreamConfig) *Client {
	return &Client{
		baseURL:    cfg.RESTBaseURL,
		httpClient: GetGlobalHTTPClient().GetClient(),
		limiter:    ratelimit.NewRateLimiter(cfg.RESTRate, cfg.RESTBurst),
		timeout:    cfg.QuoteTimeout,
	}
}

// RawTopOfBook запрашивает сырой top-of-book для символа.
// Символ нормализуется внутри; вызывающий может передавать любое написание.
func (c *Client) RawTopOfBook(ctx context.Context, symbol string) (*RawQuote, error) {
	normalized := NormalizeSymbol(symbol)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &UpstreamError{Op: "topOfBook", Symbol: normalized, Message: "rate limiter: " + err.Error(), Err: ErrUpstreamUnavailable}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	query := url.Values{}
	query.Set("symbol", normalized)
	reqURL := c.baseURL + "/api/v3/ticker/bookTicker?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: "topOfBook", Symbol: normalized, Message: err.Error(), Err: ErrUpstreamUnavailable}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, &UpstreamError{Op: "topOfBook", Symbol: normalized, Message: "read body: " + err.Error(), Err: ErrUpstreamUnavailable}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newUpstreamError("topOfBook", normalized, resp.StatusCode, string(body))
	}

	var ticker bookTickerResponse
	if err := json.Unmarshal(body, &ticker); err != nil {
		return nil, &UpstreamError{Op: "topOfBook", Symbol: normalized, Message: "decode: " + err.Error(), Err: ErrUpstreamUnavailable}
	}

	bid, errBid := strconv.ParseFloat(ticker.BidPrice, 64)
	ask, errAsk := strconv.ParseFloat(ticker.AskPrice, 64)
	if errBid != nil || errAsk != nil {
		return nil, newUpstreamError("topOfBook", normalized, 0, "non-numeric bid/ask in response")
	}

	return &RawQuote{Symbol: normalized, Bid: bid, Ask: ask}, nil
}
