package exchange

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"margintrade/internal/config"
	"margintrade/internal/models"
	"margintrade/pkg/utils"
)

// Быстрый декодер для горячего пути стрима
var jsonFast = jsoniter.ConfigCompatibleWithStandardLibrary

// QuoteListener - слушатель котировок одного символа
type QuoteListener func(quote models.Quote)

// StreamHub мультиплексирует стриминговые котировки апстрима
//
// Назначение:
// На каждый нормализованный символ держит не более одного апстрим-соединения
// (topic "<symbol-lowercase>@bookTicker") и раздаёт кадры всем внутренним
// слушателям. Слушатели reference-counted: последний отписавшийся закрывает
// соединение символа.
//
// Гарантии:
// - порядок кадров сохраняется per-symbol (единственная горутина чтения,
//   синхронная раздача); межсимвольный порядок не гарантируется
// - битые кадры отбрасываются молча
// - паника слушателя изолируется и не валит хаб
// - разрыв соединения лечится exponential backoff 300ms..5s
type StreamHub struct {
	wsBaseURL string
	wsConfig  WSReconnectConfig

	mu      sync.Mutex
	streams map[string]*symbolStream
	closed  bool

	// Хук переподключений для метрик; может быть nil
	onReconnect func(symbol string)
}

// symbolStream - одно апстрим-соединение и его слушатели
type symbolStream struct {
	symbol  string
	manager *WSReconnectManager

	mu        sync.RWMutex
	listeners map[int]QuoteListener
	nextID    int
}

// bookTickerFrame - кадр стрима top-of-book
type bookTickerFrame struct {
	Symbol string `json:"s"`
	Bid    string `json:"b"`
	Ask    string `json:"a"`
}

// NewStreamHub создает хаб стриминговых котировок
func NewStreamHub(cfg config.UpstreamConfig) *StreamHub {
	wsCfg := DefaultWSReconnectConfig()
	wsCfg.InitialDelay = cfg.WSBackoffInitial
	wsCfg.MaxDelay = cfg.WSBackoffMax

	return &StreamHub{
		wsBaseURL: cfg.WSBaseURL,
		wsConfig:  wsCfg,
		streams:   make(map[string]*symbolStream),
	}
}

// SetReconnectHook устанавливает callback, вызываемый при разрыве
// соединения символа. Используется метриками движка.
func (h *StreamHub) SetReconnectHook(hook func(symbol string)) {
	h.mu.Lock()
	h.onReconnect = hook
	h.mu.Unlock()
}

// Subscribe регистрирует слушателя котировок символа.
//
// Возвращает функцию отписки. Первая подписка на символ открывает
// апстрим-соединение, последняя отписка закрывает его. Отписка идемпотентна.
func (h *StreamHub) Subscribe(symbol string, listener func(models.Quote)) (func(), error) {
	normalized := NormalizeSymbol(symbol)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, fmt.Errorf("stream hub is closed")
	}

	stream, ok := h.streams[normalized]
	if !ok {
		stream = h.openStream(normalized)
		h.streams[normalized] = stream
	}

	// Регистрация под h.mu: гоночная отписка последнего слушателя не может
	// закрыть соединение между выбором стрима и добавлением нового слушателя
	stream.mu.Lock()
	id := stream.nextID
	stream.nextID++
	stream.listeners[id] = listener
	stream.mu.Unlock()
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.removeListener(normalized, id)
		})
	}
	return unsubscribe, nil
}

// openStream открывает апстрим-соединение для символа.
// Вызывается под h.mu.
func (h *StreamHub) openStream(symbol string) *symbolStream {
	stream := &symbolStream{
		symbol:    symbol,
		listeners: make(map[int]QuoteListener),
	}

	url := h.wsBaseURL + "/" + StreamTopic(symbol)
	manager := NewWSReconnectManager(symbol, url, h.wsConfig)
	manager.SetOnMessage(stream.dispatch)
	manager.SetOnDisconnect(func(err error) {
		h.mu.Lock()
		hook := h.onReconnect
		h.mu.Unlock()
		if hook != nil {
			hook(symbol)
		}
	})
	stream.manager = manager

	// Неудачное первое подключение лечится тем же reconnect-циклом,
	// что и разрыв установленного соединения
	if err := manager.Connect(); err != nil {
		utils.Warn("initial stream connect failed",
			utils.Symbol(symbol), utils.Err(err))
		go manager.reconnectLoop()
	}

	return stream
}

// removeListener удаляет слушателя; при опустевшем наборе закрывает
// соединение символа
func (h *StreamHub) removeListener(symbol string, id int) {
	h.mu.Lock()
	stream, ok := h.streams[symbol]
	if !ok {
		h.mu.Unlock()
		return
	}

	stream.mu.Lock()
	delete(stream.listeners, id)
	empty := len(stream.listeners) == 0
	stream.mu.Unlock()

	if empty {
		delete(h.streams, symbol)
	}
	h.mu.Unlock()

	if empty {
		stream.manager.Close()
	}
}

// ActiveSymbols возвращает символы с открытыми соединениями
func (h *StreamHub) ActiveSymbols() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	symbols := make([]string, 0, len(h.streams))
	for s := range h.streams {
		symbols = append(symbols, s)
	}
	return symbols
}

// ListenerCount возвращает число слушателей символа (для тестов и метрик)
func (h *StreamHub) ListenerCount(symbol string) int {
	h.mu.Lock()
	stream, ok := h.streams[NormalizeSymbol(symbol)]
	h.mu.Unlock()

	if !ok {
		return 0
	}

	stream.mu.RLock()
	defer stream.mu.RUnlock()
	return len(stream.listeners)
}

// Close закрывает все соединения хаба.
// Последующие Subscribe возвращают ошибку.
func (h *StreamHub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	streams := make([]*symbolStream, 0, len(h.streams))
	for _, s := range h.streams {
		streams = append(streams, s)
	}
	h.streams = make(map[string]*symbolStream)
	h.mu.Unlock()

	for _, s := range streams {
		s.manager.Close()
	}
}

// dispatch разбирает кадр стрима и раздаёт котировку слушателям.
// Вызывается синхронно из горутины чтения соединения, что сохраняет
// порядок кадров per-symbol.
func (s *symbolStream) dispatch(data []byte) {
	var frame bookTickerFrame
	if err := jsonFast.Unmarshal(data, &frame); err != nil {
		// Битый кадр отбрасывается, фид продолжает жить
		return
	}

	bid, errBid := strconv.ParseFloat(frame.Bid, 64)
	ask, errAsk := strconv.ParseFloat(frame.Ask, 64)
	if errBid != nil || errAsk != nil {
		return
	}
	if !utils.IsFinitePositive(bid) || !utils.IsFinitePositive(ask) {
		return
	}

	quote := models.Quote{
		Bid:         bid,
		Ask:         ask,
		TimestampMs: time.Now().UnixMilli(),
	}

	s.mu.RLock()
	listeners := make([]QuoteListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	for _, listener := range listeners {
		s.safeNotify(listener, quote)
	}
}

// safeNotify вызывает слушателя с изоляцией паники
func (s *symbolStream) safeNotify(listener QuoteListener, quote models.Quote) {
	defer func() {
		if r := recover(); r != nil {
			utils.Error("quote listener panic",
				utils.Symbol(s.symbol), utils.Any("panic", r))
		}
	}()
	listener(quote)
}
