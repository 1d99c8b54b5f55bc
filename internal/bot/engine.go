package bot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"margintrade/internal/config"
	"margintrade/internal/models"
	"margintrade/internal/repository"
	"margintrade/pkg/utils"
)

// PositionSource - источник рабочего набора позиций
type PositionSource interface {
	GetOpenWithTakeProfit() ([]*models.Position, error)
}

// PositionCloser - закрытие позиции по рассчитанной цене
type PositionCloser interface {
	CloseAtPrice(position *models.Position, closePrice float64, reason string) (*models.Position, error)
}

// QuoteStream - подписка на потоковые котировки по символу
type QuoteStream interface {
	Subscribe(symbol string, listener func(models.Quote)) (func(), error)
}

// Engine - движок тейк-профитов (EVENT-DRIVEN архитектура)
//
// Назначение: автоматическое закрытие позиций при достижении тейк-профита
//
// Архитектура:
// - НЕТ polling котировок: каждая котировка из стрима мгновенно
//   проверяется против триггеров своего символа
// - Рабочий набор (позиции с тейк-профитом) перестраивается из БД
//   по таймеру: новые позиции подхватываются, закрытые выбывают
// - Подписки на стрим диффятся по рабочему набору: символ без позиций
//   отписывается, новый символ подписывается
//
// Конкурентность:
// - atomic-флаг на символ: пока идёт проверка триггеров по символу,
//   следующие котировки этого символа пропускаются без блокировки
// - оптимистичное удаление: позиция убирается из набора до закрытия;
//   если закрытие сорвалось, ближайшая перестройка вернёт её в набор
// - конкурирующее закрытие (ручное, ликвидация) даёт ErrPositionAlreadyClosed
//   и просто пропускается
type Engine struct {
	source PositionSource
	closer PositionCloser
	stream QuoteStream

	rebuildInterval time.Duration
	quoteTimeout    time.Duration

	// Рабочий набор по символам
	mu       sync.RWMutex
	working  map[string][]*models.Position
	unsubs   map[string]func()
	checking map[string]*int32

	cancel  context.CancelFunc
	done    chan struct{}
	started int32
}

// NewEngine создает новый движок тейк-профитов
func NewEngine(source PositionSource, closer PositionCloser, stream QuoteStream, cfg config.TradingConfig, upstream config.UpstreamConfig) *Engine {
	rebuild := cfg.TPRebuildInterval
	if rebuild <= 0 {
		rebuild = 4 * time.Second
	}
	timeout := upstream.QuoteTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	return &Engine{
		source:          source,
		closer:          closer,
		stream:          stream,
		rebuildInterval: rebuild,
		quoteTimeout:    timeout,
		working:         make(map[string][]*models.Position),
		unsubs:          make(map[string]func()),
		checking:        make(map[string]*int32),
	}
}

// Start запускает цикл перестройки рабочего набора
func (e *Engine) Start(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&e.started, 0, 1) {
		return
	}

	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})

	go e.rebuildLoop(ctx)
	utils.Info("take profit engine started",
		utils.String("rebuild_interval", e.rebuildInterval.String()))
}

// Stop останавливает движок и снимает все подписки
func (e *Engine) Stop() {
	if !atomic.CompareAndSwapInt32(&e.started, 1, 0) {
		return
	}

	e.cancel()
	<-e.done

	e.mu.Lock()
	for symbol, unsub := range e.unsubs {
		unsub()
		delete(e.unsubs, symbol)
	}
	e.working = make(map[string][]*models.Position)
	e.mu.Unlock()

	utils.Info("take profit engine stopped")
}

func (e *Engine) rebuildLoop(ctx context.Context) {
	defer close(e.done)

	// Первая перестройка сразу, не дожидаясь тика
	e.rebuild()

	ticker := time.NewTicker(e.rebuildInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.rebuild()
		}
	}
}

// rebuild перечитывает рабочий набор из БД и приводит подписки в соответствие
func (e *Engine) rebuild() {
	start := time.Now()

	positions, err := e.source.GetOpenWithTakeProfit()
	if err != nil {
		utils.Error("take profit rebuild failed", utils.Err(err))
		return
	}

	next := make(map[string][]*models.Position, len(positions))
	for _, position := range positions {
		next[position.Symbol] = append(next[position.Symbol], position)
	}

	e.mu.Lock()
	e.working = next

	// Подписка на новые символы
	for symbol := range next {
		if _, subscribed := e.unsubs[symbol]; subscribed {
			continue
		}
		sym := symbol
		flag := new(int32)
		e.checking[sym] = flag

		unsub, err := e.stream.Subscribe(sym, func(quote models.Quote) {
			e.onQuote(sym, quote)
		})
		if err != nil {
			utils.Error("take profit subscribe failed", utils.Symbol(sym), utils.Err(err))
			delete(e.checking, sym)
			continue
		}
		e.unsubs[sym] = unsub
	}

	// Отписка от символов без позиций
	for symbol, unsub := range e.unsubs {
		if _, active := next[symbol]; !active {
			unsub()
			delete(e.unsubs, symbol)
			delete(e.checking, symbol)
		}
	}

	total := 0
	for _, group := range next {
		total += len(group)
	}
	symbols := len(next)
	e.mu.Unlock()

	ObserveRebuild(time.Since(start), total, symbols)
}

// onQuote проверяет котировку против триггеров символа.
// Повторный вход по символу не блокирует: тик пропускается, следующий
// тик того же символа придёт через миллисекунды.
func (e *Engine) onQuote(symbol string, quote models.Quote) {
	e.mu.RLock()
	flag := e.checking[symbol]
	e.mu.RUnlock()
	if flag == nil {
		return
	}

	if !atomic.CompareAndSwapInt32(flag, 0, 1) {
		RecordTickSkipped(symbol)
		return
	}
	defer atomic.StoreInt32(flag, 0)

	if e.isStale(quote) {
		return
	}

	RecordTickEvaluated(symbol)

	e.mu.RLock()
	group := e.working[symbol]
	e.mu.RUnlock()

	for _, position := range group {
		closePrice, hit := CheckTrigger(position, quote)
		if !hit {
			continue
		}

		e.removeFromWorkingSet(position)

		if _, err := e.closer.CloseAtPrice(position, closePrice, models.CloseReasonTakeProfit); err != nil {
			if errors.Is(err, repository.ErrPositionAlreadyClosed) {
				continue
			}
			// Позиция вернётся в набор при ближайшей перестройке
			utils.Error("take profit close failed",
				utils.PositionID(position.ID), utils.Symbol(symbol), utils.Err(err))
			continue
		}

		RecordTakeProfitClose(symbol)
		utils.Info("take profit executed",
			utils.PositionID(position.ID),
			utils.Symbol(symbol),
			utils.Price(closePrice),
		)
	}
}

func (e *Engine) isStale(quote models.Quote) bool {
	if quote.TimestampMs <= 0 {
		return true
	}
	age := time.Since(time.UnixMilli(quote.TimestampMs))
	return age > e.quoteTimeout
}

// removeFromWorkingSet убирает позицию из набора до попытки закрытия
func (e *Engine) removeFromWorkingSet(position *models.Position) {
	e.mu.Lock()
	defer e.mu.Unlock()

	group := e.working[position.Symbol]
	for i, candidate := range group {
		if candidate.ID == position.ID {
			e.working[position.Symbol] = append(group[:i], group[i+1:]...)
			break
		}
	}
}

// WorkingSetSize возвращает количество отслеживаемых позиций (для тестов и health)
func (e *Engine) WorkingSetSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	total := 0
	for _, group := range e.working {
		total += len(group)
	}
	return total
}

// TrackedSymbols возвращает символы с активными подписками
func (e *Engine) TrackedSymbols() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	symbols := make([]string, 0, len(e.unsubs))
	for symbol := range e.unsubs {
		symbols = append(symbols, symbol)
	}
	return symbols
}
