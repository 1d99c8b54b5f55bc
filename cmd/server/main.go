package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"margintrade/internal/api"
	"margintrade/internal/bot"
	"margintrade/internal/cache"
	"margintrade/internal/config"
	"margintrade/internal/exchange"
	"margintrade/internal/repository"
	"margintrade/internal/service"
	"margintrade/internal/websocket"
	"margintrade/pkg/utils"

	_ "github.com/lib/pq"
)

// liquidationSweepInterval - период фонового свипа ликвидаций
const liquidationSweepInterval = 10 * time.Second

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера
	logger := utils.InitGlobalLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	defer logger.Sync()

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		utils.Error("failed to connect to database", utils.Err(err))
		os.Exit(1)
	}
	defer db.Close()
	utils.Info("connected to database")

	// Инициализация репозиториев
	accountRepo := repository.NewAccountRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Источник котировок: REST клиент -> нормализатор -> опциональный redis кеш
	upstreamClient := exchange.NewClient(cfg.Upstream)
	normalizer := exchange.NewNormalizer(upstreamClient, cfg.Trading)

	var quotes service.QuoteProviderInterface = normalizer
	var redisClient *cache.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = cache.NewClient(context.Background(), cfg.Redis)
		if err != nil {
			utils.Error("failed to connect to redis", utils.Err(err))
			os.Exit(1)
		}
		defer redisClient.Close()

		quoteCache := cache.NewQuoteCache(redisClient, cfg.Redis.QuoteTTL)
		quotes = cache.NewCachedQuoteProvider(normalizer, quoteCache)
		utils.Info("quote cache enabled", utils.String("redis_addr", cfg.Redis.Addr))
	}

	// Инициализация WebSocket hub для frontend
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Инициализация сервисов
	notificationService := service.NewNotificationService(notificationRepo)
	notificationService.SetWebSocketHub(wsHub)

	orderService := service.NewOrderService(accountRepo, positionRepo, quotes, notificationService, cfg.Trading)
	positionService := service.NewPositionService(accountRepo, positionRepo, quotes, notificationService)
	accountService := service.NewAccountService(accountRepo, positionRepo, quotes)
	liquidationService := service.NewLiquidationService(accountRepo, positionRepo, quotes, notificationService, cfg.Trading)

	// Стрим котировок апстрима для take-profit движка
	streamHub := exchange.NewStreamHub(cfg.Upstream)
	streamHub.SetReconnectHook(bot.RecordStreamReconnect)

	// Take-profit движок
	engine := bot.NewEngine(positionRepo, positionService, streamHub, cfg.Trading, cfg.Upstream)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine.Start(rootCtx)

	// Фоновый свип ликвидаций
	go runLiquidationSweep(rootCtx, liquidationService)

	// Настройка зависимостей для API
	deps := &api.Dependencies{
		OrderService:        orderService,
		PositionService:     positionService,
		AccountService:      accountService,
		NotificationService: notificationService,
		LiquidationService:  liquidationService,
		WSHub:               wsHub,
		AdminToken:          cfg.Security.AdminToken,
	}

	// Настройка HTTP роутера
	router := api.SetupRoutes(deps)

	// HTTP сервер
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		utils.Info("starting server", utils.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Error("server failed", utils.Err(err))
			stop()
		}
	}()

	// Graceful shutdown
	<-rootCtx.Done()
	utils.Info("shutting down server")

	// Останавливаем движок и стрим котировок
	engine.Stop()
	streamHub.Close()
	exchange.CloseGlobalClient()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		utils.Error("server forced to shutdown", utils.Err(err))
	}

	utils.Info("server exited")
}

// runLiquidationSweep периодически проверяет активные счета на стоп-аут
func runLiquidationSweep(ctx context.Context, liquidations *service.LiquidationService) {
	ticker := time.NewTicker(liquidationSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			liquidations.SweepActive(ctx)
		}
	}
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
